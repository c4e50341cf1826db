package booking

// Life members pay half the listed amount. The public site historically
// labelled this "10% discount"; the ledgered rate has always been 50% and
// the server is the source of truth.
const lifeMemberDiscountPercent = 50

// Quote is a server-side price breakdown. Every field is integer cents so
// the arithmetic is exact.
type Quote struct {
	BaseAmountCents  int64 `json:"baseAmountCents"`
	DiscountCents    int64 `json:"discountCents"`
	CleaningFeeCents int64 `json:"cleaningFeeCents"`
	TotalAmountCents int64 `json:"totalAmountCents"`
	LifeMember       bool  `json:"lifeMember"`
}

// ComputeQuote prices a booking. The cleaning fee applies only when the
// party size exceeds cleaningFeeMinimum; the life-member discount applies
// to the base amount, never to the fee.
func ComputeQuote(baseCents int64, lifeMember bool, numberOfPeople, cleaningFeeMinimum int, cleaningFeeCents int64) Quote {
	q := Quote{BaseAmountCents: baseCents, LifeMember: lifeMember}
	if lifeMember {
		q.DiscountCents = baseCents * lifeMemberDiscountPercent / 100
	}
	if numberOfPeople > cleaningFeeMinimum {
		q.CleaningFeeCents = cleaningFeeCents
	}
	q.TotalAmountCents = q.BaseAmountCents - q.DiscountCents + q.CleaningFeeCents
	return q
}
