package booking

import "time"

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus tracks the money side independently of the lifecycle.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

// Booking is a reserved anusthan slot. All monetary fields are integer
// cents; the total is always recomputed on the server before persistence.
type Booking struct {
	ID               string        `dynamodbav:"id" json:"id"`
	ServiceID        string        `dynamodbav:"serviceId" json:"serviceId"`
	AnusthanName     string        `dynamodbav:"anusthanName" json:"anusthanName"`
	MemberEmail      string        `dynamodbav:"memberEmail" json:"memberEmail"`
	Name             string        `dynamodbav:"name" json:"name"`
	Phone            string        `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	Date             string        `dynamodbav:"date" json:"date"`           // YYYY-MM-DD
	StartTime        string        `dynamodbav:"startTime" json:"startTime"` // HH:MM, 24h
	DurationHours    int           `dynamodbav:"durationHours" json:"durationHours"`
	NumberOfPeople   int           `dynamodbav:"numberOfPeople" json:"numberOfPeople"`
	RequiresSlot     bool          `dynamodbav:"requiresSlot" json:"requiresSlot"`
	Notes            string        `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	IsLifeMember     bool          `dynamodbav:"isLifeMember" json:"isLifeMember"`
	BaseAmountCents  int64         `dynamodbav:"baseAmountCents" json:"baseAmountCents"`
	DiscountCents    int64         `dynamodbav:"discountCents" json:"discountCents"`
	CleaningFeeCents int64         `dynamodbav:"cleaningFeeCents" json:"cleaningFeeCents"`
	TotalAmountCents int64         `dynamodbav:"totalAmountCents" json:"totalAmountCents"`
	Status           Status        `dynamodbav:"status" json:"status"`
	PaymentStatus    PaymentStatus `dynamodbav:"paymentStatus" json:"paymentStatus"`
	PaymentIntentID  string        `dynamodbav:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	CreatedAt        string        `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt        string        `dynamodbav:"updatedAt" json:"updatedAt"`
}

// StartsAt resolves the booking's wall-clock start in the given location.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.StartTime, loc)
}

// Active reports whether the booking still occupies its slots.
func (b *Booking) Active() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}
