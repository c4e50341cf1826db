package catalog

// Category sizes an anusthan by venue/effort tier.
type Category string

const (
	CategoryService Category = "service"
	CategorySmall   Category = "small"
	CategoryMedium  Category = "medium"
	CategoryLarge   Category = "large"
	CategorySpecial Category = "special"
)

// CleaningFeeID is the catalog entry holding the flat cleaning fee charged
// on large gatherings. The fee amount lives in the catalog like any other
// service so the office can adjust it without a deploy.
const CleaningFeeID = "cleaning-fee"

// Service is an anusthan offered for booking. Immutable reference data;
// clients never mutate it.
type Service struct {
	ID                  string   `dynamodbav:"id" json:"id"`
	Category            Category `dynamodbav:"category" json:"category"`
	AnusthanName        string   `dynamodbav:"anusthanName" json:"anusthanName"`
	AmountCents         int64    `dynamodbav:"amountCents" json:"amountCents"`
	DurationHours       int      `dynamodbav:"durationHours" json:"durationHours"`
	Notes               string   `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	RequiresSlotBooking *bool    `dynamodbav:"requiresSlotBooking,omitempty" json:"requiresSlotBooking,omitempty"`
}

// SlotBookingRequired defaults to true when the attribute is absent; only an
// explicit false opts a service out of slot selection.
func (s Service) SlotBookingRequired() bool {
	return s.RequiresSlotBooking == nil || *s.RequiresSlotBooking
}
