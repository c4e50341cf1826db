package members

// MembershipCategory is the tier recorded against a member.
type MembershipCategory string

const (
	CategoryLife     MembershipCategory = "life"
	CategoryStandard MembershipCategory = "standard"
	CategoryUser     MembershipCategory = "user"
)

// Member is a registered member of the society.
type Member struct {
	ID                 string             `dynamodbav:"id" json:"id"`
	Email              string             `dynamodbav:"email" json:"email"`
	FirstName          string             `dynamodbav:"firstName" json:"firstName"`
	LastName           string             `dynamodbav:"lastName" json:"lastName"`
	MembershipCategory MembershipCategory `dynamodbav:"membershipCategory" json:"membershipCategory"`
	ReferenceNo        string             `dynamodbav:"referenceNo,omitempty" json:"referenceNo,omitempty"`
	ResidentialAddress string             `dynamodbav:"residentialAddress,omitempty" json:"residentialAddress,omitempty"`
}

// IsLife reports whether the database record marks the member as a life
// member. The identity-provider group claim is an independent second source;
// the booking service ORs the two.
func (m *Member) IsLife() bool {
	return m != nil && m.MembershipCategory == CategoryLife
}
