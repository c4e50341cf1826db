package events

import "encoding/json"

// Event type discriminators carried on every envelope.
const (
	TypeBookingConfirmedV1 = "booking.confirmed.v1"
	TypeBookingCancelledV1 = "booking.cancelled.v1"
)

// Envelope wraps every message on the booking events queue so consumers can
// dispatch on type before decoding the payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// BookingConfirmedV1 is emitted once a booking's payment has been verified.
// The notify worker fans this out to SMS and email.
type BookingConfirmedV1 struct {
	BookingID        string `json:"bookingId"`
	ServiceID        string `json:"serviceId"`
	AnusthanName     string `json:"anusthanName"`
	MemberEmail      string `json:"memberEmail"`
	Name             string `json:"name"`
	Phone            string `json:"phone,omitempty"`
	Date             string `json:"date"`
	StartTime        string `json:"startTime"`
	TotalAmountCents int64  `json:"totalAmountCents"`
}

// BookingCancelledV1 is emitted when a booking releases its slots.
type BookingCancelledV1 struct {
	BookingID    string `json:"bookingId"`
	AnusthanName string `json:"anusthanName"`
	MemberEmail  string `json:"memberEmail"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
}

// Wrap serializes a payload into an envelope body ready for the queue.
func Wrap(eventType string, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(Envelope{Type: eventType, Payload: raw})
	if err != nil {
		return "", err
	}
	return string(body), nil
}
