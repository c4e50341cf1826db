package notify

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// e164 matches full international numbers, e.g. +61412345678. Local formats
// like 0412345678 are rejected before any publish is attempted.
var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidE164 reports whether the number is a full international phone number.
func ValidE164(number string) bool {
	return e164.MatchString(number)
}

// Result is the outcome of one SMS attempt. Delivery is best effort: callers
// inspect the result and log, they never fail a booking over it.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SMSSender delivers a text message to one recipient.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) Result
}

type snsAPI interface {
	Publish(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender sends SMS via AWS SNS direct publish.
type SNSSender struct {
	client   snsAPI
	senderID string
	logger   *logging.Logger
}

// NewSNSSender creates an SNS-backed SMS sender.
func NewSNSSender(client snsAPI, senderID string, logger *logging.Logger) *SNSSender {
	if client == nil {
		panic("notify: SNS client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SNSSender{client: client, senderID: senderID, logger: logger}
}

// SendSMS validates the number and publishes the message. Validation failures
// and publish failures both come back as an unsuccessful Result.
func (s *SNSSender) SendSMS(ctx context.Context, to, body string) Result {
	if !ValidE164(to) {
		s.logger.Warn("rejected SMS to non-E.164 number", "to", to)
		return Result{Error: fmt.Sprintf("phone number %q is not in international format", to)}
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}
	if s.senderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		s.logger.Error("SNS publish failed", "error", err, "to", to)
		return Result{Error: err.Error()}
	}

	s.logger.Info("SMS sent via SNS", "to", to, "message_id", aws.ToString(out.MessageId))
	return Result{Success: true, MessageID: aws.ToString(out.MessageId)}
}

// StubSMSSender is a no-op sender for testing or local development.
type StubSMSSender struct {
	logger *logging.Logger
}

// NewStubSMSSender creates a stub SMS sender.
func NewStubSMSSender(logger *logging.Logger) *StubSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSMSSender{logger: logger}
}

// SendSMS logs but doesn't send. It still applies number validation so local
// runs catch bad data.
func (s *StubSMSSender) SendSMS(ctx context.Context, to, body string) Result {
	if !ValidE164(to) {
		return Result{Error: fmt.Sprintf("phone number %q is not in international format", to)}
	}
	s.logger.Info("stub SMS sender: would send", "to", to, "body_preview", truncate(body, 50))
	return Result{Success: true, MessageID: "stub"}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Ensure interface compliance
var _ SMSSender = (*SNSSender)(nil)
var _ SMSSender = (*StubSMSSender)(nil)
