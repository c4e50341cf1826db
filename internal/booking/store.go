package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

const (
	dateIndex   = "date-index"
	memberIndex = "member-index"
)

var (
	// ErrBookingNotFound indicates the id does not exist.
	ErrBookingNotFound = errors.New("booking: booking not found")
	// ErrSlotTaken indicates another booking holds one of the requested hours.
	ErrSlotTaken = errors.New("booking: slot already booked")
)

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(context.Context, *dynamodb.TransactWriteItemsInput, ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store persists bookings in DynamoDB. Slot exclusivity is enforced with
// guard items written in the same transaction as the booking: one item per
// occupied hour, keyed slot#<date>#<HH:MM>, created with
// attribute_not_exists so two parties can never hold the same hour.
type Store struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewStore builds a booking store.
func NewStore(client dynamoAPI, tableName string, logger *logging.Logger) *Store {
	if client == nil {
		panic("booking: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("booking: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{client: client, tableName: tableName, logger: logger}
}

func slotGuardID(date, hhmm string) string {
	return "slot#" + date + "#" + hhmm
}

func (s *Store) guardIDs(b *Booking) ([]string, error) {
	start, ok := parseHour(b.StartTime)
	if !ok {
		return nil, fmt.Errorf("booking: invalid start time %q", b.StartTime)
	}
	ids := make([]string, 0, b.DurationHours)
	for h := start; h < start+b.DurationHours; h++ {
		ids = append(ids, slotGuardID(b.Date, formatHour(h)))
	}
	return ids, nil
}

// Create writes the booking and its slot guards atomically. Returns
// ErrSlotTaken when any guarded hour already exists.
func (s *Store) Create(ctx context.Context, b *Booking) error {
	if b == nil {
		return errors.New("booking: booking cannot be nil")
	}
	if b.ID == "" || b.Date == "" || b.StartTime == "" {
		return errors.New("booking: id, date and startTime required")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	b.CreatedAt = now
	b.UpdatedAt = now

	av, err := attributevalue.MarshalMap(b)
	if err != nil {
		return fmt.Errorf("booking: failed to marshal booking %s: %w", b.ID, err)
	}

	var guards []string
	if b.RequiresSlot {
		if guards, err = s.guardIDs(b); err != nil {
			return err
		}
	}

	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:           aws.String(s.tableName),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	}}
	for _, gid := range guards {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(s.tableName),
				Item: map[string]types.AttributeValue{
					"id":        &types.AttributeValueMemberS{Value: gid},
					"bookingId": &types.AttributeValueMemberS{Value: b.ID},
					"date":      &types.AttributeValueMemberS{Value: b.Date},
				},
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return ErrSlotTaken
				}
			}
		}
		return fmt.Errorf("booking: failed to create booking %s: %w", b.ID, err)
	}
	return nil
}

// GetByID fetches a booking by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Booking, error) {
	if id == "" {
		return nil, errors.New("booking: id required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("booking: failed to fetch booking %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, ErrBookingNotFound
	}
	var b Booking
	if err := attributevalue.UnmarshalMap(out.Item, &b); err != nil {
		return nil, fmt.Errorf("booking: failed to decode booking %s: %w", id, err)
	}
	return &b, nil
}

// ListByDate returns the bookings on a calendar day, slot guards excluded.
func (s *Store) ListByDate(ctx context.Context, date string) ([]Booking, error) {
	if date == "" {
		return nil, errors.New("booking: date required")
	}
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(dateIndex),
		KeyConditionExpression: aws.String("#d = :d"),
		FilterExpression:       aws.String("attribute_exists(serviceId)"),
		ExpressionAttributeNames: map[string]string{
			"#d": "date",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": &types.AttributeValueMemberS{Value: date},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("booking: failed to query date %s: %w", date, err)
	}
	return unmarshalBookings(out.Items)
}

// ListByMember returns a member's bookings, newest first.
func (s *Store) ListByMember(ctx context.Context, email string) ([]Booking, error) {
	if email == "" {
		return nil, errors.New("booking: email required")
	}
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(memberIndex),
		KeyConditionExpression: aws.String("memberEmail = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("booking: failed to query member %s: %w", email, err)
	}
	bookings, err := unmarshalBookings(out.Items)
	if err != nil {
		return nil, err
	}
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].Date != bookings[j].Date {
			return bookings[i].Date > bookings[j].Date
		}
		return bookings[i].StartTime > bookings[j].StartTime
	})
	return bookings, nil
}

// SetPayment records the payment intent and moves the booking to its new
// lifecycle state.
func (s *Store) SetPayment(ctx context.Context, id string, status Status, payment PaymentStatus, intentID string) error {
	if id == "" {
		return errors.New("booking: id required")
	}
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET #s = :s, paymentStatus = :p, paymentIntentId = :i, updatedAt = :u"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(status)},
			":p": &types.AttributeValueMemberS{Value: string(payment)},
			":i": &types.AttributeValueMemberS{Value: intentID},
			":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("booking: failed to update payment for %s: %w", id, err)
	}
	return nil
}

// Cancel flips the booking to cancelled and releases its slot guards in a
// single transaction so the hours become bookable again immediately.
func (s *Store) Cancel(ctx context.Context, b *Booking) error {
	if b == nil {
		return errors.New("booking: booking cannot be nil")
	}
	var guards []string
	if b.RequiresSlot {
		var err error
		if guards, err = s.guardIDs(b); err != nil {
			return err
		}
	}

	items := []types.TransactWriteItem{{
		Update: &types.Update{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberS{Value: b.ID},
			},
			UpdateExpression:    aws.String("SET #s = :s, updatedAt = :u"),
			ConditionExpression: aws.String("attribute_exists(id)"),
			ExpressionAttributeNames: map[string]string{
				"#s": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":s": &types.AttributeValueMemberS{Value: string(StatusCancelled)},
				":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
			},
		},
	}}
	for _, gid := range guards {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"id": &types.AttributeValueMemberS{Value: gid},
				},
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		return fmt.Errorf("booking: failed to cancel booking %s: %w", b.ID, err)
	}
	return nil
}

func unmarshalBookings(items []map[string]types.AttributeValue) ([]Booking, error) {
	bookings := make([]Booking, 0, len(items))
	for _, raw := range items {
		var b Booking
		if err := attributevalue.UnmarshalMap(raw, &b); err != nil {
			return nil, fmt.Errorf("booking: failed to decode booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}
