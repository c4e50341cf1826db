package booking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

type mockDynamo struct {
	getOutput     *dynamodb.GetItemOutput
	getErr        error
	queryOutput   *dynamodb.QueryOutput
	queryErr      error
	queryInput    *dynamodb.QueryInput
	updateInput   *dynamodb.UpdateItemInput
	updateErr     error
	transactInput *dynamodb.TransactWriteItemsInput
	transactErr   error
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getOutput == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return m.getOutput, nil
}

func (m *mockDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.queryInput = in
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.queryOutput == nil {
		return &dynamodb.QueryOutput{}, nil
	}
	return m.queryOutput, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updateInput = in
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	m.transactInput = in
	if m.transactErr != nil {
		return nil, m.transactErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func sampleBooking() *Booking {
	return &Booking{
		ID:            "bkg_1",
		ServiceID:     "satyanarayan-katha",
		MemberEmail:   "priya@example.org",
		Date:          "2026-09-12",
		StartTime:     "10:00",
		DurationHours: 3,
		RequiresSlot:  true,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
	}
}

func TestCreateWritesBookingAndSlotGuards(t *testing.T) {
	mock := &mockDynamo{}
	store := NewStore(mock, "mandir_bookings", logging.Default())

	if err := store.Create(context.Background(), sampleBooking()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	// One booking item plus one guard per occupied hour.
	if got := len(mock.transactInput.TransactItems); got != 4 {
		t.Fatalf("expected 4 transact items, got %d", got)
	}
	guard := mock.transactInput.TransactItems[1].Put
	gid := guard.Item["id"].(*types.AttributeValueMemberS).Value
	if gid != "slot#2026-09-12#10:00" {
		t.Fatalf("unexpected guard id %q", gid)
	}
	if !strings.Contains(aws.ToString(guard.ConditionExpression), "attribute_not_exists") {
		t.Fatalf("guard must be conditional, got %q", aws.ToString(guard.ConditionExpression))
	}
}

func TestCreateSkipsGuardsWhenSlotNotRequired(t *testing.T) {
	mock := &mockDynamo{}
	store := NewStore(mock, "mandir_bookings", logging.Default())

	b := sampleBooking()
	b.RequiresSlot = false
	if err := store.Create(context.Background(), b); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got := len(mock.transactInput.TransactItems); got != 1 {
		t.Fatalf("expected only the booking item, got %d", got)
	}
}

func TestCreateMapsConditionFailureToSlotTaken(t *testing.T) {
	mock := &mockDynamo{transactErr: &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	}}
	store := NewStore(mock, "mandir_bookings", logging.Default())

	err := store.Create(context.Background(), sampleBooking())
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := NewStore(&mockDynamo{}, "mandir_bookings", logging.Default())
	_, err := store.GetByID(context.Background(), "bkg_missing")
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestListByMemberSortsNewestFirst(t *testing.T) {
	older, _ := attributevalue.MarshalMap(Booking{ID: "bkg_a", Date: "2026-09-01", StartTime: "09:00"})
	newer, _ := attributevalue.MarshalMap(Booking{ID: "bkg_b", Date: "2026-09-12", StartTime: "10:00"})
	mock := &mockDynamo{queryOutput: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{older, newer},
	}}
	store := NewStore(mock, "mandir_bookings", logging.Default())

	bookings, err := store.ListByMember(context.Background(), "priya@example.org")
	if err != nil {
		t.Fatalf("ListByMember returned error: %v", err)
	}
	if bookings[0].ID != "bkg_b" {
		t.Fatalf("expected newest first, got %+v", bookings)
	}
	if aws.ToString(mock.queryInput.IndexName) != memberIndex {
		t.Fatalf("expected query on %s", memberIndex)
	}
}

func TestCancelReleasesGuards(t *testing.T) {
	mock := &mockDynamo{}
	store := NewStore(mock, "mandir_bookings", logging.Default())

	if err := store.Cancel(context.Background(), sampleBooking()); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	items := mock.transactInput.TransactItems
	if len(items) != 4 {
		t.Fatalf("expected status update plus 3 guard deletes, got %d", len(items))
	}
	if items[0].Update == nil {
		t.Fatal("first item must update the booking status")
	}
	del := items[1].Delete
	if del == nil {
		t.Fatal("guard deletes missing")
	}
	gid := del.Key["id"].(*types.AttributeValueMemberS).Value
	if gid != "slot#2026-09-12#10:00" {
		t.Fatalf("unexpected guard id %q", gid)
	}
}

func TestSetPaymentNotFound(t *testing.T) {
	mock := &mockDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	store := NewStore(mock, "mandir_bookings", logging.Default())

	err := store.SetPayment(context.Background(), "bkg_x", StatusConfirmed, PaymentPaid, "pi_1")
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}
