package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mandirseva/mandir-platform/internal/catalog"
	"github.com/mandirseva/mandir-platform/internal/events"
	"github.com/mandirseva/mandir-platform/internal/identity"
	"github.com/mandirseva/mandir-platform/internal/members"
	"github.com/mandirseva/mandir-platform/internal/payments"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

type fakeStore struct {
	created   *Booking
	createErr error
	byID      map[string]*Booking
	byDate    []Booking
	byMember  []Booking
	cancelled *Booking
	payment   struct {
		id       string
		status   Status
		payState PaymentStatus
		intentID string
	}
	paymentErr error
}

func (f *fakeStore) Create(_ context.Context, b *Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = b
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Booking, error) {
	if b, ok := f.byID[id]; ok {
		dup := *b
		return &dup, nil
	}
	return nil, ErrBookingNotFound
}

func (f *fakeStore) ListByDate(_ context.Context, _ string) ([]Booking, error) {
	return f.byDate, nil
}

func (f *fakeStore) ListByMember(_ context.Context, _ string) ([]Booking, error) {
	return f.byMember, nil
}

func (f *fakeStore) SetPayment(_ context.Context, id string, status Status, payState PaymentStatus, intentID string) error {
	if f.paymentErr != nil {
		return f.paymentErr
	}
	f.payment.id = id
	f.payment.status = status
	f.payment.payState = payState
	f.payment.intentID = intentID
	return nil
}

func (f *fakeStore) Cancel(_ context.Context, b *Booking) error {
	f.cancelled = b
	return nil
}

type fakeCatalog struct {
	services map[string]*catalog.Service
	fee      int64
	feeErr   error
}

func (f *fakeCatalog) GetByID(_ context.Context, id string) (*catalog.Service, error) {
	if svc, ok := f.services[id]; ok {
		return svc, nil
	}
	return nil, catalog.ErrServiceNotFound
}

func (f *fakeCatalog) CleaningFeeCents(_ context.Context) (int64, error) {
	return f.fee, f.feeErr
}

type fakeDirectory struct {
	byEmail map[string]*members.Member
}

func (f *fakeDirectory) GetByEmail(_ context.Context, email string) (*members.Member, error) {
	if m, ok := f.byEmail[email]; ok {
		return m, nil
	}
	return nil, members.ErrMemberNotFound
}

type fakeIntents struct {
	created   *payments.CreateIntentParams
	intent    *payments.Intent
	retrieved *payments.Intent
	err       error
}

func (f *fakeIntents) CreateIntent(_ context.Context, p payments.CreateIntentParams) (*payments.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = &p
	if f.intent != nil {
		return f.intent, nil
	}
	return &payments.Intent{ID: "pi_1", ClientSecret: "pi_1_secret", Status: "requires_payment_method", AmountCents: p.AmountCents}, nil
}

func (f *fakeIntents) RetrieveIntent(_ context.Context, id string) (*payments.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.retrieved != nil {
		return f.retrieved, nil
	}
	return &payments.Intent{ID: id, Status: "succeeded"}, nil
}

type fakePublisher struct {
	confirmed []events.BookingConfirmedV1
	cancelled []events.BookingCancelledV1
	err       error
}

func (f *fakePublisher) BookingConfirmed(_ context.Context, ev events.BookingConfirmedV1) error {
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, ev)
	return nil
}

func (f *fakePublisher) BookingCancelled(_ context.Context, ev events.BookingCancelledV1) error {
	if f.err != nil {
		return f.err
	}
	f.cancelled = append(f.cancelled, ev)
	return nil
}

func testSettings() Settings {
	return Settings{
		OpenHour:           8,
		CloseHour:          20,
		CleaningFeeMinimum: 21,
		CancelNoticeHours:  48,
		LifeMemberGroup:    "life-members",
		AdminGroup:         "admin",
		Location:           time.UTC,
	}
}

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, cat *fakeCatalog, dir *fakeDirectory, pay *fakeIntents, pub *fakePublisher) *Service {
	if dir == nil {
		dir = &fakeDirectory{}
	}
	// Assign through untyped interface values so a nil fake stays a nil
	// dependency instead of a non-nil interface wrapping a nil pointer.
	var payC intentClient
	if pay != nil {
		payC = pay
	}
	var pubC EventPublisher
	if pub != nil {
		pubC = pub
	}
	return NewService(store, cat, dir, payC, pubC, testSettings(), nil, logging.Default()).
		WithClock(func() time.Time { return testNow })
}

func katha() *catalog.Service {
	return &catalog.Service{ID: "satyanarayan-katha", AnusthanName: "Satyanarayan Katha", AmountCents: 10100, DurationHours: 3}
}

func TestCreatePricesLifeMemberServerSide(t *testing.T) {
	store := &fakeStore{}
	cat := &fakeCatalog{services: map[string]*catalog.Service{"satyanarayan-katha": katha()}, fee: 16000}
	svc := newTestService(store, cat, nil, nil, nil)

	sess := identity.NewSession("priya@example.org", "priya", []string{"life-members"})
	b, err := svc.Create(context.Background(), CreateRequest{
		ServiceID:      "satyanarayan-katha",
		Date:           "2026-09-12",
		StartTime:      "10:00",
		NumberOfPeople: 22,
		Name:           "Priya Sharma",
	}, sess)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !b.IsLifeMember {
		t.Fatal("group membership must mark the booking as life member")
	}
	if b.TotalAmountCents != 21050 {
		t.Fatalf("expected total 21050, got %d", b.TotalAmountCents)
	}
	if b.Status != StatusPending || b.PaymentStatus != PaymentUnpaid {
		t.Fatalf("new bookings must start pending and unpaid: %+v", b)
	}
	if store.created == nil || store.created.DurationHours != 3 {
		t.Fatalf("duration must come from the catalog, got %+v", store.created)
	}
}

func TestCreateUsesMemberRecordForDiscount(t *testing.T) {
	store := &fakeStore{}
	cat := &fakeCatalog{services: map[string]*catalog.Service{"satyanarayan-katha": katha()}, fee: 16000}
	dir := &fakeDirectory{byEmail: map[string]*members.Member{
		"priya@example.org": {ID: "mem_1", Email: "priya@example.org", MembershipCategory: members.CategoryLife},
	}}
	svc := newTestService(store, cat, dir, nil, nil)

	// Token carries no group claim; the member table still grants the discount.
	sess := identity.NewSession("priya@example.org", "priya", nil)
	b, err := svc.Create(context.Background(), CreateRequest{
		ServiceID: "satyanarayan-katha", Date: "2026-09-12", StartTime: "10:00",
		NumberOfPeople: 2, Name: "Priya Sharma",
	}, sess)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if b.TotalAmountCents != 5050 {
		t.Fatalf("expected half price 5050, got %d", b.TotalAmountCents)
	}
}

func TestCreateNonMemberFullPrice(t *testing.T) {
	store := &fakeStore{}
	cat := &fakeCatalog{services: map[string]*catalog.Service{"satyanarayan-katha": katha()}, fee: 16000}
	svc := newTestService(store, cat, nil, nil, nil)

	sess := identity.NewSession("guest@example.org", "guest", nil)
	b, err := svc.Create(context.Background(), CreateRequest{
		ServiceID: "satyanarayan-katha", Date: "2026-09-12", StartTime: "10:00",
		NumberOfPeople: 5, Name: "Guest",
	}, sess)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if b.TotalAmountCents != 10100 || b.IsLifeMember {
		t.Fatalf("expected full price, got %+v", b)
	}
}

func TestCreateValidation(t *testing.T) {
	cat := &fakeCatalog{services: map[string]*catalog.Service{"satyanarayan-katha": katha()}}
	svc := newTestService(&fakeStore{}, cat, nil, nil, nil)
	sess := identity.NewSession("priya@example.org", "priya", nil)

	cases := []CreateRequest{
		{Date: "2026-09-12", StartTime: "10:00", NumberOfPeople: 1, Name: "x"},                                      // no service
		{ServiceID: "unknown", Date: "2026-09-12", StartTime: "10:00", NumberOfPeople: 1, Name: "x"},                // unknown service
		{ServiceID: "satyanarayan-katha", Date: "12/09/2026", StartTime: "10:00", NumberOfPeople: 1, Name: "x"},     // bad date
		{ServiceID: "satyanarayan-katha", Date: "2026-09-12", StartTime: "06:00", NumberOfPeople: 1, Name: "x"},     // before open
		{ServiceID: "satyanarayan-katha", Date: "2026-09-12", StartTime: "18:00", NumberOfPeople: 1, Name: "x"},     // would end after close
		{ServiceID: "satyanarayan-katha", Date: "2026-08-01", StartTime: "10:00", NumberOfPeople: 1, Name: "x"},     // in the past
		{ServiceID: "satyanarayan-katha", Date: "2026-09-12", StartTime: "10:00", NumberOfPeople: 0, Name: "x"},     // no people
		{ServiceID: "satyanarayan-katha", Date: "2026-09-12", StartTime: "10:00", NumberOfPeople: 1},                // no name
	}
	for i, req := range cases {
		if _, err := svc.Create(context.Background(), req, sess); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestCreatePassesThroughSlotTaken(t *testing.T) {
	cat := &fakeCatalog{services: map[string]*catalog.Service{"satyanarayan-katha": katha()}}
	svc := newTestService(&fakeStore{createErr: ErrSlotTaken}, cat, nil, nil, nil)

	sess := identity.NewSession("priya@example.org", "priya", nil)
	_, err := svc.Create(context.Background(), CreateRequest{
		ServiceID: "satyanarayan-katha", Date: "2026-09-12", StartTime: "10:00",
		NumberOfPeople: 1, Name: "Priya",
	}, sess)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestConfirmPaymentHappyPath(t *testing.T) {
	store := &fakeStore{byID: map[string]*Booking{
		"bkg_1": {ID: "bkg_1", MemberEmail: "priya@example.org", AnusthanName: "Satyanarayan Katha",
			Date: "2026-09-12", StartTime: "10:00", TotalAmountCents: 21050,
			Status: StatusPending, PaymentStatus: PaymentUnpaid, PaymentIntentID: "pi_1"},
	}}
	pay := &fakeIntents{retrieved: &payments.Intent{ID: "pi_1", Status: "succeeded", AmountCents: 21050}}
	pub := &fakePublisher{}
	svc := newTestService(store, &fakeCatalog{}, nil, pay, pub)

	sess := identity.NewSession("priya@example.org", "priya", nil)
	b, err := svc.ConfirmPayment(context.Background(), "bkg_1", "pi_1", sess)
	if err != nil {
		t.Fatalf("ConfirmPayment returned error: %v", err)
	}
	if b.Status != StatusConfirmed || b.PaymentStatus != PaymentPaid {
		t.Fatalf("expected confirmed+paid, got %+v", b)
	}
	if store.payment.status != StatusConfirmed || store.payment.intentID != "pi_1" {
		t.Fatalf("persisted state wrong: %+v", store.payment)
	}
	if len(pub.confirmed) != 1 || pub.confirmed[0].BookingID != "bkg_1" {
		t.Fatalf("confirmation event missing: %+v", pub.confirmed)
	}
}

func TestConfirmPaymentRejectsUnfinishedIntent(t *testing.T) {
	store := &fakeStore{byID: map[string]*Booking{
		"bkg_1": {ID: "bkg_1", MemberEmail: "priya@example.org", Status: StatusPending, PaymentStatus: PaymentUnpaid, PaymentIntentID: "pi_1"},
	}}
	pay := &fakeIntents{retrieved: &payments.Intent{ID: "pi_1", Status: "requires_payment_method"}}
	svc := newTestService(store, &fakeCatalog{}, nil, pay, nil)

	sess := identity.NewSession("priya@example.org", "priya", nil)
	_, err := svc.ConfirmPayment(context.Background(), "bkg_1", "pi_1", sess)
	if !errors.Is(err, ErrPaymentNotSucceeded) {
		t.Fatalf("expected ErrPaymentNotSucceeded, got %v", err)
	}
	if store.payment.payState != PaymentFailed {
		t.Fatalf("failed attempt must be recorded, got %+v", store.payment)
	}
}

func TestConfirmPaymentRejectsAmountMismatch(t *testing.T) {
	store := &fakeStore{byID: map[string]*Booking{
		"bkg_1": {ID: "bkg_1", MemberEmail: "priya@example.org", TotalAmountCents: 21050,
			Status: StatusPending, PaymentStatus: PaymentUnpaid, PaymentIntentID: "pi_1"},
	}}
	pay := &fakeIntents{retrieved: &payments.Intent{ID: "pi_1", Status: "succeeded", AmountCents: 100}}
	svc := newTestService(store, &fakeCatalog{}, nil, pay, nil)

	sess := identity.NewSession("priya@example.org", "priya", nil)
	if _, err := svc.ConfirmPayment(context.Background(), "bkg_1", "pi_1", sess); err == nil {
		t.Fatal("expected amount mismatch error")
	}
}

func TestConfirmPaymentRejectsForeignIntent(t *testing.T) {
	store := &fakeStore{byID: map[string]*Booking{
		"bkg_1": {ID: "bkg_1", MemberEmail: "priya@example.org", TotalAmountCents: 500,
			Status: StatusPending, PaymentStatus: PaymentUnpaid, PaymentIntentID: "pi_1"},
		// No intent was ever created for this booking.
		"bkg_2": {ID: "bkg_2", MemberEmail: "priya@example.org", TotalAmountCents: 500,
			Status: StatusPending, PaymentStatus: PaymentUnpaid},
	}}
	pay := &fakeIntents{retrieved: &payments.Intent{ID: "pi_other", Status: "succeeded", AmountCents: 500}}
	svc := newTestService(store, &fakeCatalog{}, nil, pay, nil)

	sess := identity.NewSession("priya@example.org", "priya", nil)
	if _, err := svc.ConfirmPayment(context.Background(), "bkg_1", "pi_other", sess); !errors.Is(err, ErrValidation) {
		t.Fatalf("a succeeded intent from another booking must not confirm: %v", err)
	}
	if _, err := svc.ConfirmPayment(context.Background(), "bkg_2", "pi_other", sess); !errors.Is(err, ErrValidation) {
		t.Fatalf("a booking without an intent must not confirm: %v", err)
	}
	if store.payment.id != "" {
		t.Fatalf("nothing may be persisted for a mismatched intent: %+v", store.payment)
	}
}

func TestConfirmPaymentSurvivesDeadQueue(t *testing.T) {
	store := &fakeStore{byID: map[string]*Booking{
		"bkg_1": {ID: "bkg_1", MemberEmail: "priya@example.org", TotalAmountCents: 500,
			Status: StatusPending, PaymentStatus: PaymentUnpaid, PaymentIntentID: "pi_1"},
	}}
	pay := &fakeIntents{retrieved: &payments.Intent{ID: "pi_1", Status: "succeeded", AmountCents: 500}}
	pub := &fakePublisher{err: errors.New("queue down")}
	svc := newTestService(store, &fakeCatalog{}, nil, pay, pub)

	sess := identity.NewSession("priya@example.org", "priya", nil)
	b, err := svc.ConfirmPayment(context.Background(), "bkg_1", "pi_1", sess)
	if err != nil {
		t.Fatalf("publish failure must not fail confirmation: %v", err)
	}
	if b.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %+v", b)
	}
}

func TestCreatePaymentIntentUsesStoredTotal(t *testing.T) {
	store := &fakeStore{byID: map[string]*Booking{
		"bkg_1": {ID: "bkg_1", MemberEmail: "priya@example.org", AnusthanName: "Satyanarayan Katha",
			Date: "2026-09-12", TotalAmountCents: 21050, Status: StatusPending, PaymentStatus: PaymentUnpaid},
	}}
	pay := &fakeIntents{}
	svc := newTestService(store, &fakeCatalog{}, nil, pay, nil)

	sess := identity.NewSession("priya@example.org", "priya", nil)
	intent, err := svc.CreatePaymentIntent(context.Background(), "bkg_1", sess)
	if err != nil {
		t.Fatalf("CreatePaymentIntent returned error: %v", err)
	}
	if pay.created.AmountCents != 21050 {
		t.Fatalf("intent must use the stored total, got %d", pay.created.AmountCents)
	}
	if intent.ClientSecret == "" {
		t.Fatal("client secret missing")
	}
}

func TestCreatePaymentIntentRejectsPaidBooking(t *testing.T) {
	store := &fakeStore{byID: map[string]*Booking{
		"bkg_1": {ID: "bkg_1", MemberEmail: "priya@example.org", Status: StatusConfirmed, PaymentStatus: PaymentPaid},
	}}
	svc := newTestService(store, &fakeCatalog{}, nil, &fakeIntents{}, nil)

	sess := identity.NewSession("priya@example.org", "priya", nil)
	if _, err := svc.CreatePaymentIntent(context.Background(), "bkg_1", sess); !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestCancelEnforcesNoticeWindow(t *testing.T) {
	store := &fakeStore{byID: map[string]*Booking{
		// Starts 22 hours after testNow.
		"bkg_soon": {ID: "bkg_soon", MemberEmail: "priya@example.org", RequiresSlot: true,
			Date: "2026-09-02", StartTime: "10:00", DurationHours: 1, Status: StatusConfirmed},
		// Starts 11 days out.
		"bkg_far": {ID: "bkg_far", MemberEmail: "priya@example.org", RequiresSlot: true,
			Date: "2026-09-12", StartTime: "10:00", DurationHours: 1, Status: StatusConfirmed},
	}}
	svc := newTestService(store, &fakeCatalog{}, nil, nil, nil)
	sess := identity.NewSession("priya@example.org", "priya", nil)

	if _, err := svc.Cancel(context.Background(), "bkg_soon", sess); !errors.Is(err, ErrTooLateToCancel) {
		t.Fatalf("expected ErrTooLateToCancel, got %v", err)
	}
	b, err := svc.Cancel(context.Background(), "bkg_far", sess)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if b.Status != StatusCancelled || store.cancelled == nil {
		t.Fatalf("cancellation not applied: %+v", b)
	}
}

func TestCancelAdminBypassesNotice(t *testing.T) {
	store := &fakeStore{byID: map[string]*Booking{
		"bkg_soon": {ID: "bkg_soon", MemberEmail: "priya@example.org", RequiresSlot: true,
			Date: "2026-09-02", StartTime: "10:00", DurationHours: 1, Status: StatusConfirmed},
	}}
	svc := newTestService(store, &fakeCatalog{}, nil, nil, nil)

	admin := identity.NewSession("office@example.org", "office", []string{"admin"})
	if _, err := svc.Cancel(context.Background(), "bkg_soon", admin); err != nil {
		t.Fatalf("admin cancel returned error: %v", err)
	}
}

func TestCancelAlreadyCancelled(t *testing.T) {
	store := &fakeStore{byID: map[string]*Booking{
		"bkg_1": {ID: "bkg_1", MemberEmail: "priya@example.org", Status: StatusCancelled},
	}}
	svc := newTestService(store, &fakeCatalog{}, nil, nil, nil)

	sess := identity.NewSession("priya@example.org", "priya", nil)
	if _, err := svc.Cancel(context.Background(), "bkg_1", sess); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestCancelCompletedBooking(t *testing.T) {
	store := &fakeStore{byID: map[string]*Booking{
		"bkg_1": {ID: "bkg_1", MemberEmail: "priya@example.org", Status: StatusCompleted,
			Date: "2026-08-20", StartTime: "10:00"},
	}}
	svc := newTestService(store, &fakeCatalog{}, nil, nil, nil)

	sess := identity.NewSession("priya@example.org", "priya", nil)
	if _, err := svc.Cancel(context.Background(), "bkg_1", sess); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	// Admins skip the notice window, never the completed guard.
	admin := identity.NewSession("office@example.org", "office", []string{"admin"})
	if _, err := svc.Cancel(context.Background(), "bkg_1", admin); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted for admin, got %v", err)
	}
	if store.cancelled != nil {
		t.Fatalf("completed booking must stay untouched: %+v", store.cancelled)
	}
}

func TestListByMemberForbidsOtherUsers(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeCatalog{}, nil, nil, nil)
	sess := identity.NewSession("mallory@example.org", "mallory", nil)
	if _, err := svc.ListByMember(context.Background(), "priya@example.org", sess); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAvailableSlotsExcludesBookedHours(t *testing.T) {
	store := &fakeStore{byDate: []Booking{
		{StartTime: "10:00", DurationHours: 2, Status: StatusConfirmed},
	}}
	cat := &fakeCatalog{services: map[string]*catalog.Service{"satyanarayan-katha": katha()}}
	svc := newTestService(store, cat, nil, nil, nil)

	slots, err := svc.AvailableSlots(context.Background(), "satyanarayan-katha", "2026-09-12")
	if err != nil {
		t.Fatalf("AvailableSlots returned error: %v", err)
	}
	for _, s := range slots {
		switch s.StartTime {
		case "08:00", "09:00", "10:00", "11:00":
			t.Fatalf("slot %s should be blocked for a 3 hour ceremony", s.StartTime)
		}
	}
}
