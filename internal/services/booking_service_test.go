package services

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"travelbackend/internal/auth"
	"travelbackend/internal/domain"
	"travelbackend/internal/domain/models"
	"travelbackend/internal/notify"
	"travelbackend/internal/repositories"
)

// recordingRelay captures published events for assertions.
type recordingRelay struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingRelay) Publish(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingRelay) count(t notify.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

var bookingCols = []string{"id", "trip_id", "user_id", "status", "guests", "start_date", "payment_status"}

func bookingRow(id int64, status models.BookingStatus, payStatus models.PaymentStatus) *sqlmock.Rows {
	return sqlmock.NewRows(bookingCols).AddRow(id, int64(7), int64(42), status, 3, "2026-10-01", payStatus)
}

func TestBookingApproveReservesCapacity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	relay := &recordingRelay{}

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingRequested, models.PaymentPending))
	mock.ExpectExec("UPDATE trips").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET status=").
		WithArgs(models.BookingConfirmed, int64(5), models.BookingRequested).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		DB:          db,
		Relay:       relay,
	}
	actor := auth.NewActor(1, "manager", []string{"booking:approve"})

	booking, err := svc.Approve(5, actor)
	if err != nil {
		t.Fatalf("approve error: %v", err)
	}
	if booking.Status != models.BookingConfirmed {
		t.Fatalf("status = %s, want CONFIRMED", booking.Status)
	}
	if relay.count(notify.EventBookingConfirmed) != 1 {
		t.Fatal("expected exactly one booking_confirmed event")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// When the conditional capacity update affects zero rows the approval rolls
// back: the booking stays REQUESTED, the counter is untouched, and no event
// fires.
func TestBookingApproveCapacityFullRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	relay := &recordingRelay{}

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingRequested, models.PaymentPending))
	mock.ExpectExec("UPDATE trips").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		DB:          db,
		Relay:       relay,
	}
	actor := auth.NewActor(1, "manager", []string{"booking:approve"})

	_, err = svc.Approve(5, actor)
	if !domain.IsCapacityFull(err) {
		t.Fatalf("expected capacity full error, got %v", err)
	}
	if len(relay.events) != 0 {
		t.Fatal("no event may fire on a failed approval")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingApproveForbiddenBeforeAnyRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		DB:          db,
	}
	actor := auth.NewActor(42, "user", nil)

	if _, err := svc.Approve(5, actor); !domain.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("database was touched before the permission check: %v", err)
	}
}

func TestBookingApproveRejectsNonRequested(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingConfirmed, models.PaymentPaid))
	mock.ExpectRollback()

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		DB:          db,
	}
	actor := auth.NewActor(1, "manager", []string{"booking:approve"})

	if _, err := svc.Approve(5, actor); !domain.IsInvalidState(err) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingDuplicateGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM trips WHERE id=").WithArgs(int64(7)).
		WillReturnRows(tripRow(7, models.TripPublished))
	mock.ExpectQuery("SELECT COUNT").WithArgs(int64(42), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		DB:          db,
	}
	actor := auth.NewActor(42, "user", nil)

	_, err = svc.CreateBooking(actor, 7, 2, "2026-10-01", nil)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict for duplicate active booking, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingRejectsUnpublishedTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM trips WHERE id=").WithArgs(int64(7)).
		WillReturnRows(tripRow(7, models.TripApproved))

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		DB:          db,
	}
	actor := auth.NewActor(42, "user", nil)

	_, err = svc.CreateBooking(actor, 7, 2, "2026-10-01", nil)
	if !domain.IsInvalidState(err) {
		t.Fatalf("expected invalid state for unpublished trip, got %v", err)
	}
}

// A confirmed booking with a captured payment must go through the refund
// flow; plain cancellation is blocked.
func TestCancelConfirmedWithCapturedPaymentBlocked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingConfirmed, models.PaymentPaid))
	mock.ExpectQuery("FROM payments WHERE booking_id=").WithArgs(int64(5)).
		WillReturnRows(paymentRow(9, 5, models.PaymentCaptured, "order_test_x", "pay_1"))
	mock.ExpectRollback()

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		PaymentRepo: repositories.PaymentRepository{DB: db},
		DB:          db,
	}
	actor := auth.NewActor(42, "user", nil) // the owner

	if _, err := svc.Cancel(5, actor); !domain.IsInvalidState(err) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Cancelling a confirmed, unpaid booking releases its capacity atomically
// with the status change.
func TestCancelConfirmedUnpaidReleasesCapacity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingConfirmed, models.PaymentPending))
	mock.ExpectQuery("FROM payments WHERE booking_id=").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(paymentCols))
	mock.ExpectExec("UPDATE trips").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET status=").
		WithArgs(models.BookingCancelled, int64(5), models.BookingConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		PaymentRepo: repositories.PaymentRepository{DB: db},
		DB:          db,
	}
	actor := auth.NewActor(42, "user", nil)

	booking, err := svc.Cancel(5, actor)
	if err != nil {
		t.Fatalf("cancel error: %v", err)
	}
	if booking.Status != models.BookingCancelled {
		t.Fatalf("status = %s, want CANCELLED", booking.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
