package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"travelbackend/internal/auth"
	"travelbackend/internal/config"
	"travelbackend/internal/domain"
	"travelbackend/internal/domain/models"
	"travelbackend/internal/gateway"
	"travelbackend/internal/notify"
	"travelbackend/internal/repositories"
)

var paymentCols = []string{"id", "booking_id", "amount_minor", "provider", "method", "status",
	"provider_order_id", "provider_payment_id", "provider_refund_id", "proof_ref"}

func paymentRow(id, bookingID int64, status models.PaymentState, orderID, payID string) *sqlmock.Rows {
	return sqlmock.NewRows(paymentCols).
		AddRow(id, bookingID, int64(1500000), "razorpay", "GATEWAY", status, orderID, payID, "", "")
}

func configuredGateway() *gateway.Client {
	return gateway.NewClient(config.RazorpayConfig{
		KeyID:         "rzp_live_real",
		KeySecret:     "real_secret",
		WebhookSecret: "wh_secret",
		BaseURL:       "https://api.razorpay.com",
	})
}

func TestVerifyTestOrderCaptures(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	relay := &recordingRelay{}

	mock.ExpectBegin()
	mock.ExpectExec("SET status='CAPTURED'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM payments WHERE provider_order_id=").WithArgs("order_test_abc").
		WillReturnRows(paymentRow(9, 5, models.PaymentCreated, "order_test_abc", ""))
	mock.ExpectExec("UPDATE bookings SET payment_status=").
		WithArgs(models.PaymentPaid, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := PaymentService{
		PaymentRepo: repositories.PaymentRepository{DB: db},
		BookingRepo: repositories.BookingRepository{DB: db},
		DB:          db,
		Relay:       relay,
		Env:         "development",
	}

	payment, err := svc.Verify(context.Background(), "order_test_abc", "pay_sim_1", "")
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if payment.Status != models.PaymentCaptured {
		t.Fatalf("status = %s, want CAPTURED", payment.Status)
	}
	if relay.count(notify.EventPaymentCaptured) != 1 {
		t.Fatal("expected exactly one payment_captured event")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// A replayed callback with the same provider payment id is a no-op success:
// same response, no second notification.
func TestVerifyDuplicateCallbackIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	relay := &recordingRelay{}

	mock.ExpectBegin()
	mock.ExpectExec("SET status='CAPTURED'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM payments WHERE provider_order_id=").WithArgs("order_test_abc").
		WillReturnRows(paymentRow(9, 5, models.PaymentCaptured, "order_test_abc", "pay_sim_1"))
	mock.ExpectRollback()

	svc := PaymentService{
		PaymentRepo: repositories.PaymentRepository{DB: db},
		BookingRepo: repositories.BookingRepository{DB: db},
		DB:          db,
		Relay:       relay,
		Env:         "development",
	}

	payment, err := svc.Verify(context.Background(), "order_test_abc", "pay_sim_1", "")
	if err != nil {
		t.Fatalf("duplicate verify must succeed, got: %v", err)
	}
	if payment.Status != models.PaymentCaptured {
		t.Fatalf("status = %s, want CAPTURED", payment.Status)
	}
	if len(relay.events) != 0 {
		t.Fatal("duplicate capture must not publish a second event")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// A forged signature fails closed before any database work.
func TestVerifyForgedSignatureChangesNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := PaymentService{
		PaymentRepo: repositories.PaymentRepository{DB: db},
		BookingRepo: repositories.BookingRepository{DB: db},
		DB:          db,
		Gateway:     configuredGateway(),
		Env:         "production",
	}

	_, err = svc.Verify(context.Background(), "order_live_1", "pay_live_1", "forged")
	if !domain.IsSignature(err) {
		t.Fatalf("expected signature error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("database was touched on a forged signature: %v", err)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := PaymentService{
		PaymentRepo: repositories.PaymentRepository{DB: db},
		BookingRepo: repositories.BookingRepository{DB: db},
		DB:          db,
		Gateway:     configuredGateway(),
	}

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`)
	if err := svc.HandleWebhook(context.Background(), body, "forged"); !domain.IsSignature(err) {
		t.Fatalf("expected signature error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("database was touched on a forged webhook: %v", err)
	}
}

func TestRecordManualRejectsSecondCapture(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingConfirmed, models.PaymentPending))
	mock.ExpectBegin()
	// guarded insert: a captured payment already exists
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	svc := PaymentService{
		PaymentRepo: repositories.PaymentRepository{DB: db},
		BookingRepo: repositories.BookingRepository{DB: db},
		DB:          db,
	}
	actor := auth.NewActor(1, "manager", []string{"payment:record"})

	_, err = svc.RecordManual(context.Background(), 5, 1500000, models.MethodUPI, "TXN123", "", actor)
	if !domain.IsInvalidState(err) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordManualForbiddenBeforeAnyRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := PaymentService{
		PaymentRepo: repositories.PaymentRepository{DB: db},
		BookingRepo: repositories.BookingRepository{DB: db},
		DB:          db,
	}
	actor := auth.NewActor(42, "user", nil)

	_, err = svc.RecordManual(context.Background(), 5, 1500000, models.MethodCash, "", "", actor)
	if !domain.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("database was touched before the permission check: %v", err)
	}
}

func TestRecordManualSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	relay := &recordingRelay{}

	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingConfirmed, models.PaymentPending))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("UPDATE bookings SET payment_status=").
		WithArgs(models.PaymentPaid, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := PaymentService{
		PaymentRepo: repositories.PaymentRepository{DB: db},
		BookingRepo: repositories.BookingRepository{DB: db},
		DB:          db,
		Relay:       relay,
	}
	actor := auth.NewActor(1, "manager", []string{"payment:record"})

	payment, err := svc.RecordManual(context.Background(), 5, 1500000, models.MethodBankTransfer, "NEFT789", "receipts/789.jpg", actor)
	if err != nil {
		t.Fatalf("record manual error: %v", err)
	}
	if payment.Status != models.PaymentCaptured {
		t.Fatalf("status = %s, want CAPTURED", payment.Status)
	}
	if payment.ProviderPaymentID != "NEFT789" {
		t.Fatalf("payment ref = %s, want NEFT789", payment.ProviderPaymentID)
	}
	if relay.count(notify.EventPaymentCaptured) != 1 {
		t.Fatal("expected exactly one payment_captured event")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefundCancelsBookingAndReleasesCapacity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	relay := &recordingRelay{}

	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingConfirmed, models.PaymentPaid))
	mock.ExpectQuery("FROM payments WHERE booking_id=").WithArgs(int64(5)).
		WillReturnRows(paymentRow(9, 5, models.PaymentCaptured, "order_test_x", "pay_1"))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingConfirmed, models.PaymentPaid))
	mock.ExpectExec("SET status='REFUNDED'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trips").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET status=").
		WithArgs(models.BookingCancelled, int64(5), models.BookingConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := PaymentService{
		PaymentRepo: repositories.PaymentRepository{DB: db},
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		DB:          db,
		Relay:       relay,
	}
	actor := auth.NewActor(1, "admin", []string{"*"})

	payment, err := svc.Refund(context.Background(), 5, actor)
	if err != nil {
		t.Fatalf("refund error: %v", err)
	}
	if payment.Status != models.PaymentRefunded {
		t.Fatalf("status = %s, want REFUNDED", payment.Status)
	}
	if relay.count(notify.EventPaymentRefunded) != 1 {
		t.Fatal("expected exactly one payment_refunded event")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// A second refund attempt loses the compare-and-swap and changes nothing.
func TestRefundSecondAttemptFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingCancelled, models.PaymentPaid))
	mock.ExpectQuery("FROM payments WHERE booking_id=").WithArgs(int64(5)).
		WillReturnRows(paymentRow(9, 5, models.PaymentCaptured, "order_test_x", "pay_1"))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingCancelled, models.PaymentPaid))
	mock.ExpectExec("SET status='REFUNDED'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	svc := PaymentService{
		PaymentRepo: repositories.PaymentRepository{DB: db},
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		DB:          db,
	}
	actor := auth.NewActor(1, "admin", []string{"*"})

	if _, err := svc.Refund(context.Background(), 5, actor); !domain.IsInvalidState(err) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateIntentTestOrderFallback(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingConfirmed, models.PaymentPending))
	mock.ExpectQuery("FROM trips WHERE id=").WithArgs(int64(7)).
		WillReturnRows(tripRow(7, models.TripPublished))
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(9, 1))

	svc := PaymentService{
		PaymentRepo: repositories.PaymentRepository{DB: db},
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		DB:          db,
		Env:         "development",
	}
	actor := auth.NewActor(42, "user", nil) // the booking owner

	result, err := svc.CreateIntent(context.Background(), 5, actor)
	if err != nil {
		t.Fatalf("create intent error: %v", err)
	}
	if result.AmountMinor != 1500000 {
		t.Fatalf("amount = %d, want 1500000 (price x guests)", result.AmountMinor)
	}
	if len(result.OrderID) <= len(gateway.TestOrderPrefix) ||
		result.OrderID[:len(gateway.TestOrderPrefix)] != gateway.TestOrderPrefix {
		t.Fatalf("order id %q must carry the test prefix", result.OrderID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateIntentRejectsPaidBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(5)).
		WillReturnRows(bookingRow(5, models.BookingConfirmed, models.PaymentPaid))

	svc := PaymentService{
		PaymentRepo: repositories.PaymentRepository{DB: db},
		BookingRepo: repositories.BookingRepository{DB: db},
		TripRepo:    repositories.TripRepository{DB: db},
		DB:          db,
		Env:         "development",
	}
	actor := auth.NewActor(42, "user", nil)

	if _, err := svc.CreateIntent(context.Background(), 5, actor); !domain.IsInvalidState(err) {
		t.Fatalf("expected invalid state for a paid booking, got %v", err)
	}
}
