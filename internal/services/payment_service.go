package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"travelbackend/internal/auth"
	intconfig "travelbackend/internal/config"
	"travelbackend/internal/domain"
	"travelbackend/internal/domain/models"
	"travelbackend/internal/gateway"
	"travelbackend/internal/notify"
	"travelbackend/internal/repositories"
	"travelbackend/internal/utils"
)

const providerName = "razorpay"

// PaymentService implements the intent/verification/refund protocol. All
// amounts are paise end to end; the gateway boundary needs no conversion.
type PaymentService struct {
	PaymentRepo repositories.PaymentRepository
	BookingRepo repositories.BookingRepository
	TripRepo    repositories.TripRepository
	DB          *sql.DB
	Gateway     *gateway.Client
	Relay       notify.Relay
	Env         string
	RequestID   string
}

func (s PaymentService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s PaymentService) relay() notify.Relay {
	if s.Relay != nil {
		return s.Relay
	}
	return notify.NopRelay{}
}

func (s PaymentService) production() bool {
	return s.Env == "production"
}

// IntentResult is what the checkout client needs to open the gateway widget.
type IntentResult struct {
	PaymentID   int64  `json:"paymentId"`
	OrderID     string `json:"orderId"`
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
}

// CreateIntent opens a payment intent for a booking that is not yet paid.
// Outside production, missing gateway credentials fall back to a test order
// id so reconciliation can be exercised deterministically.
func (s PaymentService) CreateIntent(ctx context.Context, bookingID int64, actor auth.Actor) (IntentResult, error) {
	booking, err := s.BookingRepo.GetByID(bookingID)
	if err != nil {
		return IntentResult{}, err
	}
	if booking.UserID != actor.UserID {
		if err := auth.Require(actor, auth.PermPaymentRecord); err != nil {
			return IntentResult{}, err
		}
	}
	if booking.PaymentStatus == models.PaymentPaid {
		return IntentResult{}, domain.InvalidStateError{Resource: "booking", Msg: "booking is already paid"}
	}
	if booking.Status != models.BookingRequested && booking.Status != models.BookingConfirmed {
		return IntentResult{}, domain.InvalidStateError{
			Resource: "booking",
			State:    string(booking.Status),
			Msg:      "booking is not payable in its current state",
		}
	}

	trip, err := s.TripRepo.GetByID(booking.TripID)
	if err != nil {
		return IntentResult{}, err
	}
	amount := trip.PriceMinor * int64(booking.Guests)
	if amount <= 0 {
		return IntentResult{}, domain.InternalError{Msg: "trip price misconfigured"}
	}

	var orderID string
	if s.Gateway != nil && s.Gateway.Configured() {
		order, err := s.Gateway.CreateOrder(ctx, amount, "INR", strconv.FormatInt(bookingID, 10))
		if err != nil {
			return IntentResult{}, err
		}
		orderID = order.ID
	} else {
		if s.production() {
			return IntentResult{}, domain.InternalError{Msg: "payment provider not configured"}
		}
		orderID = gateway.TestOrderPrefix + uuid.NewString()
		utils.LogEvent(s.RequestID, "payment", "intent", "using test order "+orderID)
	}

	id, err := s.PaymentRepo.Create(models.Payment{
		BookingID:       bookingID,
		AmountMinor:     amount,
		Provider:        providerName,
		Method:          models.MethodGateway,
		ProviderOrderID: orderID,
	})
	if err != nil {
		return IntentResult{}, err
	}

	utils.LogEvent(s.RequestID, "payment", "intent",
		"payment_id="+strconv.FormatInt(id, 10)+" booking_id="+strconv.FormatInt(bookingID, 10))
	return IntentResult{
		PaymentID:   id,
		OrderID:     orderID,
		AmountMinor: amount,
		Currency:    "INR",
	}, nil
}

// Verify reconciles a checkout callback. A forged signature changes nothing;
// a replayed valid callback is a no-op success with no second notification.
func (s PaymentService) Verify(ctx context.Context, orderID, paymentID, signature string) (models.Payment, error) {
	orderID = strings.TrimSpace(orderID)
	paymentID = strings.TrimSpace(paymentID)
	if orderID == "" {
		return models.Payment{}, domain.ValidationError{Field: "order_id", Msg: "missing"}
	}

	testOrder := strings.HasPrefix(orderID, gateway.TestOrderPrefix) && !s.production()
	if testOrder {
		if paymentID == "" {
			paymentID = "pay_sim_" + uuid.NewString()
		}
	} else {
		if paymentID == "" || signature == "" {
			return models.Payment{}, domain.ValidationError{Field: "payment", Msg: "missing payment id or signature"}
		}
		if s.Gateway == nil || !s.Gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
			return models.Payment{}, domain.SignatureError{OrderID: orderID}
		}
	}

	return s.applyCapture(ctx, orderID, paymentID)
}

// applyCapture is the shared idempotent capture path for checkout callbacks
// and webhooks. The guarded UPDATE plus the unique provider_payment_id key
// make concurrent duplicates collapse to exactly one capture.
func (s PaymentService) applyCapture(ctx context.Context, orderID, providerPaymentID string) (models.Payment, error) {
	tx, err := s.db().Begin()
	if err != nil {
		return models.Payment{}, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	captured, err := s.PaymentRepo.Capture(tx, orderID, providerPaymentID)
	if err != nil {
		return models.Payment{}, err
	}

	payment, err := s.PaymentRepo.GetByOrderIDQ(tx, orderID)
	if err != nil {
		return models.Payment{}, err
	}

	if !captured {
		// Lost the guarded update: decide whether this is a duplicate
		// delivery (fine) or a genuinely wrong state.
		switch {
		case payment.Status == models.PaymentCaptured && payment.ProviderPaymentID == providerPaymentID:
			utils.LogEvent(s.RequestID, "payment", "verify", "duplicate capture ignored order="+orderID)
			return payment, nil
		case payment.Status == models.PaymentCaptured:
			return models.Payment{}, domain.InvalidStateError{Resource: "payment", Msg: "payment captured under a different provider payment id"}
		default:
			return models.Payment{}, domain.InvalidStateError{
				Resource: "payment",
				State:    string(payment.Status),
				Msg:      "payment is not capturable",
			}
		}
	}

	if err := s.BookingRepo.UpdatePaymentStatus(tx, payment.BookingID, models.PaymentPaid); err != nil {
		return models.Payment{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Payment{}, domain.InternalError{Err: err}
	}

	utils.LogEvent(s.RequestID, "payment", "capture",
		"order="+orderID+" booking_id="+strconv.FormatInt(payment.BookingID, 10))
	s.relay().Publish(ctx, notify.Event{
		Type:        notify.EventPaymentCaptured,
		BookingID:   payment.BookingID,
		AmountMinor: payment.AmountMinor,
	})

	payment.Status = models.PaymentCaptured
	payment.ProviderPaymentID = providerPaymentID
	return payment, nil
}

// webhookEvent is the subset of the gateway's event envelope we act on.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook verifies the raw body signature and dispatches the event
// through the same idempotent capture path the redirect handler uses.
// Unknown event types are acknowledged and ignored.
func (s PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.Gateway == nil || !s.Gateway.VerifyWebhookSignature(body, signature) {
		return domain.SignatureError{}
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return domain.ValidationError{Field: "payload", Msg: "invalid JSON", Err: err}
	}

	entity := ev.Payload.Payment.Entity
	switch ev.Event {
	case "payment.captured":
		if entity.OrderID == "" || entity.ID == "" {
			return domain.ValidationError{Field: "payload", Msg: "missing payment identifiers"}
		}
		_, err := s.applyCapture(ctx, entity.OrderID, entity.ID)
		if err != nil && domain.IsInvalidState(err) {
			// replays after a state change are acknowledged, not retried
			utils.LogEvent(s.RequestID, "payment", "webhook", "stale capture event ignored: "+err.Error())
			return nil
		}
		return err
	case "payment.failed":
		return s.markFailed(entity.OrderID)
	default:
		return nil
	}
}

func (s PaymentService) markFailed(orderID string) error {
	if orderID == "" {
		return domain.ValidationError{Field: "order_id", Msg: "missing"}
	}
	tx, err := s.db().Begin()
	if err != nil {
		return domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	moved, err := s.PaymentRepo.MarkFailed(tx, orderID)
	if err != nil {
		return err
	}
	if !moved {
		// already terminal; nothing to do
		return tx.Commit()
	}
	payment, err := s.PaymentRepo.GetByOrderIDQ(tx, orderID)
	if err != nil {
		return err
	}
	if err := s.BookingRepo.UpdatePaymentStatus(tx, payment.BookingID, models.PaymentFailed); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.InternalError{Err: err}
	}
	utils.LogEvent(s.RequestID, "payment", "failed", "order="+orderID)
	return nil
}

// RecordManual records an offline payment (UPI/CASH/BANK_TRANSFER) bypassing
// the gateway. The one-authoritative-payment invariant is enforced by the
// guarded insert, not a prior read.
func (s PaymentService) RecordManual(ctx context.Context, bookingID, amountMinor int64, method models.PaymentMethod, transactionRef, proofRef string, actor auth.Actor) (models.Payment, error) {
	if err := auth.Require(actor, auth.PermPaymentRecord); err != nil {
		return models.Payment{}, err
	}
	if !models.ManualMethod(method) {
		return models.Payment{}, domain.ValidationError{Field: "method", Msg: "must be UPI, CASH or BANK_TRANSFER"}
	}
	if amountMinor <= 0 {
		return models.Payment{}, domain.ValidationError{Field: "amount", Msg: "must be positive"}
	}

	booking, err := s.BookingRepo.GetByID(bookingID)
	if err != nil {
		return models.Payment{}, err
	}
	if booking.PaymentStatus == models.PaymentPaid {
		return models.Payment{}, domain.InvalidStateError{Resource: "booking", Msg: "booking is already paid"}
	}

	orderRef := "MANUAL_" + uuid.NewString()
	paymentRef := strings.TrimSpace(transactionRef)
	if paymentRef == "" {
		paymentRef = orderRef
	}

	tx, err := s.db().Begin()
	if err != nil {
		return models.Payment{}, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	id, inserted, err := s.PaymentRepo.CreateCaptured(tx, models.Payment{
		BookingID:         bookingID,
		AmountMinor:       amountMinor,
		Provider:          "manual",
		Method:            method,
		ProviderOrderID:   orderRef,
		ProviderPaymentID: paymentRef,
		ProofRef:          proofRef,
	})
	if err != nil {
		return models.Payment{}, err
	}
	if !inserted {
		return models.Payment{}, domain.InvalidStateError{Resource: "booking", Msg: "a captured payment already exists for this booking"}
	}

	if err := s.BookingRepo.UpdatePaymentStatus(tx, bookingID, models.PaymentPaid); err != nil {
		return models.Payment{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Payment{}, domain.InternalError{Err: err}
	}

	utils.LogEvent(s.RequestID, "payment", "manual",
		"booking_id="+strconv.FormatInt(bookingID, 10)+" method="+string(method))
	s.relay().Publish(ctx, notify.Event{
		Type:        notify.EventPaymentCaptured,
		BookingID:   bookingID,
		AmountMinor: amountMinor,
	})

	return models.Payment{
		ID:                id,
		BookingID:         bookingID,
		AmountMinor:       amountMinor,
		Provider:          "manual",
		Method:            method,
		Status:            models.PaymentCaptured,
		ProviderOrderID:   orderRef,
		ProviderPaymentID: paymentRef,
		ProofRef:          proofRef,
	}, nil
}

// Refund reverses the captured payment, cancels the booking, and releases
// the slot a confirmed booking held. All three ride one transaction; a
// second attempt fails on the payment compare-and-swap and changes nothing.
func (s PaymentService) Refund(ctx context.Context, bookingID int64, actor auth.Actor) (models.Payment, error) {
	if err := auth.Require(actor, auth.PermPaymentRefund); err != nil {
		return models.Payment{}, err
	}

	booking, err := s.BookingRepo.GetByID(bookingID)
	if err != nil {
		return models.Payment{}, err
	}
	if booking.PaymentStatus != models.PaymentPaid {
		return models.Payment{}, domain.InvalidStateError{Resource: "booking", Msg: "booking has no settled payment to refund"}
	}

	payment, found, err := s.PaymentRepo.GetCapturedByBooking(s.db(), bookingID)
	if err != nil {
		return models.Payment{}, err
	}
	if !found {
		return models.Payment{}, domain.InvalidStateError{Resource: "payment", Msg: "no refundable payment found"}
	}

	// Gateway-routed money goes back through the gateway before local state
	// moves; transport failures abort with no state change and may be
	// retried by the caller.
	refundID := "rfnd_local_" + uuid.NewString()
	if payment.Method == models.MethodGateway &&
		!strings.HasPrefix(payment.ProviderOrderID, gateway.TestOrderPrefix) &&
		s.Gateway != nil && s.Gateway.Configured() {
		refund, err := s.Gateway.RefundPayment(ctx, payment.ProviderPaymentID)
		if err != nil {
			return models.Payment{}, err
		}
		refundID = refund.ID
	}

	tx, err := s.db().Begin()
	if err != nil {
		return models.Payment{}, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	locked, err := s.BookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		return models.Payment{}, err
	}

	moved, err := s.PaymentRepo.MarkRefunded(tx, payment.ID, refundID)
	if err != nil {
		return models.Payment{}, err
	}
	if !moved {
		return models.Payment{}, domain.InvalidStateError{Resource: "payment", Msg: "payment already refunded"}
	}

	if locked.Status == models.BookingConfirmed {
		released, err := s.TripRepo.ReleaseCapacity(tx, locked.TripID, locked.Guests)
		if err != nil {
			return models.Payment{}, err
		}
		if !released {
			return models.Payment{}, domain.InternalError{Msg: "confirmed counter out of sync"}
		}
	}
	if locked.Status == models.BookingConfirmed || locked.Status == models.BookingRequested {
		swapped, err := s.BookingRepo.UpdateStatus(tx, bookingID, locked.Status, models.BookingCancelled)
		if err != nil {
			return models.Payment{}, err
		}
		if !swapped {
			return models.Payment{}, domain.InvalidStateError{Resource: "booking", Msg: "booking state changed concurrently"}
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Payment{}, domain.InternalError{Err: err}
	}

	utils.LogEvent(s.RequestID, "payment", "refund",
		"booking_id="+strconv.FormatInt(bookingID, 10)+" payment_id="+strconv.FormatInt(payment.ID, 10))
	s.relay().Publish(ctx, notify.Event{
		Type:        notify.EventPaymentRefunded,
		BookingID:   bookingID,
		AmountMinor: payment.AmountMinor,
	})

	payment.Status = models.PaymentRefunded
	payment.ProviderRefundID = refundID
	return payment, nil
}

// StatusResult represents the observable settlement state, including the
// legitimate "intent created, never resolved" pending case.
type StatusResult struct {
	BookingID     int64                `json:"bookingId"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	Payments      []models.Payment     `json:"payments,omitempty"`
}

// Status backs the bounded client-side poller.
func (s PaymentService) Status(bookingID int64, actor auth.Actor) (StatusResult, error) {
	booking, err := s.BookingRepo.GetByID(bookingID)
	if err != nil {
		return StatusResult{}, err
	}
	if booking.UserID != actor.UserID {
		if err := auth.Require(actor, auth.PermPaymentView); err != nil {
			return StatusResult{}, err
		}
	}
	payments, err := s.PaymentRepo.ListByBooking(bookingID)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{
		BookingID:     bookingID,
		PaymentStatus: booking.PaymentStatus,
		Payments:      payments,
	}, nil
}

// History lists recent payments for admins.
func (s PaymentService) History(limit int, actor auth.Actor) ([]models.Payment, error) {
	if err := auth.Require(actor, auth.PermPaymentView); err != nil {
		return nil, err
	}
	return s.PaymentRepo.ListAll(limit)
}
