package services

import (
	"context"
	"time"

	"travelbackend/internal/domain/models"
)

// Bounded polling defaults matching the checkout client contract: fixed
// interval, capped attempt count.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollAttempts = 20
)

// PollOutcome is what a caller waiting on asynchronous confirmation sees.
type PollOutcome string

const (
	// PollPaid: the capture landed.
	PollPaid PollOutcome = "PAID"
	// PollFailed: the gateway reported a terminal failure.
	PollFailed PollOutcome = "FAILED"
	// PollPending: the attempt budget ran out without a terminal state. Not
	// an error; the payment may still resolve asynchronously.
	PollPending PollOutcome = "PENDING"
)

// BookingStatusFunc fetches the current settlement state of a booking.
type BookingStatusFunc func(bookingID int64) (models.PaymentStatus, error)

// PollPaymentStatus polls at a fixed interval until the booking settles or
// the attempt budget is exhausted. Fetch errors consume an attempt rather
// than aborting: the signal may simply not have arrived yet.
func PollPaymentStatus(ctx context.Context, bookingID int64, interval time.Duration, maxAttempts int, fetch BookingStatusFunc) (PollOutcome, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollAttempts
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return PollPending, ctx.Err()
		case <-ticker.C:
		}

		status, err := fetch(bookingID)
		if err != nil {
			continue
		}
		switch status {
		case models.PaymentPaid:
			return PollPaid, nil
		case models.PaymentFailed:
			return PollFailed, nil
		}
	}
	return PollPending, nil
}

// WaitForCapture is the service-level convenience over PollPaymentStatus.
func (s PaymentService) WaitForCapture(ctx context.Context, bookingID int64, interval time.Duration, maxAttempts int) (PollOutcome, error) {
	return PollPaymentStatus(ctx, bookingID, interval, maxAttempts, func(id int64) (models.PaymentStatus, error) {
		booking, err := s.BookingRepo.GetByID(id)
		if err != nil {
			return "", err
		}
		return booking.PaymentStatus, nil
	})
}
