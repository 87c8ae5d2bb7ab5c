package services

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"travelbackend/internal/auth"
	intconfig "travelbackend/internal/config"
	"travelbackend/internal/domain"
	"travelbackend/internal/domain/models"
	"travelbackend/internal/notify"
	"travelbackend/internal/repositories"
	"travelbackend/internal/utils"
)

// BookingService is the admission controller. Capacity is enforced only at
// confirmation; intake is waitlist-like and unbounded.
type BookingService struct {
	BookingRepo repositories.BookingRepository
	TripRepo    repositories.TripRepository
	PaymentRepo repositories.PaymentRepository
	DB          *sql.DB
	Relay       notify.Relay
	RequestID   string
}

func (s BookingService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s BookingService) relay() notify.Relay {
	if s.Relay != nil {
		return s.Relay
	}
	return notify.NopRelay{}
}

// CreateBooking validates intake and records the request. No capacity check
// here: requests may outnumber capacity.
func (s BookingService) CreateBooking(requester auth.Actor, tripID int64, guests int, startDate string, details []models.GuestDetail) (models.Booking, error) {
	if guests < 1 {
		return models.Booking{}, domain.ValidationError{Field: "guests", Msg: "must be at least 1"}
	}
	if strings.TrimSpace(startDate) == "" {
		return models.Booking{}, domain.ValidationError{Field: "start_date", Msg: "required"}
	}
	if _, err := utils.ParseDate(startDate); err != nil {
		return models.Booking{}, domain.ValidationError{Field: "start_date", Msg: "expected YYYY-MM-DD", Err: err}
	}

	trip, err := s.TripRepo.GetByID(tripID)
	if err != nil {
		return models.Booking{}, err
	}
	if !trip.Bookable() {
		return models.Booking{}, domain.InvalidStateError{
			Resource: "trip",
			State:    string(trip.Status),
			Msg:      "trip is not open for booking",
		}
	}

	dup, err := s.BookingRepo.HasActiveForUserTrip(requester.UserID, tripID)
	if err != nil {
		return models.Booking{}, err
	}
	if dup {
		return models.Booking{}, domain.ConflictError{Resource: "booking", Msg: "you already have an active booking for this trip"}
	}

	id, err := s.BookingRepo.Create(models.Booking{
		TripID:       tripID,
		UserID:       requester.UserID,
		Guests:       guests,
		StartDate:    strings.TrimSpace(startDate),
		GuestDetails: details,
	})
	if err != nil {
		return models.Booking{}, err
	}
	utils.LogEvent(s.RequestID, "booking", "create",
		"booking_id="+strconv.FormatInt(id, 10)+" trip_id="+strconv.FormatInt(tripID, 10))
	return s.BookingRepo.GetByID(id)
}

// Approve is the core correctness point of the subsystem: the capacity
// re-check and the confirmed-count increment run as one atomic unit. The
// booking row lock serializes rival approvals of the same booking; the
// conditional UPDATE on the trip makes concurrent approvals of different
// bookings on the same trip unable to jointly overbook.
func (s BookingService) Approve(bookingID int64, actor auth.Actor) (models.Booking, error) {
	if err := auth.Require(actor, auth.PermBookingApprove); err != nil {
		return models.Booking{}, err
	}

	tx, err := s.db().Begin()
	if err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	booking, err := s.BookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.Status != models.BookingRequested {
		return models.Booking{}, domain.InvalidStateError{
			Resource: "booking",
			State:    string(booking.Status),
			Msg:      "only requested bookings can be approved",
		}
	}

	reserved, err := s.TripRepo.ReserveCapacity(tx, booking.TripID, booking.Guests)
	if err != nil {
		return models.Booking{}, err
	}
	if !reserved {
		// rollback leaves the booking REQUESTED and the counter untouched
		return models.Booking{}, domain.CapacityFullError{TripID: booking.TripID}
	}

	swapped, err := s.BookingRepo.UpdateStatus(tx, bookingID, models.BookingRequested, models.BookingConfirmed)
	if err != nil {
		return models.Booking{}, err
	}
	if !swapped {
		return models.Booking{}, domain.InvalidStateError{Resource: "booking", Msg: "booking state changed concurrently"}
	}

	if err := tx.Commit(); err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}

	utils.LogEvent(s.RequestID, "booking", "approve", "booking_id="+strconv.FormatInt(bookingID, 10))
	s.relay().Publish(context.Background(), notify.Event{
		Type:      notify.EventBookingConfirmed,
		BookingID: bookingID,
		TripID:    booking.TripID,
		UserID:    booking.UserID,
	})

	booking.Status = models.BookingConfirmed
	return booking, nil
}

// Reject is only valid from REQUESTED and has no capacity effect.
func (s BookingService) Reject(bookingID int64, actor auth.Actor) (models.Booking, error) {
	if err := auth.Require(actor, auth.PermBookingReject); err != nil {
		return models.Booking{}, err
	}

	booking, err := s.BookingRepo.GetByID(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	swapped, err := s.BookingRepo.UpdateStatus(s.db(), bookingID, models.BookingRequested, models.BookingRejected)
	if err != nil {
		return models.Booking{}, err
	}
	if !swapped {
		return models.Booking{}, domain.InvalidStateError{
			Resource: "booking",
			State:    string(booking.Status),
			Msg:      "only requested bookings can be rejected",
		}
	}
	utils.LogEvent(s.RequestID, "booking", "reject", "booking_id="+strconv.FormatInt(bookingID, 10))
	booking.Status = models.BookingRejected
	return booking, nil
}

// Cancel lets the owner back out while still REQUESTED, or while CONFIRMED
// with no captured payment. Once money was captured the refund path is the
// only exit. A confirmed cancellation releases its capacity slot atomically
// with the status change.
func (s BookingService) Cancel(bookingID int64, actor auth.Actor) (models.Booking, error) {
	tx, err := s.db().Begin()
	if err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	booking, err := s.BookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.UserID != actor.UserID {
		if err := auth.Require(actor, auth.PermBookingApprove); err != nil {
			return models.Booking{}, err
		}
	}

	switch booking.Status {
	case models.BookingRequested:
		// no slot held yet
	case models.BookingConfirmed:
		_, captured, err := s.PaymentRepo.GetCapturedByBooking(tx, bookingID)
		if err != nil {
			return models.Booking{}, err
		}
		if captured {
			return models.Booking{}, domain.InvalidStateError{
				Resource: "booking",
				Msg:      "booking has a captured payment; use the refund flow",
			}
		}
		released, err := s.TripRepo.ReleaseCapacity(tx, booking.TripID, booking.Guests)
		if err != nil {
			return models.Booking{}, err
		}
		if !released {
			return models.Booking{}, domain.InternalError{Msg: "confirmed counter out of sync"}
		}
	default:
		return models.Booking{}, domain.InvalidStateError{
			Resource: "booking",
			State:    string(booking.Status),
			Msg:      "booking cannot be cancelled in its current state",
		}
	}

	swapped, err := s.BookingRepo.UpdateStatus(tx, bookingID, booking.Status, models.BookingCancelled)
	if err != nil {
		return models.Booking{}, err
	}
	if !swapped {
		return models.Booking{}, domain.InvalidStateError{Resource: "booking", Msg: "booking state changed concurrently"}
	}

	if err := tx.Commit(); err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}

	utils.LogEvent(s.RequestID, "booking", "cancel", "booking_id="+strconv.FormatInt(bookingID, 10))
	booking.Status = models.BookingCancelled
	return booking, nil
}

// Complete marks a confirmed booking done at trip close-out. No capacity
// accounting: the trip is ending.
func (s BookingService) Complete(bookingID int64, actor auth.Actor) (models.Booking, error) {
	if err := auth.Require(actor, auth.PermBookingComplete); err != nil {
		return models.Booking{}, err
	}

	booking, err := s.BookingRepo.GetByID(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	swapped, err := s.BookingRepo.UpdateStatus(s.db(), bookingID, models.BookingConfirmed, models.BookingCompleted)
	if err != nil {
		return models.Booking{}, err
	}
	if !swapped {
		return models.Booking{}, domain.InvalidStateError{
			Resource: "booking",
			State:    string(booking.Status),
			Msg:      "only confirmed bookings can be completed",
		}
	}
	utils.LogEvent(s.RequestID, "booking", "complete", "booking_id="+strconv.FormatInt(bookingID, 10))
	booking.Status = models.BookingCompleted
	return booking, nil
}

// ListMine returns the requester's bookings with guest details attached.
func (s BookingService) ListMine(actor auth.Actor) ([]models.Booking, error) {
	bookings, err := s.BookingRepo.ListByUser(actor.UserID)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		guests, err := s.BookingRepo.GetGuests(bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].GuestDetails = guests
	}
	return bookings, nil
}

// ListForTrip is the manager view of a trip's bookings.
func (s BookingService) ListForTrip(tripID int64, actor auth.Actor) ([]models.Booking, error) {
	if err := auth.Require(actor, auth.PermBookingView); err != nil {
		return nil, err
	}
	return s.BookingRepo.ListByTrip(tripID)
}

// Get returns a booking visible to its owner or to holders of booking:view.
func (s BookingService) Get(bookingID int64, actor auth.Actor) (models.Booking, error) {
	booking, err := s.BookingRepo.GetByID(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.UserID != actor.UserID {
		if err := auth.Require(actor, auth.PermBookingView); err != nil {
			return models.Booking{}, err
		}
	}
	guests, err := s.BookingRepo.GetGuests(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	booking.GuestDetails = guests
	return booking, nil
}
