package models

import "time"

// BookingStatus is the admission state of a booking.
type BookingStatus string

const (
	BookingRequested BookingStatus = "REQUESTED"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingRejected  BookingStatus = "REJECTED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// PaymentStatus tracks payment settlement on the booking itself.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// GuestDetail is one traveler on a booking. The first entry is the requester.
type GuestDetail struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Booking is a guest's reservation request against a trip, independent of
// payment. Bookings are never deleted; cancellation is a status.
type Booking struct {
	ID            int64         `json:"id"`
	TripID        int64         `json:"tripId"`
	UserID        int64         `json:"userId"`
	Status        BookingStatus `json:"status"`
	Guests        int           `json:"guests"`
	StartDate     string        `json:"startDate"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	GuestDetails  []GuestDetail `json:"guestDetails,omitempty"`
	CreatedAt     time.Time     `json:"createdAt,omitempty"`
	UpdatedAt     time.Time     `json:"updatedAt,omitempty"`
}

// Allowed booking transitions. Everything else is rejected.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingRequested: {BookingConfirmed, BookingRejected, BookingCancelled},
	BookingConfirmed: {BookingCancelled, BookingCompleted},
}

// BookingTransitionAllowed reports whether status can move from one state to
// another.
func BookingTransitionAllowed(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Active reports whether the booking still occupies the user's slot for the
// trip (used by the one-active-booking-per-trip guard).
func (b Booking) Active() bool {
	return b.Status == BookingRequested || b.Status == BookingConfirmed
}
