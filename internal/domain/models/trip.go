package models

import "time"

// TripStatus is the publication state of a trip.
type TripStatus string

const (
	TripDraft         TripStatus = "DRAFT"
	TripPendingReview TripStatus = "PENDING_REVIEW"
	TripApproved      TripStatus = "APPROVED"
	TripPublished     TripStatus = "PUBLISHED"
	TripArchived      TripStatus = "ARCHIVED"
)

// Trip is a bookable offering with a publication lifecycle and fixed capacity.
// PriceMinor is stored in the gateway minor unit (paise) platform-wide.
type Trip struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	Status              TripStatus `json:"status"`
	Capacity            int        `json:"capacity"`
	ConfirmedGuestCount int        `json:"confirmedGuestCount"`
	PriceMinor          int64      `json:"priceMinor"`
	CreatedBy           int64      `json:"createdBy"`
	StartDate           string     `json:"startDate,omitempty"`
	CreatedAt           time.Time  `json:"createdAt,omitempty"`
	UpdatedAt           time.Time  `json:"updatedAt,omitempty"`
}

// TripAction is a publication state machine operation.
type TripAction string

const (
	TripActionSubmit  TripAction = "submit"
	TripActionApprove TripAction = "approve"
	TripActionReject  TripAction = "reject"
	TripActionPublish TripAction = "publish"
	TripActionArchive TripAction = "archive"
)

type tripTransition struct {
	from TripStatus
	to   TripStatus
}

// Closed transition table. Anything not listed is rejected.
var tripTransitions = map[TripAction]tripTransition{
	TripActionSubmit:  {TripDraft, TripPendingReview},
	TripActionApprove: {TripPendingReview, TripApproved},
	TripActionReject:  {TripPendingReview, TripDraft},
	TripActionPublish: {TripApproved, TripPublished},
	TripActionArchive: {TripPublished, TripArchived},
}

// TripTransition resolves an action against a current status. ok is false when
// the action does not exist or the source state does not match.
func TripTransition(from TripStatus, action TripAction) (TripStatus, bool) {
	tr, exists := tripTransitions[action]
	if !exists || tr.from != from {
		return from, false
	}
	return tr.to, true
}

// Editable reports whether trip content may still be modified.
func (t Trip) Editable() bool {
	return t.Status == TripDraft
}

// Bookable reports whether the trip accepts new booking requests.
func (t Trip) Bookable() bool {
	return t.Status == TripPublished
}

// RemainingCapacity is never negative under the admission invariant.
func (t Trip) RemainingCapacity() int {
	left := t.Capacity - t.ConfirmedGuestCount
	if left < 0 {
		return 0
	}
	return left
}
