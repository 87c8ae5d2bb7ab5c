package services

import (
	"strconv"
	"strings"

	"travelbackend/internal/auth"
	"travelbackend/internal/domain"
	"travelbackend/internal/domain/models"
	"travelbackend/internal/repositories"
	"travelbackend/internal/utils"
)

// TripService owns the publication state machine. Transitions are
// compare-and-swap updates so two racing actors cannot both move the same
// trip.
type TripService struct {
	TripRepo  repositories.TripRepository
	RequestID string
}

// CreateTrip starts a trip in DRAFT.
func (s TripService) CreateTrip(actor auth.Actor, t models.Trip) (models.Trip, error) {
	if err := auth.Require(actor, auth.PermTripCreate); err != nil {
		return models.Trip{}, err
	}
	if strings.TrimSpace(t.Title) == "" {
		return models.Trip{}, domain.ValidationError{Field: "title", Msg: "required"}
	}
	if t.Capacity <= 0 {
		return models.Trip{}, domain.ValidationError{Field: "capacity", Msg: "must be positive"}
	}
	if t.PriceMinor < 0 {
		return models.Trip{}, domain.ValidationError{Field: "price", Msg: "must not be negative"}
	}
	t.CreatedBy = actor.UserID

	id, err := s.TripRepo.Create(t)
	if err != nil {
		return models.Trip{}, err
	}
	utils.LogEvent(s.RequestID, "trip", "create", "trip_id="+strconv.FormatInt(id, 10))
	return s.TripRepo.GetByID(id)
}

// UpdateTrip edits content, permitted only while DRAFT. The owner may edit
// their own draft; others need trip:edit.
func (s TripService) UpdateTrip(actor auth.Actor, t models.Trip) (models.Trip, error) {
	existing, err := s.TripRepo.GetByID(t.ID)
	if err != nil {
		return models.Trip{}, err
	}
	if existing.CreatedBy != actor.UserID {
		if err := auth.Require(actor, auth.PermTripEdit); err != nil {
			return models.Trip{}, err
		}
	}
	if !existing.Editable() {
		return models.Trip{}, domain.InvalidStateError{Resource: "trip", State: string(existing.Status), Msg: "trip can only be edited while in draft"}
	}
	if t.Capacity <= 0 {
		return models.Trip{}, domain.ValidationError{Field: "capacity", Msg: "must be positive"}
	}

	ok, err := s.TripRepo.UpdateContent(t)
	if err != nil {
		return models.Trip{}, err
	}
	if !ok {
		// lost a race with a submit
		return models.Trip{}, domain.InvalidStateError{Resource: "trip", Msg: "trip left draft state"}
	}
	return s.TripRepo.GetByID(t.ID)
}

func (s TripService) Submit(tripID int64, actor auth.Actor) (models.Trip, error) {
	return s.transition(tripID, actor, auth.PermTripSubmit, models.TripActionSubmit)
}

func (s TripService) Approve(tripID int64, actor auth.Actor) (models.Trip, error) {
	return s.transition(tripID, actor, auth.PermTripApprove, models.TripActionApprove)
}

func (s TripService) Reject(tripID int64, actor auth.Actor) (models.Trip, error) {
	return s.transition(tripID, actor, auth.PermTripApprove, models.TripActionReject)
}

func (s TripService) Publish(tripID int64, actor auth.Actor) (models.Trip, error) {
	return s.transition(tripID, actor, auth.PermTripPublish, models.TripActionPublish)
}

func (s TripService) Archive(tripID int64, actor auth.Actor) (models.Trip, error) {
	return s.transition(tripID, actor, auth.PermTripArchive, models.TripActionArchive)
}

// transition checks the permission first so FORBIDDEN never leaks whether
// the trip exists or what state it is in.
func (s TripService) transition(tripID int64, actor auth.Actor, perm auth.Permission, action models.TripAction) (models.Trip, error) {
	if err := auth.Require(actor, perm); err != nil {
		return models.Trip{}, err
	}

	trip, err := s.TripRepo.GetByID(tripID)
	if err != nil {
		return models.Trip{}, err
	}

	next, ok := models.TripTransition(trip.Status, action)
	if !ok {
		return models.Trip{}, domain.InvalidStateError{
			Resource: "trip",
			State:    string(trip.Status),
			Msg:      "cannot " + string(action) + " trip in state " + string(trip.Status),
		}
	}

	swapped, err := s.TripRepo.UpdateStatus(tripID, trip.Status, next)
	if err != nil {
		return models.Trip{}, err
	}
	if !swapped {
		// another actor moved the trip between read and write
		return models.Trip{}, domain.InvalidStateError{Resource: "trip", Msg: "trip state changed concurrently"}
	}

	utils.LogEvent(s.RequestID, "trip", string(action),
		"trip_id="+strconv.FormatInt(tripID, 10)+" "+string(trip.Status)+"->"+string(next))

	trip.Status = next
	return trip, nil
}

// ListPublic returns only PUBLISHED trips.
func (s TripService) ListPublic() ([]models.Trip, error) {
	return s.TripRepo.List(models.TripPublished)
}

// ListInternal returns every trip regardless of state, for internal roles.
func (s TripService) ListInternal(actor auth.Actor) ([]models.Trip, error) {
	if err := auth.Require(actor, auth.PermTripViewInternal); err != nil {
		return nil, err
	}
	return s.TripRepo.List("")
}

// GetVisible returns the trip if the actor may see it: published trips are
// public, the rest require internal view.
func (s TripService) GetVisible(tripID int64, actor auth.Actor) (models.Trip, error) {
	trip, err := s.TripRepo.GetByID(tripID)
	if err != nil {
		return models.Trip{}, err
	}
	if trip.Status != models.TripPublished && trip.CreatedBy != actor.UserID {
		if err := auth.Require(actor, auth.PermTripViewInternal); err != nil {
			return models.Trip{}, err
		}
	}
	return trip, nil
}

// ReconcileCapacity recomputes the confirmed counter from the bookings
// aggregate, for drift repair after out-of-band corrections.
func (s TripService) ReconcileCapacity(tripID int64, actor auth.Actor) (models.Trip, error) {
	if err := auth.Require(actor, auth.PermTripViewInternal); err != nil {
		return models.Trip{}, err
	}
	if err := s.TripRepo.Reconcile(tripID); err != nil {
		return models.Trip{}, err
	}
	return s.TripRepo.GetByID(tripID)
}
