package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"travelbackend/internal/auth"
	"travelbackend/internal/domain"
	"travelbackend/internal/domain/models"
	"travelbackend/internal/repositories"
)

var tripCols = []string{"id", "title", "status", "capacity", "confirmed_guest_count", "price_minor", "created_by", "start_date"}

func tripRow(id int64, status models.TripStatus) *sqlmock.Rows {
	return sqlmock.NewRows(tripCols).AddRow(id, "Himalayan Trek", status, 10, 0, 500000, 1, "2026-10-01")
}

func TestTripSubmitMovesDraftToPendingReview(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM trips WHERE id=").WithArgs(int64(7)).
		WillReturnRows(tripRow(7, models.TripDraft))
	mock.ExpectExec("UPDATE trips SET status=").
		WithArgs(models.TripPendingReview, int64(7), models.TripDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := TripService{TripRepo: repositories.TripRepository{DB: db}}
	actor := auth.NewActor(1, "manager", []string{"trip:submit"})

	trip, err := svc.Submit(7, actor)
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if trip.Status != models.TripPendingReview {
		t.Fatalf("status = %s, want PENDING_REVIEW", trip.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTripPublishRejectedFromDraft(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM trips WHERE id=").WithArgs(int64(7)).
		WillReturnRows(tripRow(7, models.TripDraft))

	svc := TripService{TripRepo: repositories.TripRepository{DB: db}}
	actor := auth.NewActor(1, "manager", []string{"trip:publish"})

	_, err = svc.Publish(7, actor)
	if !domain.IsInvalidState(err) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// The permission check must run before anything touches the database, so a
// forbidden caller learns nothing about the trip.
func TestTripTransitionForbiddenBeforeAnyRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := TripService{TripRepo: repositories.TripRepository{DB: db}}
	actor := auth.NewActor(2, "user", nil)

	if _, err := svc.Approve(7, actor); !domain.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("database was touched before the permission check: %v", err)
	}
}

func TestTripTransitionLostRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM trips WHERE id=").WithArgs(int64(7)).
		WillReturnRows(tripRow(7, models.TripPendingReview))
	// another actor moved the trip between read and write
	mock.ExpectExec("UPDATE trips SET status=").
		WillReturnResult(sqlmock.NewResult(0, 0))

	svc := TripService{TripRepo: repositories.TripRepository{DB: db}}
	actor := auth.NewActor(1, "reviewer", []string{"trip:approve"})

	if _, err := svc.Approve(7, actor); !domain.IsInvalidState(err) {
		t.Fatalf("expected invalid state on lost race, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateTripValidation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := TripService{TripRepo: repositories.TripRepository{DB: db}}
	actor := auth.NewActor(1, "manager", []string{"trip:create"})

	if _, err := svc.CreateTrip(actor, models.Trip{Title: "", Capacity: 5}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for empty title, got %v", err)
	}
	if _, err := svc.CreateTrip(actor, models.Trip{Title: "X", Capacity: 0}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for zero capacity, got %v", err)
	}
}
