package repositories

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestReserveCapacityConditionalUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	repo := TripRepository{DB: db}

	mock.ExpectExec("UPDATE trips").
		WithArgs(3, int64(7), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.ReserveCapacity(db, 7, 3)
	if err != nil {
		t.Fatalf("reserve error: %v", err)
	}
	if !ok {
		t.Fatal("expected reservation to succeed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReserveCapacityFullAffectsNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	repo := TripRepository{DB: db}

	// the guarded predicate fails: the increment would overbook
	mock.ExpectExec("UPDATE trips").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.ReserveCapacity(db, 7, 8)
	if err != nil {
		t.Fatalf("reserve error: %v", err)
	}
	if ok {
		t.Fatal("reservation over capacity must be refused")
	}
}

// The release floor guard keeps the counter from going negative on a
// double release.
func TestReleaseCapacityFloorGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	repo := TripRepository{DB: db}

	mock.ExpectExec("UPDATE trips").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.ReleaseCapacity(db, 7, 5)
	if err != nil {
		t.Fatalf("release error: %v", err)
	}
	if ok {
		t.Fatal("release below the floor must be refused")
	}
}

func TestUpdateStatusCompareAndSwap(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	repo := TripRepository{DB: db}

	mock.ExpectExec("UPDATE trips SET status=").
		WithArgs("PENDING_REVIEW", int64(7), "DRAFT").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.UpdateStatus(7, "DRAFT", "PENDING_REVIEW")
	if err != nil {
		t.Fatalf("update status error: %v", err)
	}
	if !ok {
		t.Fatal("expected the swap to land")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
