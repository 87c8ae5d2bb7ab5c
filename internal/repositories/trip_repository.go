package repositories

import (
	"database/sql"
	"errors"

	intconfig "travelbackend/internal/config"
	"travelbackend/internal/db"
	"travelbackend/internal/domain"
	"travelbackend/internal/domain/models"
)

type TripRepository struct {
	DB *sql.DB
}

func (r TripRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const tripColumns = `id, title, status, capacity, confirmed_guest_count, price_minor, created_by, COALESCE(start_date,'')`

func scanTrip(row *sql.Row) (models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Status,
		&t.Capacity,
		&t.ConfirmedGuestCount,
		&t.PriceMinor,
		&t.CreatedBy,
		&t.StartDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Trip{}, domain.NotFoundError{Resource: "trip", Err: err}
		}
		return models.Trip{}, domain.InternalError{Err: err}
	}
	return t, nil
}

func (r TripRepository) Create(t models.Trip) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO trips (title, status, capacity, confirmed_guest_count, price_minor, created_by, start_date)
		VALUES (?, ?, ?, 0, ?, ?, ?)`,
		t.Title, models.TripDraft, t.Capacity, t.PriceMinor, t.CreatedBy, db.NullIfEmpty(t.StartDate),
	)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}

func (r TripRepository) GetByID(id int64) (models.Trip, error) {
	return r.GetByIDQ(r.db(), id)
}

// GetByIDQ reads through the given queryer so callers inside a transaction
// see their own row locks.
func (r TripRepository) GetByIDQ(q Queryer, id int64) (models.Trip, error) {
	if id <= 0 {
		return models.Trip{}, domain.ValidationError{Field: "trip_id", Msg: "invalid id"}
	}
	return scanTrip(q.QueryRow(`SELECT `+tripColumns+` FROM trips WHERE id=? LIMIT 1`, id))
}

// UpdateStatus is a compare-and-swap on the publication state. Zero rows
// means the trip was not in the expected source state.
func (r TripRepository) UpdateStatus(id int64, from, to models.TripStatus) (bool, error) {
	res, err := r.db().Exec(
		`UPDATE trips SET status=? WHERE id=? AND status=?`,
		to, id, from,
	)
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	return n > 0, nil
}

// UpdateContent rewrites editable fields. The service enforces DRAFT-only
// editing; the status predicate here keeps a concurrent submit honest.
func (r TripRepository) UpdateContent(t models.Trip) (bool, error) {
	res, err := r.db().Exec(`
		UPDATE trips SET title=?, capacity=?, price_minor=?, start_date=?
		WHERE id=? AND status=?`,
		t.Title, t.Capacity, t.PriceMinor, db.NullIfEmpty(t.StartDate), t.ID, models.TripDraft,
	)
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	return n > 0, nil
}

// ReserveCapacity performs the capacity check and the increment as a single
// statement. Zero rows affected means the reservation would overbook.
func (r TripRepository) ReserveCapacity(q Queryer, tripID int64, guests int) (bool, error) {
	res, err := q.Exec(`
		UPDATE trips
		SET confirmed_guest_count = confirmed_guest_count + ?
		WHERE id=? AND confirmed_guest_count + ? <= capacity`,
		guests, tripID, guests,
	)
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	return n > 0, nil
}

// ReleaseCapacity gives a confirmed booking's slots back. The floor predicate
// prevents a double release from driving the counter negative.
func (r TripRepository) ReleaseCapacity(q Queryer, tripID int64, guests int) (bool, error) {
	res, err := q.Exec(`
		UPDATE trips
		SET confirmed_guest_count = confirmed_guest_count - ?
		WHERE id=? AND confirmed_guest_count >= ?`,
		guests, tripID, guests,
	)
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	return n > 0, nil
}

// Reconcile recomputes the denormalized counter from the confirmed bookings
// aggregate, for drift repair after out-of-band data corrections.
func (r TripRepository) Reconcile(tripID int64) error {
	_, err := r.db().Exec(`
		UPDATE trips
		SET confirmed_guest_count = (
			SELECT COALESCE(SUM(b.guests), 0) FROM bookings b
			WHERE b.trip_id = trips.id AND b.status = 'CONFIRMED'
		)
		WHERE id=?`, tripID)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	return nil
}

// List returns trips filtered by status; empty status returns everything.
func (r TripRepository) List(status models.TripStatus) ([]models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips`
	args := []any{}
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db().Query(query, args...)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	var out []models.Trip
	for rows.Next() {
		var t models.Trip
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Status, &t.Capacity,
			&t.ConfirmedGuestCount, &t.PriceMinor, &t.CreatedBy, &t.StartDate,
		); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}
