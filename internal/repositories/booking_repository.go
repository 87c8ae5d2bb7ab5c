package repositories

import (
	"database/sql"
	"errors"

	intconfig "travelbackend/internal/config"
	"travelbackend/internal/db"
	"travelbackend/internal/domain"
	"travelbackend/internal/domain/models"
)

type BookingRepository struct {
	DB *sql.DB
}

func (r BookingRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const bookingColumns = `id, trip_id, user_id, status, guests, COALESCE(start_date,''), payment_status`

func scanBooking(row *sql.Row) (models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID,
		&b.TripID,
		&b.UserID,
		&b.Status,
		&b.Guests,
		&b.StartDate,
		&b.PaymentStatus,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
		}
		return models.Booking{}, domain.InternalError{Err: err}
	}
	return b, nil
}

// Create inserts the booking and its guest details in one transaction.
func (r BookingRepository) Create(b models.Booking) (int64, error) {
	tx, err := r.db().Begin()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO bookings (trip_id, user_id, status, guests, start_date, payment_status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.TripID, b.UserID, models.BookingRequested, b.Guests, db.NullIfEmpty(b.StartDate), models.PaymentPending,
	)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}

	for i, g := range b.GuestDetails {
		if _, err := tx.Exec(`
			INSERT INTO booking_guests (booking_id, position, guest_name, guest_phone, guest_email)
			VALUES (?, ?, ?, ?, ?)`,
			id, i, g.Name, g.Phone, g.Email,
		); err != nil {
			return 0, domain.InternalError{Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}

func (r BookingRepository) GetByID(id int64) (models.Booking, error) {
	return r.GetByIDQ(r.db(), id)
}

func (r BookingRepository) GetByIDQ(q Queryer, id int64) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	return scanBooking(q.QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1`, id))
}

// GetByIDForUpdate locks the booking row for the duration of the caller's
// transaction so concurrent transitions on the same booking serialize.
func (r BookingRepository) GetByIDForUpdate(q Queryer, id int64) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	return scanBooking(q.QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1 FOR UPDATE`, id))
}

// UpdateStatus is a compare-and-swap on the admission state.
func (r BookingRepository) UpdateStatus(q Queryer, id int64, from, to models.BookingStatus) (bool, error) {
	res, err := q.Exec(
		`UPDATE bookings SET status=? WHERE id=? AND status=?`,
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

// UpdatePaymentStatus sets the settlement state on the booking.
func (r BookingRepository) UpdatePaymentStatus(q Queryer, id int64, status models.PaymentStatus) error {
	if _, err := q.Exec(`UPDATE bookings SET payment_status=? WHERE id=?`, status, id); err != nil {
		return domain.InternalError{Err: err}
	}
	return nil
}

// HasActiveForUserTrip backs the one-active-booking-per-user-per-trip guard.
func (r BookingRepository) HasActiveForUserTrip(userID, tripID int64) (bool, error) {
	var n int
	err := r.db().QueryRow(`
		SELECT COUNT(*) FROM bookings
		WHERE user_id=? AND trip_id=? AND status IN ('REQUESTED','CONFIRMED')`,
		userID, tripID,
	).Scan(&n)
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	return n > 0, nil
}

func (r BookingRepository) GetGuests(bookingID int64) ([]models.GuestDetail, error) {
	rows, err := r.db().Query(`
		SELECT guest_name, COALESCE(guest_phone,''), COALESCE(guest_email,'')
		FROM booking_guests WHERE booking_id=? ORDER BY position`,
		bookingID,
	)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	var out []models.GuestDetail
	for rows.Next() {
		var g models.GuestDetail
		if err := rows.Scan(&g.Name, &g.Phone, &g.Email); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}

func (r BookingRepository) ListByUser(userID int64) ([]models.Booking, error) {
	return r.list(`user_id=?`, userID)
}

func (r BookingRepository) ListByTrip(tripID int64) ([]models.Booking, error) {
	return r.list(`trip_id=?`, tripID)
}

func (r BookingRepository) list(where string, arg any) ([]models.Booking, error) {
	rows, err := r.db().Query(
		`SELECT `+bookingColumns+` FROM bookings WHERE `+where+` ORDER BY id DESC`, arg)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.TripID, &b.UserID, &b.Status,
			&b.Guests, &b.StartDate, &b.PaymentStatus,
		); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}
