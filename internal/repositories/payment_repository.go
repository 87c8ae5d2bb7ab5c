package repositories

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	intconfig "travelbackend/internal/config"
	"travelbackend/internal/domain"
	"travelbackend/internal/domain/models"
)

const mysqlDupEntry = 1062

type PaymentRepository struct {
	DB *sql.DB
}

func (r PaymentRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const paymentColumns = `id, booking_id, amount_minor, provider, method, status,
	provider_order_id, COALESCE(provider_payment_id,''), COALESCE(provider_refund_id,''), COALESCE(proof_ref,'')`

func scanPayment(row *sql.Row) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.AmountMinor,
		&p.Provider,
		&p.Method,
		&p.Status,
		&p.ProviderOrderID,
		&p.ProviderPaymentID,
		&p.ProviderRefundID,
		&p.ProofRef,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Payment{}, domain.NotFoundError{Resource: "payment", Err: err}
		}
		return models.Payment{}, domain.InternalError{Err: err}
	}
	return p, nil
}

// Create inserts a payment intent in CREATED state.
func (r PaymentRepository) Create(p models.Payment) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO payments (booking_id, amount_minor, provider, method, status, provider_order_id, proof_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.BookingID, p.AmountMinor, p.Provider, p.Method, models.PaymentCreated, p.ProviderOrderID, p.ProofRef,
	)
	if err != nil {
		if isDupEntry(err) {
			return 0, domain.ConflictError{Resource: "payment", Msg: "provider order already recorded", Err: err}
		}
		return 0, domain.InternalError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}

// CreateCaptured atomically records an offline payment, guarded so a booking
// can never hold two captured payments. Zero rows means a captured payment
// already exists.
func (r PaymentRepository) CreateCaptured(q Queryer, p models.Payment) (int64, bool, error) {
	res, err := q.Exec(`
		INSERT INTO payments (booking_id, amount_minor, provider, method, status, provider_order_id, provider_payment_id, proof_ref)
		SELECT ?, ?, ?, ?, 'CAPTURED', ?, ?, ?
		FROM DUAL
		WHERE NOT EXISTS (
			SELECT 1 FROM (SELECT 1 FROM payments WHERE booking_id=? AND status='CAPTURED') dup
		)`,
		p.BookingID, p.AmountMinor, p.Provider, p.Method, p.ProviderOrderID, p.ProviderPaymentID, p.ProofRef,
		p.BookingID,
	)
	if err != nil {
		if isDupEntry(err) {
			return 0, false, domain.ConflictError{Resource: "payment", Msg: "transaction reference already recorded", Err: err}
		}
		return 0, false, domain.InternalError{Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, domain.InternalError{Err: err}
	}
	if n == 0 {
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, domain.InternalError{Err: err}
	}
	return id, true, nil
}

func (r PaymentRepository) GetByOrderID(orderID string) (models.Payment, error) {
	return r.GetByOrderIDQ(r.db(), orderID)
}

func (r PaymentRepository) GetByOrderIDQ(q Queryer, orderID string) (models.Payment, error) {
	if orderID == "" {
		return models.Payment{}, domain.ValidationError{Field: "order_id", Msg: "missing"}
	}
	return scanPayment(q.QueryRow(
		`SELECT `+paymentColumns+` FROM payments WHERE provider_order_id=? LIMIT 1`, orderID))
}

// GetCapturedByBooking returns the authoritative captured payment, if any.
// A nil queryer reads through the repository's own connection.
func (r PaymentRepository) GetCapturedByBooking(q Queryer, bookingID int64) (models.Payment, bool, error) {
	if q == nil {
		q = r.db()
	}
	p, err := scanPayment(q.QueryRow(
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id=? AND status='CAPTURED' LIMIT 1`, bookingID))
	if err != nil {
		if domain.IsNotFound(err) {
			return models.Payment{}, false, nil
		}
		return models.Payment{}, false, err
	}
	return p, true, nil
}

// Capture flips the intent to CAPTURED and stamps the provider payment id in
// one guarded statement. Zero rows means the intent was not in CREATED state
// (already captured, failed, or refunded) or the booking already holds a
// captured payment; the unique key on provider_payment_id rejects a replayed
// id attached to a different order. This is the idempotency core: concurrent
// duplicate callbacks cannot both pass.
func (r PaymentRepository) Capture(q Queryer, orderID, providerPaymentID string) (bool, error) {
	res, err := q.Exec(`
		UPDATE payments
		SET status='CAPTURED', provider_payment_id=?
		WHERE provider_order_id=? AND status='CREATED'
		  AND NOT EXISTS (
			SELECT 1 FROM (SELECT 1 FROM payments p2 WHERE p2.booking_id = (
				SELECT booking_id FROM (SELECT booking_id FROM payments p3 WHERE p3.provider_order_id=?) b
			) AND p2.status='CAPTURED') dup
		  )`,
		providerPaymentID, orderID, orderID,
	)
	if err != nil {
		if isDupEntry(err) {
			// provider payment id already consumed by another capture
			return false, nil
		}
		return false, domain.InternalError{Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	return n > 0, nil
}

// MarkFailed moves a pending intent to FAILED. Terminal states stay put.
func (r PaymentRepository) MarkFailed(q Queryer, orderID string) (bool, error) {
	res, err := q.Exec(
		`UPDATE payments SET status='FAILED' WHERE provider_order_id=? AND status='CREATED'`, orderID)
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	return n > 0, nil
}

// MarkRefunded is a compare-and-swap from CAPTURED, so a second refund
// attempt affects zero rows.
func (r PaymentRepository) MarkRefunded(q Queryer, paymentID int64, refundID string) (bool, error) {
	res, err := q.Exec(
		`UPDATE payments SET status='REFUNDED', provider_refund_id=? WHERE id=? AND status='CAPTURED'`,
		refundID, paymentID,
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

func (r PaymentRepository) ListByBooking(bookingID int64) ([]models.Payment, error) {
	rows, err := r.db().Query(
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id=? ORDER BY id DESC`, bookingID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r PaymentRepository) ListAll(limit int) ([]models.Payment, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db().Query(
		`SELECT `+paymentColumns+` FROM payments ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()
	return collectPayments(rows)
}

func collectPayments(rows *sql.Rows) ([]models.Payment, error) {
	var out []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(
			&p.ID, &p.BookingID, &p.AmountMinor, &p.Provider, &p.Method, &p.Status,
			&p.ProviderOrderID, &p.ProviderPaymentID, &p.ProviderRefundID, &p.ProofRef,
		); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}

func isDupEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDupEntry
}
