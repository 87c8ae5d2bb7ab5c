package repositories

import (
	"database/sql"
	"errors"

	intconfig "travelbackend/internal/config"
	"travelbackend/internal/domain"
	"travelbackend/internal/domain/models"
)

type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// GetByLogin resolves a user by email or username, returning the stored
// password hash alongside the profile.
func (r UserRepository) GetByLogin(login string) (models.User, string, error) {
	var (
		u    models.User
		hash string
	)
	err := r.db().QueryRow(`
		SELECT id, name, username, email, COALESCE(phone,''), password_hash, role, status
		FROM users
		WHERE email = ? OR username = ?
		LIMIT 1`, login, login,
	).Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Phone, &hash, &u.Role, &u.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, "", domain.NotFoundError{Resource: "user", Err: err}
		}
		return models.User{}, "", domain.InternalError{Err: err}
	}
	return u, hash, nil
}

func (r UserRepository) GetByID(id int64) (models.User, error) {
	var u models.User
	err := r.db().QueryRow(`
		SELECT id, name, username, email, COALESCE(phone,''), role, status
		FROM users WHERE id=? LIMIT 1`, id,
	).Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Phone, &u.Role, &u.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user", Err: err}
		}
		return models.User{}, domain.InternalError{Err: err}
	}
	return u, nil
}

func (r UserRepository) Create(u models.User, passwordHash string) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO users (name, username, email, phone, password_hash, role, status)
		VALUES (?, ?, ?, ?, ?, ?, 'active')`,
		u.Name, u.Username, u.Email, u.Phone, passwordHash, u.Role,
	)
	if err != nil {
		if isDupEntry(err) {
			return 0, domain.ConflictError{Resource: "user", Msg: "email or username already registered", Err: err}
		}
		return 0, domain.InternalError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}
