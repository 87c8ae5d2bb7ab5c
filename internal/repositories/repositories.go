package repositories

import "database/sql"

// Queryer is satisfied by both *sql.DB and *sql.Tx so the guarded updates can
// run inside the services' transactions.
type Queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
