package config

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var (
	// DB is the shared connection. Repositories fall back to it when no
	// handle was injected, which is what the sqlmock tests rely on.
	DB   *sql.DB
	dbMu sync.Mutex
)

// ConnectDB initializes the shared DB connection (idempotent).
func ConnectDB(cfg MySQLConfig) *sql.DB {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB != nil {
		return DB
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns / 2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Printf("warning: mysql not reachable yet: %v", err)
	}

	DB = db
	return DB
}

// CloseDB closes the shared connection if open.
func CloseDB() {
	dbMu.Lock()
	defer dbMu.Unlock()
	if DB != nil {
		_ = DB.Close()
		DB = nil
	}
}
