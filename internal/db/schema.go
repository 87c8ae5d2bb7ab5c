package db

import (
	"database/sql"
	"fmt"
)

// EnsureSchema creates the engine's tables when missing. The unique key on
// payments.provider_payment_id is load-bearing: it is the idempotency
// constraint that makes concurrent duplicate captures collapse to one.
func EnsureSchema(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db not available")
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			username VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(100) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(50) NOT NULL DEFAULT 'user',
			status VARCHAR(50) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_email (email),
			UNIQUE KEY uniq_username (username)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS trips (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			status VARCHAR(30) NOT NULL DEFAULT 'DRAFT',
			capacity INT NOT NULL DEFAULT 0,
			confirmed_guest_count INT NOT NULL DEFAULT 0,
			price_minor BIGINT NOT NULL DEFAULT 0,
			created_by BIGINT NOT NULL,
			start_date VARCHAR(20) NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_status (status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			trip_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			status VARCHAR(30) NOT NULL DEFAULT 'REQUESTED',
			guests INT NOT NULL DEFAULT 1,
			start_date VARCHAR(20) NULL,
			payment_status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_trip (trip_id),
			KEY idx_user (user_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS booking_guests (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			booking_id BIGINT NOT NULL,
			position INT NOT NULL,
			guest_name VARCHAR(255) NOT NULL,
			guest_phone VARCHAR(100) NOT NULL DEFAULT '',
			guest_email VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_booking_position (booking_id, position),
			KEY idx_booking (booking_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS payments (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			booking_id BIGINT NOT NULL,
			amount_minor BIGINT NOT NULL,
			provider VARCHAR(50) NOT NULL DEFAULT 'razorpay',
			method VARCHAR(30) NOT NULL DEFAULT 'GATEWAY',
			status VARCHAR(20) NOT NULL DEFAULT 'CREATED',
			provider_order_id VARCHAR(100) NOT NULL,
			provider_payment_id VARCHAR(100) NULL,
			provider_refund_id VARCHAR(100) NULL,
			proof_ref VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_provider_order (provider_order_id),
			UNIQUE KEY uniq_provider_payment (provider_payment_id),
			KEY idx_booking (booking_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, ddl := range stmts {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	// Columns added after early deployments; CREATE IF NOT EXISTS won't touch
	// an existing table, so patch them in explicitly.
	upgrades := []struct {
		table, column, ddl string
	}{
		{"trips", "price_minor", `ALTER TABLE trips ADD COLUMN price_minor BIGINT NOT NULL DEFAULT 0`},
		{"trips", "confirmed_guest_count", `ALTER TABLE trips ADD COLUMN confirmed_guest_count INT NOT NULL DEFAULT 0`},
		{"bookings", "payment_status", `ALTER TABLE bookings ADD COLUMN payment_status VARCHAR(20) NOT NULL DEFAULT 'PENDING'`},
		{"payments", "proof_ref", `ALTER TABLE payments ADD COLUMN proof_ref VARCHAR(255) NOT NULL DEFAULT ''`},
		{"payments", "provider_refund_id", `ALTER TABLE payments ADD COLUMN provider_refund_id VARCHAR(100) NULL`},
	}
	for _, up := range upgrades {
		if HasColumn(db, up.table, up.column) {
			continue
		}
		if _, err := db.Exec(up.ddl); err != nil {
			return fmt.Errorf("ensure schema: add %s.%s: %w", up.table, up.column, err)
		}
	}
	return nil
}
