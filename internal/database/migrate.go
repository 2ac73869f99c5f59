package database

import (
	"context"
	"database/sql"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS resources (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		resource_number VARCHAR(64)  NOT NULL,
		name            VARCHAR(255) NOT NULL,
		type            VARCHAR(16)  NOT NULL,
		capacity        INT          NOT NULL DEFAULT 1,
		is_active       TINYINT(1)   NOT NULL DEFAULT 1,
		building_id     BIGINT UNSIGNED NULL,
		floor_id        BIGINT UNSIGNED NULL,
		department_id   BIGINT UNSIGNED NULL,
		booking_type    VARCHAR(16)  NULL,
		desk_mode       VARCHAR(16)  NULL,
		created_at      DATETIME     NOT NULL,
		updated_at      DATETIME     NOT NULL,
		UNIQUE KEY uq_resources_number (resource_number),
		KEY idx_resources_type (type, is_active)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		resource_id       BIGINT UNSIGNED NOT NULL,
		user_id           BIGINT UNSIGNED NOT NULL,
		start_utc         DATETIME    NOT NULL,
		end_utc           DATETIME    NOT NULL,
		status            VARCHAR(16) NOT NULL,
		waitlist_entry_id BIGINT UNSIGNED NULL,
		created_at        DATETIME    NOT NULL,
		cancelled_at      DATETIME    NULL,
		KEY idx_bookings_window (resource_id, status, start_utc, end_utc),
		KEY idx_bookings_user (user_id),
		CONSTRAINT fk_bookings_resource FOREIGN KEY (resource_id) REFERENCES resources(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS desk_assignments (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		desk_id    BIGINT UNSIGNED NOT NULL,
		user_id    BIGINT UNSIGNED NOT NULL,
		start_utc  DATETIME NOT NULL,
		end_utc    DATETIME NULL,
		created_at DATETIME NOT NULL,
		KEY idx_assignments_desk (desk_id, start_utc),
		CONSTRAINT fk_assignments_desk FOREIGN KEY (desk_id) REFERENCES resources(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS waitlist_entries (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		resource_id      BIGINT UNSIGNED NOT NULL,
		user_id          BIGINT UNSIGNED NOT NULL,
		start_utc        DATETIME    NOT NULL,
		end_utc          DATETIME    NOT NULL,
		status           VARCHAR(16) NOT NULL,
		created_at       DATETIME    NOT NULL,
		resolved_at      DATETIME    NULL,
		offered_at       DATETIME    NULL,
		offer_expires_at DATETIME    NULL,
		freed_start      DATETIME    NULL,
		freed_end        DATETIME    NULL,
		booking_id       BIGINT UNSIGNED NULL,
		KEY idx_waitlist_fifo (resource_id, status, created_at, id),
		KEY idx_waitlist_expiry (status, offer_expires_at),
		CONSTRAINT fk_waitlist_resource FOREIGN KEY (resource_id) REFERENCES resources(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS resources (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		resource_number TEXT    NOT NULL UNIQUE,
		name            TEXT    NOT NULL,
		type            TEXT    NOT NULL,
		capacity        INTEGER NOT NULL DEFAULT 1,
		is_active       INTEGER NOT NULL DEFAULT 1,
		building_id     INTEGER NULL,
		floor_id        INTEGER NULL,
		department_id   INTEGER NULL,
		booking_type    TEXT    NULL,
		desk_mode       TEXT    NULL,
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		resource_id       INTEGER NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		user_id           INTEGER NOT NULL,
		start_utc         DATETIME NOT NULL,
		end_utc           DATETIME NOT NULL,
		status            TEXT     NOT NULL,
		waitlist_entry_id INTEGER NULL,
		created_at        DATETIME NOT NULL,
		cancelled_at      DATETIME NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_window ON bookings (resource_id, status, start_utc, end_utc)`,
	`CREATE TABLE IF NOT EXISTS desk_assignments (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		desk_id    INTEGER NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		user_id    INTEGER NOT NULL,
		start_utc  DATETIME NOT NULL,
		end_utc    DATETIME NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS waitlist_entries (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		resource_id      INTEGER NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		user_id          INTEGER NOT NULL,
		start_utc        DATETIME NOT NULL,
		end_utc          DATETIME NOT NULL,
		status           TEXT     NOT NULL,
		created_at       DATETIME NOT NULL,
		resolved_at      DATETIME NULL,
		offered_at       DATETIME NULL,
		offer_expires_at DATETIME NULL,
		freed_start      DATETIME NULL,
		freed_end        DATETIME NULL,
		booking_id       INTEGER NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_waitlist_fifo ON waitlist_entries (resource_id, status, created_at, id)`,
}

// Migrate creates the schema for driver if it does not exist yet.  The
// statements are idempotent so Migrate runs on every start.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case DriverMySQL:
		stmts = mysqlSchema
	case DriverSQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("database: unsupported driver %q", driver)
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("database: migration %d: %w", i, err)
		}
	}
	return nil
}
