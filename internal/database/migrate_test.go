package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, "file::memory:?_pragma=foreign_keys(1)&_time_format=sqlite")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db, DriverSQLite))
	require.NoError(t, Migrate(ctx, db, DriverSQLite))

	for _, table := range []string{"resources", "bookings", "desk_assignments", "waitlist_entries"} {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "")
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	assert.Equal(t, "app:secret@tcp(db:3306)/ws?charset=utf8mb4&parseTime=true&loc=UTC",
		MySQLDSN("app", "secret", "db", "3306", "ws"))
	assert.Equal(t, "app@tcp(db:3306)/ws?charset=utf8mb4&parseTime=true&loc=UTC",
		MySQLDSN("app", "", "db", "3306", "ws"))
}
