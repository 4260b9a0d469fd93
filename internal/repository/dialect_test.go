package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	pg := dialect{driver: DriverPostgres}
	lite := dialect{driver: DriverSQLite}
	query := "UPDATE t SET a = a + ? WHERE id = ? AND user_id = ?"

	assert.Equal(t, "UPDATE t SET a = a + $1 WHERE id = $2 AND user_id = $3", pg.rebind(query))
	assert.Equal(t, query, lite.rebind(query))
}

func TestForUpdate(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", dialect{driver: DriverPostgres}.forUpdate())
	assert.Empty(t, dialect{driver: DriverSQLite}.forUpdate())
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", sqliteDSN("a.db"))
	assert.Equal(t, "file:a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", sqliteDSN("file:a.db?mode=rwc"))
}

func TestNewRepositoryRejectsUnknownDriver(t *testing.T) {
	_, err := NewRepository(nil, "mysql")
	assert.Error(t, err)
}
