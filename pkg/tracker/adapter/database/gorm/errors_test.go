package gorm

import (
	"errors"
	"fmt"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyError(t *testing.T) {
	assert.False(t, isDuplicateKeyError(nil))
	assert.True(t, isDuplicateKeyError(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKeyError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isDuplicateKeyError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, isDuplicateKeyError(errors.New("UNIQUE constraint failed: actor.actor_name")))
	assert.False(t, isDuplicateKeyError(errors.New("disk I/O error")))
}

func TestIsTableNotExistError(t *testing.T) {
	assert.True(t, isTableNotExistError(&pgconn.PgError{Code: "42P01"}))
	assert.True(t, isTableNotExistError(&mysqldriver.MySQLError{Number: 1146}))
	assert.True(t, isTableNotExistError(errors.New("no such table: process_tracking")))
	assert.True(t, isTableNotExistError(errors.New(`ERROR: relation "process_tracker.actor" does not exist`)))
	assert.False(t, isTableNotExistError(errors.New("connection refused")))
}
