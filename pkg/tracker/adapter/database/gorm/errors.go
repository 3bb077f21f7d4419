package gorm

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation   = "23505"
	pgUndefinedTable    = "42P01"
	mysqlDuplicateEntry = 1062
	mysqlNoSuchTable    = 1146
)

// isDuplicateKeyError reports whether err is a unique index violation on any supported dialect.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isTableNotExistError reports whether err means a tracker table is missing.
func isTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNoSuchTable
	}
	msg := err.Error()
	return (strings.Contains(msg, "relation \"") && strings.Contains(msg, "\" does not exist")) ||
		strings.Contains(msg, "no such table:")
}
