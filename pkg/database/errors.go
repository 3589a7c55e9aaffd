package database

import "errors"

var (
	// ErrNotReady indicates the database connection has not been established.
	ErrNotReady = errors.New("database not ready")
	// ErrMigrate indicates schema migrations could not be applied.
	ErrMigrate = errors.New("migration failed")
)
