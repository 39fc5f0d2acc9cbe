package database

import "errors"

var (
	// ErrDatabaseNotFound is returned when opening a session file that
	// does not exist.
	ErrDatabaseNotFound = errors.New("session database not found")

	// ErrNoStoredSettings is returned when a session file carries no
	// configuration, which means it was never initialized.
	ErrNoStoredSettings = errors.New("no settings stored in session database")

	// ErrUnknownColumn is returned when a query names a column that is
	// not part of this session's column set.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnknownOperator is returned when a query filter uses an
	// operator outside the supported set.
	ErrUnknownOperator = errors.New("unknown filter operator")

	// ErrUnknownView is returned when a report asks for a view that
	// does not exist.
	ErrUnknownView = errors.New("unknown view")

	// ErrInvalidColumnName is returned when a configured column name
	// cannot be used as a SQL identifier.
	ErrInvalidColumnName = errors.New("invalid column name")

	// ErrBatchInProgress is returned when a batch is started while a
	// previous one is still open.
	ErrBatchInProgress = errors.New("batch already in progress")

	// ErrNoBatch is returned when committing without an open batch.
	ErrNoBatch = errors.New("no batch in progress")
)
