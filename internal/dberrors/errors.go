// Package dberrors defines the sentinel error kinds raised by the storage
// and execution core (spec.md §7). Callers use errors.Is against these
// sentinels; concrete errors wrap one of them with fmt.Errorf("%w: ...").
package dberrors

import "errors"

var (
	// ErrNoDatabaseSelected: any DML/DDL attempted outside USE/CREATE
	// DATABASE/SHOW DATABASES.
	ErrNoDatabaseSelected = errors.New("no database selected")

	// ErrObjectNotFound: missing database, table, column, index, or row.
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectExists: duplicate database/table/column.
	ErrObjectExists = errors.New("object already exists")

	// ErrTypeError: value does not match a declared column's type or width.
	ErrTypeError = errors.New("type error")

	// ErrConstraintViolation: unique, primary, foreign-key, or not-null
	// constraint failed.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrCapacityExceeded: exhausted TableID space or page-number space.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrIOError: wraps an underlying OS/file error.
	ErrIOError = errors.New("i/o error")

	// ErrInternal: an invariant was broken; should be unreachable.
	ErrInternal = errors.New("internal error")

	// ErrNotImplemented: an AST shape the executor accepts but does not
	// evaluate (In, IsNull, GroupBy, Limit, Offset per spec.md §6.3).
	ErrNotImplemented = errors.New("not implemented")
)
