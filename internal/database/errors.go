package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
	ErrorClassConflict
	// ErrorClassData is a row the server refused to store: out of range,
	// too long, bad encoding, or a violated constraint. Resending it fails
	// the same way.
	ErrorClassData
)

const (
	codeUniqueViolation     = "23505"
	codeSerializationFailed = "40001"
	codeDeadlockDetected    = "40P01"
	codeLockNotAvailable    = "55P03"

	classDataException       = "22"
	classIntegrityConstraint = "23"
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	if errors.Is(err, ErrDuplicateKey) {
		return ErrorClassConflict
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailed:
			return ErrorClassSerialization
		case codeDeadlockDetected:
			return ErrorClassDeadlock
		case codeLockNotAvailable:
			return ErrorClassTransient
		case codeUniqueViolation:
			return ErrorClassConflict
		}
		switch pqErr.Code.Class() {
		case classDataException, classIntegrityConstraint:
			return ErrorClassData
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsDataError reports whether the server rejected the values themselves.
func IsDataError(err error) bool {
	return ClassifyError(err) == ErrorClassData
}

// IsUniqueViolation reports whether err is a primary/unique key collision,
// either surfaced by the server or detected by an ON CONFLICT DO NOTHING insert.
func IsUniqueViolation(err error) bool {
	return ClassifyError(err) == ErrorClassConflict
}

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)
