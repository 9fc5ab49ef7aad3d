package db

import (
	"errors"
	"strings"
)

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	// ErrRejected marks a command the server refused (as opposed to a network failure).
	ErrRejected = errors.New("db: rejected by server")
	// ErrInvalidArgument marks a command refused client-side before it was sent.
	ErrInvalidArgument = errors.New("db: invalid argument")
)

// Op constants map to Valkey/Redis command names for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpGet         = "GET"
	OpSet         = "SET"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// IsRejected reports whether err was refused by the server or client-side
// validation, i.e. retrying the same command cannot succeed.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected) || errors.Is(err, ErrInvalidArgument)
}

// requestLevelErrors are server replies that reject the connection or the whole
// pipeline rather than a single key.
var requestLevelErrors = []string{"NOAUTH", "WRONGPASS", "NOPERM", "READONLY", "OOM", "LOADING", "MASTERDOWN"}

// IsRequestLevel reports whether a server error message rejects the whole request.
func IsRequestLevel(msg string) bool {
	for _, p := range requestLevelErrors {
		if strings.HasPrefix(msg, p) {
			return true
		}
	}
	return false
}
