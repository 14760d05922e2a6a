package repositories

import (
	"errors"
	"fmt"
)

// RepositoryError categorizes persistence failures so services can react
// without knowing the backing store.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

type repoError struct {
	kind  errorKind
	msg   string
	cause error
}

type errorKind int

const (
	kindNotFound errorKind = iota
	kindConflict
	kindUnavailable
)

func (e *repoError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *repoError) Unwrap() error       { return e.cause }
func (e *repoError) IsNotFound() bool    { return e.kind == kindNotFound }
func (e *repoError) IsConflict() bool    { return e.kind == kindConflict }
func (e *repoError) IsUnavailable() bool { return e.kind == kindUnavailable }

// NewNotFound builds a not-found repository error.
func NewNotFound(msg string, cause error) RepositoryError {
	return &repoError{kind: kindNotFound, msg: msg, cause: cause}
}

// NewConflict builds a conflict repository error.
func NewConflict(msg string, cause error) RepositoryError {
	return &repoError{kind: kindConflict, msg: msg, cause: cause}
}

// NewUnavailable builds an unavailable repository error.
func NewUnavailable(msg string, cause error) RepositoryError {
	return &repoError{kind: kindUnavailable, msg: msg, cause: cause}
}

// IsNotFound reports whether err carries a not-found category.
func IsNotFound(err error) bool {
	var re RepositoryError
	return errors.As(err, &re) && re.IsNotFound()
}

// IsConflict reports whether err carries a conflict category.
func IsConflict(err error) bool {
	var re RepositoryError
	return errors.As(err, &re) && re.IsConflict()
}

// IsUnavailable reports whether err carries an unavailable category.
func IsUnavailable(err error) bool {
	var re RepositoryError
	return errors.As(err, &re) && re.IsUnavailable()
}
