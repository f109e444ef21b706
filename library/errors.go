package library

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors returned by the store and the manager. Callers match them with errors.Is.
var (
	// ErrConnectionFailure is returned when the database cannot be reached.
	ErrConnectionFailure = errors.New("database unreachable")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("invalid input")

	// ErrUnavailable is returned when a book has no copies left to lend.
	ErrUnavailable = errors.New("no copies available")

	// ErrNotFound is returned when a referenced book, loan or account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when an account with the username exists.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrDuplicateISBN is returned when a book with the ISBN exists.
	ErrDuplicateISBN = errors.New("isbn already exists")

	// ErrHasActiveLoans is returned when deleting an account that still has books out.
	ErrHasActiveLoans = errors.New("account has active loans")

	// ErrInvalidCredentials is returned by Authenticate on any mismatch.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAlreadyReturned is returned when closing a loan that is already closed.
	ErrAlreadyReturned = errors.New("loan already returned")

	// ErrBookHasLoans is returned when deleting a book that loans still reference.
	ErrBookHasLoans = errors.New("book is referenced by loans")

	// ErrQuantityBelowLoaned is returned when an edit would leave fewer copies than are on loan.
	ErrQuantityBelowLoaned = errors.New("quantity below copies on loan")

	// ErrForbidden is returned when the acting account's role lacks a capability.
	ErrForbidden = errors.New("not permitted")

	// ErrSelfDelete is returned when an account tries to delete itself.
	ErrSelfDelete = errors.New("cannot delete the signed-in account")
)

// ValidationError lists the fields that failed and the rule each one broke.
type ValidationError struct {
	Fields map[string]string
	msg    string
}

func (e *ValidationError) Error() string {
	if e.msg != "" {
		return "invalid input: " + e.msg
	}
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, fmt.Sprintf("%s (%s)", f, e.Fields[f]))
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, rule, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}, msg: msg}
}

// notFound wraps ErrNotFound with the kind and id that were missing.
func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}
