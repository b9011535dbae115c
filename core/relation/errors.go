package relation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors matched through errors.Is.
var (
	// ErrConfiguration is returned when a relation is declared incorrectly.
	ErrConfiguration = errors.New("relation: invalid configuration")

	// ErrReferential is returned when submitted IDs reference missing records.
	ErrReferential = errors.New("relation: related records not found")

	// ErrValidation is returned when a submitted child is rejected.
	ErrValidation = errors.New("relation: validation failed")

	// ErrPersistence is returned when a write fails during orchestration.
	ErrPersistence = errors.New("relation: persistence failed")
)

// ConfigurationError reports a malformed descriptor, filter, payload target or hook.
type ConfigurationError struct {
	Attribute string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("relation: %s", e.Reason)
	}
	return fmt.Sprintf("relation: attribute %s: %s", e.Attribute, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ReferentialError reports many-to-many IDs that have no matching related row.
type ReferentialError struct {
	Attribute string
	Submitted int
	Found     int64
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("relation: related records for attribute %s not found (submitted %d, found %d)",
		e.Attribute, e.Submitted, e.Found)
}

func (e *ReferentialError) Unwrap() error { return ErrReferential }

// ValidationFailure is a rejected input result. It is returned as an error so
// callers can detect it, but it never indicates a broken transaction.
type ValidationFailure struct {
	// Attribute is the relational attribute, or empty for the owner's own fields.
	Attribute string
	// Errors holds the remaining field errors after link column suppression.
	Errors FieldErrors
}

func (e *ValidationFailure) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e.Errors[field], "; "))
	}
	name := e.Attribute
	if name == "" {
		name = "owner"
	}
	return fmt.Sprintf("relation: %s is invalid: %s", name, strings.Join(parts, ", "))
}

func (e *ValidationFailure) Unwrap() error { return ErrValidation }

// Messages flattens the field errors into "field: message" strings.
func (e *ValidationFailure) Messages() []string {
	var out []string
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		for _, msg := range e.Errors[field] {
			out = append(out, field+": "+msg)
		}
	}
	return out
}

// PersistenceError reports a failed save or delete. The transaction has
// already been rolled back when it is returned.
type PersistenceError struct {
	// Kind is the entity kind or join table that failed.
	Kind string
	// Op is the failed operation (save, delete, insert_row, delete_rows, find).
	Op string
	// Owner is true when the owner itself could not be written.
	Owner bool
	Err   error
}

func (e *PersistenceError) Error() string {
	subject := "model"
	if e.Owner {
		subject = "owner model"
	}
	return fmt.Sprintf("relation: %s %s %s failed: %v", subject, e.Kind, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// IsFatal reports whether err is anything other than rejected input.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrValidation)
}
