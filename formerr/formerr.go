// Package formerr defines the errors returned by the form registry and the
// submission layer. Callers match them with errors.As.
package formerr

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type DuplicateSlugError struct {
	Slug string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("slug %q is already used by an active form", e.Slug)
}

// HasSubmissionsError rejects a structural edit of a form that already
// collected answers.
type HasSubmissionsError struct {
	FormID int64
	Count  int64
}

func (e *HasSubmissionsError) Error() string {
	return fmt.Sprintf(
		"form %d already has %d submission(s) and can no longer be edited; create a new form, duplicate this one, or deactivate it instead",
		e.FormID, e.Count,
	)
}

type UnroutableLocationError struct {
	Location string
}

func (e *UnroutableLocationError) Error() string {
	if e.Location == "" {
		return "form has no section location"
	}
	return fmt.Sprintf("section location %q has no storage tables", e.Location)
}

type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func Invalid(field, reason string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(reason, args...)}
}

// Validation collects validation problems; the zero value is ready to use.
type Validation struct {
	errs *multierror.Error
}

func (v *Validation) Add(field, reason string, args ...any) {
	v.errs = multierror.Append(v.errs, Invalid(field, reason, args...))
}

func (v *Validation) Err() error {
	if v.errs == nil {
		return nil
	}
	v.errs.ErrorFormat = listFormat
	return v.errs
}

func listFormat(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(errs))
	for _, err := range errs {
		msg += " " + err.Error() + ";"
	}
	return msg[:len(msg)-1]
}

// WriteFailureError wraps a store failure in the middle of a multi-step
// write.
type WriteFailureError struct {
	Op  string
	Err error
}

func (e *WriteFailureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *WriteFailureError) Unwrap() error { return e.Err }

// CompensationFailureError is returned when undoing a failed write also
// failed. Err is the failure that triggered the rollback.
type CompensationFailureError struct {
	Op              string
	Err             error
	CompensationErr error
}

func (e *CompensationFailureError) Error() string {
	return fmt.Sprintf("%s: %v (rollback failed: %v)", e.Op, e.Err, e.CompensationErr)
}

func (e *CompensationFailureError) Unwrap() []error {
	return []error{e.Err, e.CompensationErr}
}

type VersionConflictError struct {
	FormID   int64
	Expected int
	Actual   int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("form %d is at version %d, not %d", e.FormID, e.Actual, e.Expected)
}
