package draft

import (
	"errors"
	"fmt"
)

// Sentinel errors - Step gates
var (
	ErrValidationIncomplete = errors.New("draft: step incomplete")
	ErrNoNextStep           = errors.New("draft: already at the last step")
	ErrNoPreviousStep       = errors.New("draft: already at the first step")
)

// Sentinel errors - Slice validation
var (
	ErrInvalidPickupDate = errors.New("draft: invalid pickup date")
	ErrPickupDateInPast  = errors.New("draft: pickup date is in the past")
	ErrUnknownTimeSlot   = errors.New("draft: unknown pickup time slot")
	ErrInvalidAddress    = errors.New("draft: invalid pickup address")
	ErrTooManyImages     = errors.New("draft: too many images")
	ErrInvalidImage      = errors.New("draft: invalid image")
)

// ErrMissingCatalogEntry means a selected subcategory is absent from the
// catalog snapshot. Submission must be aborted.
var ErrMissingCatalogEntry = errors.New("draft: subcategory missing from catalog")

// CatalogError names the subcategory that could not be priced.
type CatalogError struct {
	SubcategoryID string
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMissingCatalogEntry, e.SubcategoryID)
}

// Unwrap implements the errors.Unwrap interface for error chaining.
func (e *CatalogError) Unwrap() error {
	return ErrMissingCatalogEntry
}

// IncompleteError names the first step whose gate is not satisfied.
type IncompleteError struct {
	Step   Step
	Reason string
}

// Error implements the error interface.
func (e *IncompleteError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (%s)", ErrValidationIncomplete, e.Step, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrValidationIncomplete, e.Step)
}

// Unwrap implements the errors.Unwrap interface for error chaining.
func (e *IncompleteError) Unwrap() error {
	return ErrValidationIncomplete
}
