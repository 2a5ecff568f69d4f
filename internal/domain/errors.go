package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirinyoku/resortbook/internal/pkg/errs"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrSlotConflict    = errors.New("slot already has a confirmed booking")
	ErrNotFound        = errors.New("not found")
	ErrTransientStore  = errors.New("storage temporarily unavailable")
	ErrDegradedSuccess = errors.New("change saved but a follow-up step failed")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type SlotUnavailableError struct {
	Date   DateKey
	Slot   Slot
	Status SlotStatus
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("the %s slot on %s is %s", e.Slot, e.Date, e.Status)
}

func (e *SlotUnavailableError) Unwrap() error { return ErrSlotUnavailable }

type SlotConflictError struct {
	Date DateKey
	Slot Slot
	// ConflictingID is uuid.Nil when the storage backstop caught the
	// conflict and the competitor is unknown.
	ConflictingID uuid.UUID
}

func (e *SlotConflictError) Error() string {
	if e.ConflictingID == uuid.Nil {
		return fmt.Sprintf("the %s slot on %s is already confirmed for another booking", e.Slot, e.Date)
	}
	return fmt.Sprintf("the %s slot on %s is already confirmed for booking %s", e.Slot, e.Date, e.ConflictingID)
}

func (e *SlotConflictError) Unwrap() error { return ErrSlotConflict }

// IsBusiness reports whether err is a caller-correctable rule violation
// that must be returned as is, never retried.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrSlotUnavailable) ||
		errors.Is(err, ErrSlotConflict) ||
		errors.Is(err, ErrNotFound)
}

// MarkTransient marks any error that is not a rule violation as
// ErrTransientStore, keeping the cause in the chain.
func MarkTransient(err error) error {
	if err == nil || IsBusiness(err) || errors.Is(err, ErrTransientStore) {
		return err
	}
	return errs.Mark(err, ErrTransientStore)
}

// Outcome describes a mutation that committed. Degraded is non-nil when a
// post-commit step (audit append, availability refresh) failed; the change
// itself stands.
type Outcome struct {
	Changed  bool
	Degraded error
}

func (o Outcome) IsDegraded() bool { return o.Degraded != nil }
