package domain

import (
	"fmt"
	"strings"
)

// Validate re-checks the shape of a draft. Transports validate first; this
// is the last line before storage.
func (d BookingDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(d.Phone) == "" {
		return &ValidationError{Field: "phone", Reason: "must not be empty"}
	}
	if d.EventDate.IsZero() {
		return &ValidationError{Field: "event_date", Reason: "is required"}
	}
	if !d.Slot.Valid() {
		return &ValidationError{Field: "event_slot", Reason: fmt.Sprintf("%q is not morning or evening", d.Slot)}
	}
	if d.Guests < 1 || d.Guests > MaxGuests {
		return &ValidationError{Field: "number_of_guests", Reason: fmt.Sprintf("must be between 1 and %d", MaxGuests)}
	}
	return nil
}

// SlotStatusFor derives a slot's status from the bookings that share it.
// A confirmed booking wins over pending ones; cancelled and unrecognized
// statuses never count.
func SlotStatusFor(bookings []Booking) SlotStatus {
	pending := false
	for _, b := range bookings {
		switch b.Status {
		case StatusConfirmed:
			return SlotBooked
		case StatusPending:
			pending = true
		case StatusCancelled:
		}
	}
	if pending {
		return SlotPending
	}
	return SlotAvailable
}

func StatusPtr(s BookingStatus) *BookingStatus { return &s }
