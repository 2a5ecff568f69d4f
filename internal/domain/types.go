package domain

import (
	"time"

	"github.com/google/uuid"
)

type Slot string

const (
	SlotMorning Slot = "morning"
	SlotEvening Slot = "evening"
)

// Slots lists every slot of a date in display order.
var Slots = [...]Slot{SlotMorning, SlotEvening}

func (s Slot) Valid() bool {
	switch s {
	case SlotMorning, SlotEvening:
		return true
	}
	return false
}

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotPending   SlotStatus = "pending"
	SlotBooked    SlotStatus = "booked"
)

// ParseSlotStatus normalizes a stored slot status. Unknown or empty values
// read back as available.
func ParseSlotStatus(s string) SlotStatus {
	switch SlotStatus(s) {
	case SlotAvailable, SlotPending, SlotBooked:
		return SlotStatus(s)
	}
	return SlotAvailable
}

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// DailyAvailability is the derived status of both slots of one date.
type DailyAvailability struct {
	Morning SlotStatus `json:"morning"`
	Evening SlotStatus `json:"evening"`
}

func FullyAvailable() DailyAvailability {
	return DailyAvailability{Morning: SlotAvailable, Evening: SlotAvailable}
}

func FullyBooked() DailyAvailability {
	return DailyAvailability{Morning: SlotBooked, Evening: SlotBooked}
}

func (a DailyAvailability) Get(slot Slot) SlotStatus {
	switch slot {
	case SlotMorning:
		return a.Morning
	case SlotEvening:
		return a.Evening
	}
	return SlotAvailable
}

// Merge overlays the statuses present in u; slots absent from u keep
// their current value.
func (a DailyAvailability) Merge(u AvailabilityUpdate) DailyAvailability {
	if st, ok := u[SlotMorning]; ok {
		a.Morning = st
	}
	if st, ok := u[SlotEvening]; ok {
		a.Evening = st
	}
	return a
}

// AvailabilityUpdate is a partial snapshot write keyed by slot.
type AvailabilityUpdate map[Slot]SlotStatus

type Holiday struct {
	DateKey DateKey   `json:"date_key"`
	Name    string    `json:"name"`
	Date    time.Time `json:"date"`
}

type Booking struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	EventDate DateKey         `json:"event_date"`
	Slot      Slot            `json:"event_slot"`
	EventType string          `json:"event_type"`
	Guests    int             `json:"number_of_guests"`
	Message   string          `json:"message,omitempty"`
	Status    BookingStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	AuditLog  []AuditLogEntry `json:"audit_log,omitempty"`
}

// BookingDraft is a booking request as supplied by a caller, before it has
// an id or timestamps.
type BookingDraft struct {
	Name      string
	Phone     string
	EventDate time.Time
	Slot      Slot
	EventType string
	Guests    int
	Message   string
	Status    BookingStatus
}

const MaxGuests = 1000

type AuditAction string

const (
	ActionBookingCreated      AuditAction = "booking_created"
	ActionAdminBookingCreated AuditAction = "admin_booking_created"
	ActionStatusChanged       AuditAction = "status_changed"
)

const (
	ActorPublic      = "public_user"
	ActorSystemAdmin = "system_admin"
)

type AuditLogEntry struct {
	ID             uuid.UUID      `json:"id"`
	BookingID      uuid.UUID      `json:"booking_id"`
	Timestamp      time.Time      `json:"timestamp"`
	ActorID        string         `json:"user_id"`
	Action         AuditAction    `json:"action"`
	PreviousStatus *BookingStatus `json:"previous_status,omitempty"`
	NewStatus      *BookingStatus `json:"new_status,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}
