package domain

import "github.com/google/uuid"

type EventType string

const (
	EventBookingCreated EventType = "booking_created"
	EventStatusChanged  EventType = "status_changed"
	EventHolidayMarked  EventType = "holiday_marked"
	EventHolidayRemoved EventType = "holiday_removed"
)

// BookingEvent announces a committed change. Consumers must treat it as a
// hint and re-read state they act on. ID is unique per published event.
type BookingEvent struct {
	ID             uuid.UUID     `json:"id"`
	Type           EventType     `json:"type"`
	BookingID      uuid.UUID     `json:"booking_id,omitempty"`
	DateKey        DateKey       `json:"date_key"`
	Slot           Slot          `json:"slot,omitempty"`
	Status         BookingStatus `json:"status,omitempty"`
	PreviousStatus BookingStatus `json:"previous_status,omitempty"`
	ActorID        string        `json:"actor_id,omitempty"`
	Name           string        `json:"name,omitempty"`
	TsUnix         int64         `json:"ts_unix"`
}
