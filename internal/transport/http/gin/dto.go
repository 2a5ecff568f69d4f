package httpgin

import (
	"time"

	"github.com/kirinyoku/resortbook/internal/domain"
)

const dateLayout = "2006-01-02"

type CreateBookingRequest struct {
	Name           string `json:"name" binding:"required,max=200"`
	Phone          string `json:"phone" binding:"required,min=7,max=32"`
	EventDate      string `json:"event_date" binding:"required,datetime=2006-01-02"`
	EventSlot      string `json:"event_slot" binding:"required,oneof=morning evening"`
	EventType      string `json:"event_type" binding:"max=100"`
	NumberOfGuests int    `json:"number_of_guests" binding:"required,min=1,max=1000"`
	Message        string `json:"message" binding:"max=2000"`
}

type CreateAdminBookingRequest struct {
	CreateBookingRequest
	Status string `json:"status" binding:"omitempty,oneof=pending confirmed"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed cancelled"`
	Notes  string `json:"notes" binding:"max=2000"`
}

type MarkHolidayRequest struct {
	Name string `json:"name" binding:"max=200"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type AvailabilityResponse struct {
	Date    domain.DateKey    `json:"date"`
	Morning domain.SlotStatus `json:"morning"`
	Evening domain.SlotStatus `json:"evening"`
}

type CreateBookingResponse struct {
	BookingID string `json:"booking_id"`
	Warning   string `json:"warning,omitempty"`
}

type ChangeStatusResponse struct {
	BookingID string               `json:"booking_id"`
	Status    domain.BookingStatus `json:"status"`
	Changed   bool                 `json:"changed"`
	Warning   string               `json:"warning,omitempty"`
}

type HolidayResponse struct {
	Date    domain.DateKey `json:"date"`
	Name    string         `json:"name,omitempty"`
	Changed bool           `json:"changed"`
	Warning string         `json:"warning,omitempty"`
}

type ReconcileResponse struct {
	From      domain.DateKey `json:"from"`
	To        domain.DateKey `json:"to"`
	Refreshed int            `json:"refreshed"`
}

// parseDate reads a YYYY-MM-DD date as midnight in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, loc)
}

func (r CreateBookingRequest) draft(loc *time.Location) (domain.BookingDraft, error) {
	date, err := parseDate(r.EventDate, loc)
	if err != nil {
		return domain.BookingDraft{}, err
	}

	return domain.BookingDraft{
		Name:      r.Name,
		Phone:     r.Phone,
		EventDate: date,
		Slot:      domain.Slot(r.EventSlot),
		EventType: r.EventType,
		Guests:    r.NumberOfGuests,
		Message:   r.Message,
	}, nil
}
