// Package notify tells resort admins about booking activity over Telegram.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kirinyoku/resortbook/internal/domain"
)

// MessageSender delivers one text message to one chat.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// EventClaimer grants each event to one consumer instance.
type EventClaimer interface {
	Claim(ctx context.Context, consumer string, ev domain.BookingEvent) (bool, error)
}

const claimConsumer = "telegram_admins"

// AdminNotifier forwards booking events to a fixed list of admin chats.
type AdminNotifier struct {
	sender  MessageSender
	claims  EventClaimer
	chatIDs []int64
	log     *slog.Logger
}

// NewAdminNotifier builds a notifier. With claims set, replicas sharing the
// event channel deliver each event once between them; with claims nil every
// instance delivers every event.
func NewAdminNotifier(sender MessageSender, claims EventClaimer, chatIDs []int64, log *slog.Logger) *AdminNotifier {
	return &AdminNotifier{
		sender:  sender,
		claims:  claims,
		chatIDs: append([]int64(nil), chatIDs...),
		log:     log,
	}
}

// Handle sends ev to every admin chat unless another instance claimed it.
// Delivery failures are logged per chat and do not stop the others.
func (n *AdminNotifier) Handle(ctx context.Context, ev domain.BookingEvent) {
	text, ok := Format(ev)
	if !ok {
		return
	}

	if n.claims != nil && ev.ID != uuid.Nil {
		claimed, err := n.claims.Claim(ctx, claimConsumer, ev)
		switch {
		case err != nil:
			n.log.Warn("event claim failed, delivering anyway",
				"event_id", ev.ID,
				"error", err.Error())
		case !claimed:
			return
		}
	}

	for _, chatID := range n.chatIDs {
		if err := n.sender.SendMessage(ctx, chatID, text); err != nil {
			n.log.Warn("admin notification failed",
				"chat_id", chatID,
				"type", ev.Type,
				"error", err.Error())
		}
	}
}

// Format renders ev as a message. Unknown event types are skipped.
func Format(ev domain.BookingEvent) (string, bool) {
	var b strings.Builder

	switch ev.Type {
	case domain.EventBookingCreated:
		fmt.Fprintf(&b, "New %s booking request\n", ev.Status)
		writeBookingLines(&b, ev)
	case domain.EventStatusChanged:
		fmt.Fprintf(&b, "Booking status changed: %s -> %s\n", ev.PreviousStatus, ev.Status)
		writeBookingLines(&b, ev)
		if ev.ActorID != "" {
			fmt.Fprintf(&b, "By: %s\n", ev.ActorID)
		}
	case domain.EventHolidayMarked:
		fmt.Fprintf(&b, "%s marked as holiday: %s\n", ev.DateKey, ev.Name)
	case domain.EventHolidayRemoved:
		fmt.Fprintf(&b, "Holiday removed for %s\n", ev.DateKey)
	default:
		return "", false
	}

	return strings.TrimRight(b.String(), "\n"), true
}

func writeBookingLines(b *strings.Builder, ev domain.BookingEvent) {
	if ev.Name != "" {
		fmt.Fprintf(b, "Name: %s\n", ev.Name)
	}
	fmt.Fprintf(b, "Date: %s (%s)\n", ev.DateKey, ev.Slot)
	fmt.Fprintf(b, "ID: %s\n", ev.BookingID)
}
