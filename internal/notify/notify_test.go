package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/resortbook/internal/domain"
)

type fakeTelegram struct {
	mu       sync.Mutex
	paths    []string
	messages []sendMessageRequest
	failChat int64
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.messages = append(f.messages, req)
	fail := req.ChatID == f.failChat
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
		return
	}
	_, _ = io.WriteString(w, `{"ok":true,"result":{}}`)
}

func TestTelegramClient_SendMessage(t *testing.T) {
	fake := &fakeTelegram{failChat: 13}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := NewTelegramClient(srv.URL+"/", "123:abc", time.Second)

	require.NoError(t, c.SendMessage(context.Background(), 42, "hello"))
	assert.Equal(t, []string{"/bot123:abc/sendMessage"}, fake.paths)
	assert.Equal(t, sendMessageRequest{ChatID: 42, Text: "hello"}, fake.messages[0])

	err := c.SendMessage(context.Background(), 13, "hello")
	assert.ErrorIs(t, err, ErrTelegram)
	assert.ErrorContains(t, err, "chat not found")
}

func TestTelegramClient_ErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewTelegramClient(srv.URL, "secret-token", time.Second)
	err := c.SendMessage(context.Background(), 1, "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

type recordingSender struct {
	sent map[int64][]string
	fail int64
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string) error {
	if chatID == s.fail {
		return errors.New("blocked by user")
	}
	if s.sent == nil {
		s.sent = make(map[int64][]string)
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return nil
}

func TestAdminNotifier_Handle(t *testing.T) {
	sender := &recordingSender{fail: 2}
	n := NewAdminNotifier(sender, nil, []int64{1, 2, 3}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	id := uuid.MustParse("7d1c7c3e-5b7a-4c3e-9a57-1a2b3c4d5e6f")
	n.Handle(context.Background(), domain.BookingEvent{
		Type:      domain.EventBookingCreated,
		BookingID: id,
		DateKey:   "2025-06-10",
		Slot:      domain.SlotMorning,
		Status:    domain.StatusPending,
		Name:      "Nimal",
	})

	want := "New pending booking request\nName: Nimal\nDate: 2025-06-10 (morning)\nID: " + id.String()
	assert.Equal(t, []string{want}, sender.sent[1])
	assert.Equal(t, []string{want}, sender.sent[3])
	assert.Empty(t, sender.sent[2])
}

type fakeClaims struct {
	claimed map[uuid.UUID]bool
	err     error
}

func (c *fakeClaims) Claim(_ context.Context, _ string, ev domain.BookingEvent) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if c.claimed[ev.ID] {
		return false, nil
	}
	c.claimed[ev.ID] = true
	return true, nil
}

func TestAdminNotifier_ClaimedEventsAreDeliveredOnce(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	claims := &fakeClaims{claimed: make(map[uuid.UUID]bool)}
	first := &recordingSender{}
	second := &recordingSender{}

	ev := domain.BookingEvent{
		ID:      uuid.New(),
		Type:    domain.EventHolidayMarked,
		DateKey: "2025-12-25",
		Name:    "Christmas",
	}
	NewAdminNotifier(first, claims, []int64{1}, log).Handle(context.Background(), ev)
	NewAdminNotifier(second, claims, []int64{1}, log).Handle(context.Background(), ev)

	assert.Len(t, first.sent[1], 1)
	assert.Empty(t, second.sent[1])

	claims.err = errors.New("redis down")
	ev.ID = uuid.New()
	NewAdminNotifier(second, claims, []int64{1}, log).Handle(context.Background(), ev)
	assert.Len(t, second.sent[1], 1, "a failed claim still delivers")
}

func TestFormat(t *testing.T) {
	text, ok := Format(domain.BookingEvent{
		Type:           domain.EventStatusChanged,
		DateKey:        "2025-06-10",
		Slot:           domain.SlotEvening,
		Status:         domain.StatusConfirmed,
		PreviousStatus: domain.StatusPending,
		ActorID:        "admin-1",
	})
	require.True(t, ok)
	assert.Contains(t, text, "pending -> confirmed")
	assert.Contains(t, text, "By: admin-1")

	text, ok = Format(domain.BookingEvent{Type: domain.EventHolidayMarked, DateKey: "2025-12-25", Name: "Christmas"})
	require.True(t, ok)
	assert.Equal(t, "2025-12-25 marked as holiday: Christmas", text)

	_, ok = Format(domain.BookingEvent{Type: "unknown"})
	assert.False(t, ok)
}
