// Package memory keeps every repository in process memory. A single mutex
// serializes transactions, so RunTx gives the same isolation a SERIALIZABLE
// database transaction would.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/repository"
)

// Operation names accepted by InjectFault.
const (
	OpBookingCreate       = "bookings.create"
	OpBookingGet          = "bookings.get"
	OpBookingList         = "bookings.list"
	OpBookingUpdateStatus = "bookings.update_status"
	OpAuditAppend         = "audit.append"
	OpHolidayWrite        = "holidays.write"
	OpHolidayRead         = "holidays.read"
	OpAvailabilityGet     = "availability.get"
	OpAvailabilityMerge   = "availability.merge"
)

type storedBooking struct {
	seq int64
	b   domain.Booking
}

type data struct {
	seq          int64
	bookings     map[uuid.UUID]*storedBooking
	audit        map[uuid.UUID][]domain.AuditLogEntry
	holidays     map[domain.DateKey]domain.Holiday
	availability map[domain.DateKey]domain.DailyAvailability
}

type fault struct {
	err       error
	remaining int
}

var _ repository.Store = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	data   data
	faults map[string]*fault
}

func NewStore() *Store {
	return &Store{
		data: data{
			bookings:     make(map[uuid.UUID]*storedBooking),
			audit:        make(map[uuid.UUID][]domain.AuditLogEntry),
			holidays:     make(map[domain.DateKey]domain.Holiday),
			availability: make(map[domain.DateKey]domain.DailyAvailability),
		},
		faults: make(map[string]*fault),
	}
}

// InjectFault makes the next times calls of op fail with err. A negative
// times fails every call until ClearFaults.
func (s *Store) InjectFault(op string, err error, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &fault{err: err, remaining: times}
}

func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]*fault)
}

// checkFault must be called with mu held.
func (s *Store) checkFault(op string) error {
	f, ok := s.faults[op]
	if !ok || f.remaining == 0 {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
	}
	return fmt.Errorf("memory.%s: %w", op, f.err)
}

func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{}
	h := handle{s: s, tx: tx}

	if err := fn(ctx, h); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i](&s.data)
		}
		return err
	}

	return nil
}

func (s *Store) Bookings() repository.BookingRepository {
	return handle{s: s}.Bookings()
}

func (s *Store) Audit() repository.AuditRepository {
	return handle{s: s}.Audit()
}

func (s *Store) Holidays() repository.HolidayRepository {
	return handle{s: s}.Holidays()
}

func (s *Store) Availability() repository.AvailabilityRepository {
	return handle{s: s}.Availability()
}

type txState struct {
	undo []func(d *data)
}

// handle binds repositories either to the store (locking per call) or to
// a running transaction (already locked).
type handle struct {
	s  *Store
	tx *txState
}

func (h handle) Bookings() repository.BookingRepository         { return &BookingRepo{h: h} }
func (h handle) Audit() repository.AuditRepository              { return &AuditRepo{h: h} }
func (h handle) Holidays() repository.HolidayRepository         { return &HolidayRepo{h: h} }
func (h handle) Availability() repository.AvailabilityRepository { return &AvailabilityRepo{h: h} }

func (h handle) do(ctx context.Context, op string, fn func(d *data) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.tx == nil {
		h.s.mu.Lock()
		defer h.s.mu.Unlock()
	}
	if err := h.s.checkFault(op); err != nil {
		return err
	}
	return fn(&h.s.data)
}

// onRollback registers an undo step; outside a transaction writes are
// final.
func (h handle) onRollback(fn func(d *data)) {
	if h.tx != nil {
		h.tx.undo = append(h.tx.undo, fn)
	}
}
