package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/example/airport-shuttle/internal/models"
)

// ErrVersionConflict is returned by UpdateTrip when the stored version moved on.
var ErrVersionConflict = errors.New("trip version conflict")

// ErrPaymentStateConflict is returned by TransitionPayment when the booking is
// no longer in the expected payment status.
var ErrPaymentStateConflict = errors.New("payment status conflict")

type TripFilter struct {
	Status    models.TripStatus // empty matches any status
	PickupID  string
	DropoffID string
	From      time.Time
	MinSeats  int
	Limit     int
}

// TripStore defines persistence operations for shared trips. UpdateTrip is an
// atomic compare-and-swap on Version: it writes t only if the stored version
// equals expectedVersion, then sets t.Version to expectedVersion+1.
type TripStore interface {
	CreateTrip(ctx context.Context, t *models.Trip) error
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	UpdateTrip(ctx context.Context, t *models.Trip, expectedVersion int64) error
	ListTrips(ctx context.Context, f TripFilter) ([]*models.Trip, error)
	// ListDue returns non-terminal trips scheduled before the given time.
	ListDue(ctx context.Context, before time.Time, limit int) ([]*models.Trip, error)
}

type BookingStore interface {
	SaveBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	UpdateBooking(ctx context.Context, b *models.Booking) error
	// TransitionPayment atomically moves a booking's payment status from one
	// value to another and fails with ErrPaymentStateConflict otherwise.
	TransitionPayment(ctx context.Context, id string, from, to models.PaymentStatus, at time.Time) error
	ListBookings(ctx context.Context, userID string) ([]*models.Booking, error)
}

type ReviewStore interface {
	SaveReview(ctx context.Context, r *models.Review) error
	ListReviews(ctx context.Context, userID string) ([]*models.Review, error)
}

// Store is everything the server needs from a backend.
type Store interface {
	TripStore
	BookingStore
	ReviewStore
}

type MemoryStore struct {
	mu       sync.RWMutex
	trips    map[string]*models.Trip
	bookings map[string]*models.Booking
	reviews  map[string][]*models.Review
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trips:    make(map[string]*models.Trip),
		bookings: make(map[string]*models.Booking),
		reviews:  make(map[string][]*models.Review),
	}
}

func (m *MemoryStore) CreateTrip(ctx context.Context, t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[t.ID]; ok {
		return errors.New("trip already exists")
	}
	m.trips[t.ID] = t.Clone()
	return nil
}

func (m *MemoryStore) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return t.Clone(), nil
}

func (m *MemoryStore) UpdateTrip(ctx context.Context, t *models.Trip, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.trips[t.ID]
	if !ok {
		return models.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return ErrVersionConflict
	}
	t.Version = expectedVersion + 1
	m.trips[t.ID] = t.Clone()
	return nil
}

func (m *MemoryStore) ListTrips(ctx context.Context, f TripFilter) ([]*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Trip, 0)
	for _, t := range m.trips {
		if f.matches(t) {
			out = append(out, t.Clone())
		}
	}
	sortBySchedule(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) ListDue(ctx context.Context, before time.Time, limit int) ([]*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Trip, 0)
	for _, t := range m.trips {
		if !t.Status.Terminal() && t.ScheduledFor.Before(before) {
			out = append(out, t.Clone())
		}
	}
	sortBySchedule(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *MemoryStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) UpdateBooking(ctx context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *MemoryStore) TransitionPayment(ctx context.Context, id string, from, to models.PaymentStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return models.ErrNotFound
	}
	if b.PaymentStatus != from {
		return ErrPaymentStateConflict
	}
	cp := *b
	cp.PaymentStatus = to
	cp.UpdatedAt = at
	m.bookings[id] = &cp
	return nil
}

func (m *MemoryStore) ListBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Booking, 0)
	for _, b := range m.bookings {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveReview(ctx context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.reviews[r.UserID] = append(m.reviews[r.UserID], &cp)
	return nil
}

func (m *MemoryStore) ListReviews(ctx context.Context, userID string) ([]*models.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.reviews[userID]
	out := make([]*models.Review, 0, len(src))
	for _, r := range src {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f TripFilter) matches(t *models.Trip) bool {
	switch {
	case f.Status != "" && t.Status != f.Status:
		return false
	case f.PickupID != "" && t.Pickup.ID != f.PickupID:
		return false
	case f.DropoffID != "" && t.Dropoff.ID != f.DropoffID:
		return false
	case !f.From.IsZero() && t.ScheduledFor.Before(f.From):
		return false
	case f.MinSeats > 0 && t.AvailableSeats() < f.MinSeats:
		return false
	}
	return true
}

func sortBySchedule(ts []*models.Trip) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].ScheduledFor.Before(ts[j].ScheduledFor) })
}
