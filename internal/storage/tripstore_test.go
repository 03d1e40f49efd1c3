package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/airport-shuttle/internal/models"
)

func newTrip(id string, at time.Time) *models.Trip {
	return &models.Trip{
		ID:                id,
		CreatorID:         "creator",
		Participants:      []string{"creator"},
		Pickup:            models.Station{ID: "cdg"},
		Dropoff:           models.Station{ID: "opera"},
		ScheduledFor:      at,
		MaxPassengers:     4,
		CurrentPassengers: 1,
		Status:            models.TripOpen,
		Fare:              56,
		Version:           1,
	}
}

func TestMemoryStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.CreateTrip(ctx, newTrip("t1", time.Now())); err != nil {
		t.Fatal(err)
	}

	a, _ := m.GetTrip(ctx, "t1")
	b, _ := m.GetTrip(ctx, "t1")

	a.Participants = append(a.Participants, "u1")
	a.CurrentPassengers = 2
	if err := m.UpdateTrip(ctx, a, 1); err != nil {
		t.Fatalf("first update should win: %v", err)
	}
	if a.Version != 2 {
		t.Fatalf("expected version bump to 2, got %d", a.Version)
	}

	b.Participants = append(b.Participants, "u2")
	b.CurrentPassengers = 2
	if err := m.UpdateTrip(ctx, b, 1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, _ := m.GetTrip(ctx, "t1")
	if got.CurrentPassengers != 2 || got.Participants[1] != "u1" {
		t.Fatalf("stale write leaked: %+v", got)
	}
	if err := m.UpdateTrip(ctx, newTrip("missing", time.Now()), 1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	_ = m.CreateTrip(ctx, newTrip("t1", time.Now()))
	got, _ := m.GetTrip(ctx, "t1")
	got.Participants[0] = "someone-else"
	again, _ := m.GetTrip(ctx, "t1")
	if again.Participants[0] != "creator" {
		t.Fatal("store leaked its internal participants slice")
	}
}

func TestMemoryStoreListTripsFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	full := newTrip("full", base.Add(time.Hour))
	full.Status = models.TripFull
	full.CurrentPassengers = 4
	full.Participants = []string{"creator", "a", "b", "c"}
	other := newTrip("other", base.Add(2*time.Hour))
	other.Dropoff = models.Station{ID: "gare-de-lyon"}

	for _, tr := range []*models.Trip{newTrip("late", base.Add(3*time.Hour)), newTrip("early", base), full, other} {
		_ = m.CreateTrip(ctx, tr)
	}

	got, _ := m.ListTrips(ctx, TripFilter{Status: models.TripOpen, DropoffID: "opera"})
	if len(got) != 2 || got[0].ID != "early" || got[1].ID != "late" {
		t.Fatalf("unexpected open trips to opera: %v", ids(got))
	}
	got, _ = m.ListTrips(ctx, TripFilter{From: base.Add(90 * time.Minute)})
	if len(got) != 2 {
		t.Fatalf("expected 2 trips after from, got %v", ids(got))
	}
	got, _ = m.ListTrips(ctx, TripFilter{MinSeats: 1, Limit: 1})
	if len(got) != 1 || got[0].ID != "early" {
		t.Fatalf("unexpected limited result: %v", ids(got))
	}

	due, _ := m.ListDue(ctx, base.Add(90*time.Minute), 10)
	if len(due) != 2 {
		t.Fatalf("expected early and full to be due, got %v", ids(due))
	}
}

func TestMemoryStoreBookingsAndReviews(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	b := &models.Booking{ID: "b1", UserID: "u1", PaymentStatus: models.PaymentPending, CreatedAt: time.Now()}
	_ = m.SaveBooking(ctx, b)
	b.PaymentStatus = models.PaymentCompleted
	if got, _ := m.GetBooking(ctx, "b1"); got.PaymentStatus != models.PaymentPending {
		t.Fatal("booking aliased caller struct")
	}
	if err := m.UpdateBooking(ctx, b); err != nil {
		t.Fatal(err)
	}
	list, _ := m.ListBookings(ctx, "u1")
	if len(list) != 1 || list[0].PaymentStatus != models.PaymentCompleted {
		t.Fatalf("unexpected bookings: %+v", list)
	}
	if _, err := m.GetBooking(ctx, "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	old := &models.Review{ID: "r1", UserID: "u1", Rating: 4, CreatedAt: time.Now().Add(-time.Hour)}
	recent := &models.Review{ID: "r2", UserID: "u1", Rating: 5, CreatedAt: time.Now()}
	_ = m.SaveReview(ctx, old)
	_ = m.SaveReview(ctx, recent)
	rs, _ := m.ListReviews(ctx, "u1")
	if len(rs) != 2 || rs[0].ID != "r2" {
		t.Fatalf("expected newest review first, got %+v", rs)
	}
}

func TestMemoryStoreTransitionPayment(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	_ = m.SaveBooking(ctx, &models.Booking{ID: "b1", UserID: "u1", PaymentStatus: models.PaymentPending})

	if err := m.TransitionPayment(ctx, "b1", models.PaymentPending, models.PaymentProcessing, time.Now()); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := m.TransitionPayment(ctx, "b1", models.PaymentPending, models.PaymentProcessing, time.Now()); !errors.Is(err, ErrPaymentStateConflict) {
		t.Fatalf("second claim must conflict, got %v", err)
	}
	if got, _ := m.GetBooking(ctx, "b1"); got.PaymentStatus != models.PaymentProcessing {
		t.Fatalf("expected processing, got %s", got.PaymentStatus)
	}
	if err := m.TransitionPayment(ctx, "nope", models.PaymentPending, models.PaymentProcessing, time.Now()); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreConcurrentPaymentClaims(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	_ = m.SaveBooking(ctx, &models.Booking{ID: "b1", UserID: "u1", PaymentStatus: models.PaymentPending})

	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.TransitionPayment(ctx, "b1", models.PaymentPending, models.PaymentProcessing, time.Now()) == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if won != 1 {
		t.Fatalf("exactly one claim must win, got %d", won)
	}
}

func ids(ts []*models.Trip) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}
