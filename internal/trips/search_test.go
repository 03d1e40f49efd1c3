package trips

import (
	"context"
	"testing"
	"time"

	"github.com/example/airport-shuttle/internal/logging"
	"github.com/example/airport-shuttle/internal/models"
	"github.com/example/airport-shuttle/internal/storage"
)

func TestSearchSortsAndFiltersByPerPersonFare(t *testing.T) {
	m := newTestManager(storage.NewMemoryStore(), nil)
	ctx := context.Background()

	// CDG -> left bank: 65 total, 65 per person alone
	solo, err := m.Create(ctx, "u1", "cdg", "gare-de-lyon", base.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	// ORLY -> right bank: 44 total, split between two riders is 22
	shared, err := m.Create(ctx, "u2", "orly", "opera", base.Add(5*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join(ctx, shared.ID, "u3"); err != nil {
		t.Fatal(err)
	}

	byDate, err := m.Search(ctx, Filter{Sort: SortByDate})
	if err != nil {
		t.Fatal(err)
	}
	if len(byDate) != 2 || byDate[0].ID != solo.ID {
		t.Fatalf("expected date order, got %+v", byDate)
	}

	byPrice, err := m.Search(ctx, Filter{Sort: SortByPrice})
	if err != nil {
		t.Fatal(err)
	}
	if byPrice[0].ID != shared.ID || byPrice[0].PerPersonFare != 22 || byPrice[0].AvailableSeats != 2 {
		t.Fatalf("expected cheapest per person first, got %+v", byPrice[0])
	}

	cheap, err := m.Search(ctx, Filter{MaxPrice: 30})
	if err != nil {
		t.Fatal(err)
	}
	if len(cheap) != 1 || cheap[0].ID != shared.ID {
		t.Fatalf("expected only the shared trip under 30, got %+v", cheap)
	}

	fromOrly, err := m.Search(ctx, Filter{PickupID: "orly", MinSeats: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(fromOrly) != 0 {
		t.Fatalf("shared trip has only 2 seats left, got %+v", fromOrly)
	}
}

func TestSearchSkipsCancelledTrips(t *testing.T) {
	m := newTestManager(storage.NewMemoryStore(), nil)
	ctx := context.Background()
	trip := mustCreate(t, m, "u1")
	if _, err := m.Cancel(ctx, trip.ID, "u1"); err != nil {
		t.Fatal(err)
	}
	got, err := m.Search(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("cancelled trips are not listed, got %d", len(got))
	}
}

func TestSweeperCompletesDueTrips(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newTestManager(store, nil)
	ctx := context.Background()
	early := mustCreate(t, m, "u1")
	late, err := m.Create(ctx, "u2", "orly", "opera", base.Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	cancelled := mustCreate(t, m, "u3")
	if _, err := m.Cancel(ctx, cancelled.ID, "u3"); err != nil {
		t.Fatal(err)
	}

	m.Now = func() time.Time { return base.Add(5 * time.Hour) }
	s := &Sweeper{Manager: m, Interval: time.Minute, Grace: time.Hour, Logger: logging.Discard()}
	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected one completed trip, got %d", n)
	}
	got, _ := store.GetTrip(ctx, early.ID)
	if got.Status != models.TripCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	got, _ = store.GetTrip(ctx, late.ID)
	if got.Status != models.TripOpen {
		t.Fatalf("future trip must stay open, got %s", got.Status)
	}
	got, _ = store.GetTrip(ctx, cancelled.ID)
	if got.Status != models.TripCancelled {
		t.Fatalf("cancelled trip must stay cancelled, got %s", got.Status)
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	m := newTestManager(storage.NewMemoryStore(), nil)
	s := &Sweeper{Manager: m, Interval: time.Millisecond, Logger: logging.Discard()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
