package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/airport-shuttle/internal/catalog"
	"github.com/example/airport-shuttle/internal/eta"
	"github.com/example/airport-shuttle/internal/fare"
	"github.com/example/airport-shuttle/internal/models"
	"github.com/example/airport-shuttle/internal/route"
)

type fakeRouter struct {
	leg   eta.Leg
	err   error
	calls int
}

func (f *fakeRouter) Leg(ctx context.Context, from, to models.Coord) (eta.Leg, error) {
	f.calls++
	return f.leg, f.err
}

func newService(r eta.Router, cache *eta.Cache) *Service {
	return &Service{Routes: route.NewValidator(catalog.Default()), DefaultSpeedMps: 10, ETARouter: r, ETACache: cache}
}

func TestQuoteSplitsFare(t *testing.T) {
	s := newService(nil, nil)
	q, err := s.Quote(context.Background(), "orly", "saint-antoine", 3)
	if err != nil {
		t.Fatal(err)
	}
	// ORLY to the left bank is 36, 36/3 = 12
	if q.Fare != 36 || q.PerPersonFare != 12 || q.Bank != fare.LeftBank || q.ETASource != "estimate" || q.RoadKm != 0 {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestQuoteUsesOSRMThenCache(t *testing.T) {
	c := &fakeRouter{leg: eta.Leg{Seconds: 2400, Meters: 31000}}
	s := newService(c, eta.NewCache(time.Minute))
	ctx := context.Background()
	q, err := s.Quote(ctx, "cdg", "opera", 2)
	if err != nil {
		t.Fatal(err)
	}
	if q.ETASeconds != 2400 || q.ETASource != "osrm" || q.RoadKm != 31 || q.PerPersonFare != 28 {
		t.Fatalf("unexpected quote %+v", q)
	}
	q, _ = s.Quote(ctx, "cdg", "opera", 2)
	if q.ETASource != "cache" || q.RoadKm != 31 || c.calls != 1 {
		t.Fatalf("expected cached eta, got %+v after %d calls", q, c.calls)
	}
}

func TestQuoteFallsBackWhenOSRMFails(t *testing.T) {
	s := newService(&fakeRouter{err: errors.New("down")}, nil)
	q, err := s.Quote(context.Background(), "cdg", "opera", 1)
	if err != nil {
		t.Fatal(err)
	}
	if q.ETASource != "estimate" || q.ETASeconds <= 0 || q.Fare != 56 {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestQuoteRejectsInvalidRoute(t *testing.T) {
	s := newService(nil, nil)
	if _, err := s.Quote(context.Background(), "opera", "gare-du-nord", 1); !errors.Is(err, models.ErrInvalidRoutePair) {
		t.Fatalf("expected invalid pair, got %v", err)
	}
}
