package eta

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/airport-shuttle/internal/models"
)

var (
	cdg  = models.Coord{Lat: 49.009691, Lon: 2.547925}
	nord = models.Coord{Lat: 48.8809, Lon: 2.3553}
)

func TestOSRMClientLeg(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"duration":1800.5,"distance":25000}]}`))
	}))
	defer srv.Close()

	got, err := NewOSRMClient(srv.URL).Leg(context.Background(), cdg, nord)
	if err != nil {
		t.Fatal(err)
	}
	if got.Seconds != 1800.5 || got.Meters != 25000 {
		t.Fatalf("unexpected leg %+v", got)
	}
	if path != "/route/v1/driving/2.547925,49.009691;2.355300,48.880900" {
		t.Fatalf("osrm expects lon,lat pairs, got %s", path)
	}
}

func TestOSRMClientErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		noRte  bool
	}{
		{"no route", http.StatusBadRequest, `{"code":"NoRoute","message":"Impossible route"}`, true},
		{"empty routes", http.StatusOK, `{"code":"Ok","routes":[]}`, true},
		{"server error", http.StatusInternalServerError, `oops`, false},
		{"bad input", http.StatusBadRequest, `{"code":"InvalidQuery","message":"bad coords"}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			_, err := NewOSRMClient(srv.URL).Leg(context.Background(), cdg, nord)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrNoRoute) != tc.noRte {
				t.Fatalf("ErrNoRoute=%v, got %v", tc.noRte, err)
			}
		})
	}
}

func TestCacheExpiresPerStationPair(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Remember("cdg", "gare-du-nord", Leg{Seconds: 42, Meters: 25000})
	if l, ok := c.Lookup("cdg", "gare-du-nord"); !ok || l.Seconds != 42 {
		t.Fatalf("expected hit, got %+v %v", l, ok)
	}
	if _, ok := c.Lookup("gare-du-nord", "cdg"); ok {
		t.Fatal("cache is directional")
	}
	now = now.Add(time.Minute)
	if _, ok := c.Lookup("cdg", "gare-du-nord"); ok {
		t.Fatal("expected expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("stale leg should be dropped, %d left", c.Len())
	}
}

func TestCacheWithoutTTLRemembersNothing(t *testing.T) {
	c := NewCache(0)
	c.Remember("cdg", "opera", Leg{Seconds: 1})
	if _, ok := c.Lookup("cdg", "opera"); ok || c.Len() != 0 {
		t.Fatal("zero ttl should not cache")
	}
}

func TestStraightLine(t *testing.T) {
	if l := StraightLine(cdg, cdg, 0); l.Seconds != 0 || l.Meters != 0 {
		t.Fatalf("expected zero leg, got %+v", l)
	}
	slow := StraightLine(cdg, nord, 5)
	fast := StraightLine(cdg, nord, 20)
	if slow.Seconds <= fast.Seconds || fast.Seconds <= 0 || slow.Meters != fast.Meters {
		t.Fatalf("unexpected legs slow=%+v fast=%+v", slow, fast)
	}
}
