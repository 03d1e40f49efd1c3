// Package eta reports how long the drive between two stations takes. The
// number is informational: fares never depend on it.
package eta

import (
	"context"
	"sync"
	"time"

	"github.com/example/airport-shuttle/internal/geo"
	"github.com/example/airport-shuttle/internal/models"
)

// Leg is one driving estimate.
type Leg struct {
	Seconds float64
	Meters  float64
}

// Router asks a routing engine for the drive between two points.
type Router interface {
	Leg(ctx context.Context, from, to models.Coord) (Leg, error)
}

// stationPair is directional: the way back can take a different road.
type stationPair struct {
	pickup, dropoff string
}

type cachedLeg struct {
	leg     Leg
	expires time.Time
}

// Cache remembers legs per pickup/dropoff station pair. Station positions
// are fixed, so the ids are a stable key.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	legs map[stationPair]cachedLeg
}

// NewCache keeps quote legs for ttl. A ttl of zero or less remembers nothing.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now, legs: make(map[stationPair]cachedLeg)}
}

// Lookup returns the leg for pickup to dropoff while it is fresh. A stale
// leg is dropped on the way out.
func (c *Cache) Lookup(pickupID, dropoffID string) (Leg, bool) {
	k := stationPair{pickupID, dropoffID}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.legs[k]
	if !ok {
		return Leg{}, false
	}
	if !c.now().Before(e.expires) {
		delete(c.legs, k)
		return Leg{}, false
	}
	return e.leg, true
}

// Remember records what the router said about pickup to dropoff.
func (c *Cache) Remember(pickupID, dropoffID string, l Leg) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.legs[stationPair{pickupID, dropoffID}] = cachedLeg{leg: l, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Len counts entries, stale ones included until they are looked up.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.legs)
}

// DefaultSpeedMps is about 40 km/h, a fair average for Paris airport runs.
const DefaultSpeedMps = 11.0

// StraightLine is used when no router answers: great-circle metres at a
// flat speed.
func StraightLine(from, to models.Coord, speedMps float64) Leg {
	if speedMps <= 0 {
		speedMps = DefaultSpeedMps
	}
	m := geo.DistanceKm(from, to) * 1000
	return Leg{Seconds: m / speedMps, Meters: m}
}
