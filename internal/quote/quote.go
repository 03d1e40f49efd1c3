// Package quote prices a route for display: fixed fare, per-person split and
// an informational drive time.
package quote

import (
	"context"

	"github.com/example/airport-shuttle/internal/eta"
	"github.com/example/airport-shuttle/internal/fare"
	"github.com/example/airport-shuttle/internal/geo"
	"github.com/example/airport-shuttle/internal/models"
	"github.com/example/airport-shuttle/internal/route"
)

type Quote struct {
	PickupID      string        `json:"pickup_id"`
	DropoffID     string        `json:"dropoff_id"`
	Fare          models.Amount `json:"fare"`
	Passengers    int           `json:"passengers"`
	PerPersonFare models.Amount `json:"per_person_fare"`
	Currency      string        `json:"currency"`
	Bank          fare.Bank     `json:"bank"`
	DistanceKm    float64       `json:"distance_km"`
	RoadKm        float64       `json:"road_km,omitempty"`
	ETASeconds    float64       `json:"eta_seconds"`
	ETASource     string        `json:"eta_source"`
}

type Service struct {
	Routes          *route.Validator
	DefaultSpeedMps float64
	ETARouter       eta.Router // optional, usually OSRM
	ETACache        *eta.Cache // optional
}

// Quote never lets the ETA influence the fare; an ETA failure falls back to
// the naive estimate.
func (s *Service) Quote(ctx context.Context, pickupID, dropoffID string, passengers int) (Quote, error) {
	pickup, dropoff, err := s.Routes.Resolve(pickupID, dropoffID)
	if err != nil {
		return Quote{}, err
	}
	total, err := fare.Calculate(pickup, dropoff)
	if err != nil {
		return Quote{}, err
	}
	if passengers < 1 {
		passengers = 1
	}
	ground := pickup
	if pickup.IsAirport() {
		ground = dropoff
	}
	q := Quote{
		PickupID:      pickupID,
		DropoffID:     dropoffID,
		Fare:          total,
		Passengers:    passengers,
		PerPersonFare: fare.PerPerson(total, passengers),
		Currency:      models.Currency,
		Bank:          fare.BankOf(ground.Location),
		DistanceKm:    geo.DistanceKm(pickup.Location, dropoff.Location),
	}
	leg, source := s.leg(ctx, pickup, dropoff)
	q.ETASeconds, q.ETASource = leg.Seconds, source
	if source != "estimate" {
		q.RoadKm = leg.Meters / 1000
	}
	return q, nil
}

func (s *Service) leg(ctx context.Context, pickup, dropoff models.Station) (eta.Leg, string) {
	if s.ETACache != nil {
		if l, ok := s.ETACache.Lookup(pickup.ID, dropoff.ID); ok {
			return l, "cache"
		}
	}
	if s.ETARouter != nil {
		if l, err := s.ETARouter.Leg(ctx, pickup.Location, dropoff.Location); err == nil {
			if s.ETACache != nil {
				s.ETACache.Remember(pickup.ID, dropoff.ID, l)
			}
			return l, "osrm"
		}
	}
	return eta.StraightLine(pickup.Location, dropoff.Location, s.DefaultSpeedMps), "estimate"
}
