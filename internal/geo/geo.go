package geo

import (
	"context"
	"sort"
	"sync"

	"github.com/umahmood/haversine"

	"github.com/example/airport-shuttle/internal/models"
)

// Hit is a station with its distance from the search point.
type Hit struct {
	Station    models.Station `json:"station"`
	DistanceKm float64        `json:"distance_km"`
}

// Geo finds stations near a point.
type Geo interface {
	Nearby(ctx context.Context, lat, lon float64, limit int) ([]Hit, error)
	Upsert(ctx context.Context, s models.Station) error
}

// DistanceKm is the great-circle distance between two points.
func DistanceKm(a, b models.Coord) float64 {
	_, km := haversine.Distance(haversine.Coord{Lat: a.Lat, Lon: a.Lon}, haversine.Coord{Lat: b.Lat, Lon: b.Lon})
	return km
}

type Index struct {
	mu       sync.RWMutex
	stations map[string]models.Station
}

func NewIndex() *Index {
	return &Index{stations: make(map[string]models.Station)}
}

func (g *Index) Upsert(ctx context.Context, s models.Station) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stations[s.ID] = s
	return nil
}

// naive scan, the catalog is small
func (g *Index) Nearby(ctx context.Context, lat, lon float64, limit int) ([]Hit, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p := models.Coord{Lat: lat, Lon: lon}
	out := make([]Hit, 0, len(g.stations))
	for _, s := range g.stations {
		out = append(out, Hit{Station: s, DistanceKm: DistanceKm(p, s.Location)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Seed loads every station into g.
func Seed(ctx context.Context, g Geo, stations []models.Station) error {
	for _, s := range stations {
		if err := g.Upsert(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
