package geo

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/example/airport-shuttle/internal/models"
)

// Lookup resolves the station ids stored in the GEO set.
type Lookup interface {
	Lookup(id string) (models.Station, bool)
}

// RedisGeo implements Geo using Redis GEO commands. Only ids and positions
// live in Redis; station details come from the catalog.
type RedisGeo struct {
	client   *redis.Client
	key      string
	radiusKm float64
	stations Lookup
}

func NewRedisGeo(client *redis.Client, key string, radiusKm float64, stations Lookup) *RedisGeo {
	if radiusKm <= 0 {
		radiusKm = 50
	}
	return &RedisGeo{client: client, key: key, radiusKm: radiusKm, stations: stations}
}

func (r *RedisGeo) Upsert(ctx context.Context, s models.Station) error {
	return r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: s.Location.Lon, Latitude: s.Location.Lat, Name: s.ID}).Err()
}

func (r *RedisGeo) Nearby(ctx context.Context, lat, lon float64, limit int) ([]Hit, error) {
	res, err := r.client.GeoSearchLocation(ctx, r.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lon,
			Latitude:   lat,
			Radius:     r.radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Hit, 0, len(res))
	for _, g := range res {
		s, ok := r.stations.Lookup(g.Name)
		if !ok {
			// removed from the catalog since it was indexed
			continue
		}
		out = append(out, Hit{Station: s, DistanceKm: g.Dist})
	}
	return out, nil
}
