package trips

import (
	"context"
	"sort"
	"time"

	"github.com/example/airport-shuttle/internal/fare"
	"github.com/example/airport-shuttle/internal/models"
	"github.com/example/airport-shuttle/internal/storage"
)

type SortBy string

const (
	SortByDate  SortBy = "date"
	SortByPrice SortBy = "price"
)

type Filter struct {
	PickupID  string
	DropoffID string
	From      time.Time
	MinSeats  int
	MaxPrice  models.Amount // per person, 0 means no limit
	Sort      SortBy
	Limit     int
}

// Listing is a trip with its per-person fare recomputed from the current
// passenger count.
type Listing struct {
	*models.Trip
	PerPersonFare  models.Amount `json:"per_person_fare"`
	AvailableSeats int           `json:"available_seats"`
}

func NewListing(t *models.Trip) Listing {
	return Listing{Trip: t, PerPersonFare: fare.PerPerson(t.Fare, t.CurrentPassengers), AvailableSeats: t.AvailableSeats()}
}

// Search lists open trips matching f.
func (m *Manager) Search(ctx context.Context, f Filter) ([]Listing, error) {
	from := f.From
	if from.IsZero() {
		from = m.now()
	}
	ts, err := m.Store.ListTrips(ctx, storage.TripFilter{
		Status:    models.TripOpen,
		PickupID:  f.PickupID,
		DropoffID: f.DropoffID,
		From:      from,
		MinSeats:  f.MinSeats,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(ts))
	for _, t := range ts {
		l := NewListing(t)
		if f.MaxPrice > 0 && l.PerPersonFare > f.MaxPrice {
			continue
		}
		out = append(out, l)
	}
	if f.Sort == SortByPrice {
		sort.SliceStable(out, func(i, j int) bool { return out[i].PerPersonFare < out[j].PerPersonFare })
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
