package route

import "github.com/example/airport-shuttle/internal/models"

// Catalog is the lookup the validator needs from the station catalog.
type Catalog interface {
	Lookup(id string) (models.Station, bool)
}

type Validator struct {
	Catalog Catalog
}

func NewValidator(c Catalog) *Validator { return &Validator{Catalog: c} }

// Result is the JSON shape returned to clients.
type Result struct {
	Valid  bool             `json:"valid"`
	Reason models.ErrorKind `json:"reason,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Validate reports whether pickupID -> dropoffID is a bookable route.
func (v *Validator) Validate(pickupID, dropoffID string) error {
	_, _, err := v.Resolve(pickupID, dropoffID)
	return err
}

// Resolve validates the route and returns both stations.
func (v *Validator) Resolve(pickupID, dropoffID string) (models.Station, models.Station, error) {
	pickup, ok1 := v.Catalog.Lookup(pickupID)
	dropoff, ok2 := v.Catalog.Lookup(dropoffID)
	if !ok1 || !ok2 {
		return models.Station{}, models.Station{}, models.ErrUnknownStation
	}
	if !ValidPair(pickup, dropoff) {
		return models.Station{}, models.Station{}, models.ErrInvalidRoutePair
	}
	return pickup, dropoff, nil
}

func (v *Validator) Check(pickupID, dropoffID string) Result {
	if err := v.Validate(pickupID, dropoffID); err != nil {
		return Result{Reason: models.KindOf(err), Error: err.Error()}
	}
	return Result{Valid: true}
}

// ValidPair: exactly one end is an airport and the other a train or taxi station.
func ValidPair(a, b models.Station) bool {
	return (a.IsAirport() && groundSide(b)) || (groundSide(a) && b.IsAirport())
}

func groundSide(s models.Station) bool {
	return s.Category == models.CategoryTrain || s.Category == models.CategoryTaxi
}
