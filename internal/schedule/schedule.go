package schedule

import (
	"time"

	"github.com/example/airport-shuttle/internal/models"
)

const (
	MinLead       = 30 * time.Minute
	MaxLeadMonths = 3

	MaxRiders        = 3
	MaxRidersCreator = models.DefaultMaxPassengers
)

// ValidateAt checks date against the booking window relative to now.
func ValidateAt(date, now time.Time) error {
	if date.Before(now.Add(MinLead)) {
		return models.ErrTooSoon
	}
	if date.After(now.AddDate(0, MaxLeadMonths, 0)) {
		return models.ErrTooFarAhead
	}
	return nil
}

func Validate(date time.Time) error { return ValidateAt(date, time.Now()) }

// ValidatePassengers allows 1..3 riders, or up to 4 when the creator counts themself.
func ValidatePassengers(count int, isCreator bool) error {
	limit := MaxRiders
	if isCreator {
		limit = MaxRidersCreator
	}
	if count < 1 || count > limit {
		return models.ErrInvalidPassengers
	}
	return nil
}
