package fare

import "github.com/example/airport-shuttle/internal/models"

// SeineLatitude splits right bank (>=) from left bank (<).
const SeineLatitude = 48.8566

type Bank string

const (
	RightBank Bank = "right"
	LeftBank  Bank = "left"
)

type rates struct {
	right, left models.Amount
}

// fixed rates per airport, in euros
var table = map[string]rates{
	"CDG":  {right: 56, left: 65},
	"ORLY": {right: 44, left: 36},
}

func BankOf(c models.Coord) Bank {
	if c.Lat < SeineLatitude {
		return LeftBank
	}
	return RightBank
}

// Calculate returns the total fare for an airport transfer. Pairs that are not
// exactly one airport plus one ground station return ErrNotApplicable.
func Calculate(pickup, dropoff models.Station) (models.Amount, error) {
	var airport, ground models.Station
	switch {
	case pickup.IsAirport() && !dropoff.IsAirport():
		airport, ground = pickup, dropoff
	case dropoff.IsAirport() && !pickup.IsAirport():
		airport, ground = dropoff, pickup
	default:
		return 0, models.ErrNotApplicable
	}
	r, ok := table[airport.AirportCode]
	if !ok {
		return 0, models.ErrNotApplicable
	}
	if BankOf(ground.Location) == LeftBank {
		return r.left, nil
	}
	return r.right, nil
}

// PerPerson splits total across passengers rounding up. Counts below 1 count as 1.
func PerPerson(total models.Amount, passengers int) models.Amount {
	n := models.Amount(passengers)
	if n < 1 {
		n = 1
	}
	q := total / n
	if total%n > 0 {
		q++
	}
	return q
}
