package route

import (
	"errors"
	"testing"

	"github.com/example/airport-shuttle/internal/catalog"
	"github.com/example/airport-shuttle/internal/models"
)

func TestValidateScenarios(t *testing.T) {
	v := NewValidator(catalog.Default())
	cases := []struct {
		name            string
		pickup, dropoff string
		want            error
	}{
		{"airport to taxi", "cdg", "opera", nil},
		{"train to airport", "gare-montparnasse", "orly", nil},
		{"both airports", "cdg", "orly", models.ErrInvalidRoutePair},
		{"taxi to train", "opera", "gare-de-lyon", models.ErrInvalidRoutePair},
		{"unknown pickup", "mars", "orly", models.ErrUnknownStation},
		{"unknown dropoff", "cdg", "", models.ErrUnknownStation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.pickup, tc.dropoff)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateEveryCatalogPair(t *testing.T) {
	c := catalog.Default()
	v := NewValidator(c)
	for _, a := range c.All() {
		for _, b := range c.All() {
			airports := 0
			if a.IsAirport() {
				airports++
			}
			if b.IsAirport() {
				airports++
			}
			want := airports == 1
			got := v.Validate(a.ID, b.ID) == nil
			if got != want {
				t.Fatalf("%s -> %s: valid=%v, want %v", a.ID, b.ID, got, want)
			}
		}
	}
}

func TestCheckResult(t *testing.T) {
	v := NewValidator(catalog.Default())
	if r := v.Check("cdg", "opera"); !r.Valid || r.Reason != "" {
		t.Fatalf("unexpected result %+v", r)
	}
	if r := v.Check("cdg", "orly"); r.Valid || r.Reason != models.KindInvalidRoutePair {
		t.Fatalf("unexpected result %+v", r)
	}
}
