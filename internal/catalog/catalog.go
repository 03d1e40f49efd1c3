// Package catalog holds the static station reference data. It is loaded once at
// startup and never mutated, so lookups need no locking.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/example/airport-shuttle/internal/models"
)

//go:embed stations.yaml
var defaultStations []byte

type file struct {
	Stations []models.Station `yaml:"stations"`
}

type Catalog struct {
	byID    map[string]models.Station
	ordered []models.Station
}

// Default returns the embedded Paris catalog.
func Default() *Catalog {
	c, err := Parse(defaultStations)
	if err != nil {
		panic(fmt.Sprintf("embedded stations.yaml is invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog from path, falling back to the embedded data when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultStations)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations file: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("error parsing stations: %w", err)
	}
	return New(f.Stations)
}

// New validates stations and builds a catalog. Every problem found is reported.
func New(stations []models.Station) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]models.Station, len(stations))}
	var errs []error
	for _, s := range stations {
		switch {
		case s.ID == "":
			errs = append(errs, fmt.Errorf("station %q has no id", s.Name))
			continue
		case !s.Category.Valid():
			errs = append(errs, fmt.Errorf("station %s: unknown category %q", s.ID, s.Category))
			continue
		case s.IsAirport() && s.AirportCode == "":
			errs = append(errs, fmt.Errorf("station %s: airport without airport_code", s.ID))
			continue
		}
		if _, dup := c.byID[s.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate station id %s", s.ID))
			continue
		}
		c.byID[s.ID] = s
		c.ordered = append(c.ordered, s)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Lookup(id string) (models.Station, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// All returns stations in file order.
func (c *Catalog) All() []models.Station {
	return append([]models.Station(nil), c.ordered...)
}

// ByCategory returns the stations of one category sorted by name.
func (c *Catalog) ByCategory(cat models.Category) []models.Station {
	var out []models.Station
	for _, s := range c.ordered {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) Len() int { return len(c.ordered) }
