package eta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/example/airport-shuttle/internal/models"
)

// ErrNoRoute means OSRM answered but found no drivable path.
var ErrNoRoute = errors.New("osrm: no route")

// OSRMClient is a Router backed by the OSRM route service.
type OSRMClient struct {
	Endpoint string
	Profile  string // "driving" when empty
	Client   *http.Client
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{Endpoint: endpoint, Profile: "driving", Client: &http.Client{Timeout: 2 * time.Second}}
}

type osrmReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Duration float64 `json:"duration"`
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

// OSRM takes coordinates as lon,lat.
func lonLat(c models.Coord) string {
	return strconv.FormatFloat(c.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

// Leg returns the first (fastest) route OSRM offers.
func (o *OSRMClient) Leg(ctx context.Context, from, to models.Coord) (Leg, error) {
	profile := o.Profile
	if profile == "" {
		profile = "driving"
	}
	u := o.Endpoint + "/route/v1/" + profile + "/" + lonLat(from) + ";" + lonLat(to) + "?overview=false&alternatives=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Leg{}, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return Leg{}, err
	}
	defer resp.Body.Close()

	var out osrmReply
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	switch {
	case out.Code == "NoRoute" || (decodeErr == nil && out.Code == "Ok" && len(out.Routes) == 0):
		return Leg{}, ErrNoRoute
	case resp.StatusCode >= 300:
		return Leg{}, fmt.Errorf("osrm: status %d: %s %s", resp.StatusCode, out.Code, out.Message)
	case decodeErr != nil:
		return Leg{}, fmt.Errorf("osrm: decode: %w", decodeErr)
	case out.Code != "Ok":
		return Leg{}, fmt.Errorf("osrm: %s %s", out.Code, out.Message)
	}
	return Leg{Seconds: out.Routes[0].Duration, Meters: out.Routes[0].Distance}, nil
}
