package models

import "time"

type Coord struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

type Category string

const (
	CategoryAirport Category = "airport"
	CategoryTrain   Category = "train"
	CategoryTaxi    Category = "taxi"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryAirport, CategoryTrain, CategoryTaxi:
		return true
	}
	return false
}

// Station is immutable reference data. AirportCode is only set for airports.
type Station struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Category    Category `json:"category" yaml:"category"`
	Location    Coord    `json:"location" yaml:"location"`
	Address     string   `json:"address" yaml:"address"`
	AirportCode string   `json:"airport_code,omitempty" yaml:"airport_code,omitempty"`
}

func (s Station) IsAirport() bool { return s.Category == CategoryAirport }

// Amount is a whole-euro amount.
type Amount int64

const Currency = "eur"

func (a Amount) Cents() int64 { return int64(a) * 100 }

type TripStatus string

const (
	TripOpen      TripStatus = "open"
	TripFull      TripStatus = "full"
	TripCancelled TripStatus = "cancelled"
	TripCompleted TripStatus = "completed"
)

func (s TripStatus) Terminal() bool { return s == TripCancelled || s == TripCompleted }

const DefaultMaxPassengers = 4

type Trip struct {
	ID                string     `json:"id"`
	CreatorID         string     `json:"creator_id"`
	Participants      []string   `json:"participants"`
	Pickup            Station    `json:"pickup"`
	Dropoff           Station    `json:"dropoff"`
	ScheduledFor      time.Time  `json:"scheduled_for"`
	MaxPassengers     int        `json:"max_passengers"`
	CurrentPassengers int        `json:"current_passengers"`
	Status            TripStatus `json:"status"`
	Fare              Amount     `json:"fare"`
	Version           int64      `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (t *Trip) HasParticipant(userID string) bool {
	for _, p := range t.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

func (t *Trip) AvailableSeats() int {
	if n := t.MaxPassengers - t.CurrentPassengers; n > 0 {
		return n
	}
	return 0
}

// Clone returns a deep copy so callers never share the participants slice.
func (t *Trip) Clone() *Trip {
	c := *t
	c.Participants = append([]string(nil), t.Participants...)
	return &c
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

// A payment moves pending -> processing -> completed|failed exactly once.
// Processing is claimed before the processor is called.
const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

type Booking struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Email         string        `json:"email"`
	Pickup        Station       `json:"pickup"`
	Dropoff       Station       `json:"dropoff"`
	ScheduledFor  time.Time     `json:"scheduled_for"`
	Passengers    int           `json:"passengers"`
	Fare          Amount        `json:"fare"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentRef    string        `json:"payment_ref,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type NotificationType string

const (
	NotifyTripUpdate        NotificationType = "trip_update"
	NotifyTripCancelled     NotificationType = "trip_cancelled"
	NotifyParticipantJoined NotificationType = "participant_joined"
	NotifyParticipantLeft   NotificationType = "participant_left"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	TripID    string           `json:"trip_id,omitempty"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AuthorID  string    `json:"author_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	BookingID string    `json:"booking_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
