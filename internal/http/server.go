package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/airport-shuttle/internal/bookings"
	"github.com/example/airport-shuttle/internal/catalog"
	"github.com/example/airport-shuttle/internal/dispatch"
	"github.com/example/airport-shuttle/internal/geo"
	"github.com/example/airport-shuttle/internal/inbox"
	"github.com/example/airport-shuttle/internal/models"
	"github.com/example/airport-shuttle/internal/observability"
	"github.com/example/airport-shuttle/internal/quote"
	"github.com/example/airport-shuttle/internal/reviews"
	"github.com/example/airport-shuttle/internal/route"
	"github.com/example/airport-shuttle/internal/trips"
)

// Deps are the services the API exposes. Identity, Idempotency and Ready are optional.
type Deps struct {
	Catalog  *catalog.Catalog
	Routes   *route.Validator
	Quotes   *quote.Service
	Geo      geo.Geo
	Trips    *trips.Manager
	Bookings *bookings.Service
	Reviews  *reviews.Service
	Inbox    inbox.Inbox
	WSReg    *dispatch.WSRegistry
	Observer observability.ErrorObserver

	Identity       func(http.Handler) http.Handler
	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration
	Ready          func(ctx context.Context) error
}

type Server struct {
	Deps
	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(d Deps, logger *slog.Logger) *Server {
	if d.Observer == nil {
		d.Observer = observability.Nop{}
	}
	s := &Server{Deps: d, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.HandleFunc("/ready", s.handleReady).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.handleWS)

	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/stations", s.handleStations).Methods("GET")
	api.HandleFunc("/stations/nearby", s.handleNearby).Methods("GET")
	api.HandleFunc("/routes/validate", s.handleValidateRoute).Methods("GET")
	api.HandleFunc("/quote", s.handleQuote).Methods("GET")

	api.HandleFunc("/trips", s.handleCreateTrip).Methods("POST")
	api.HandleFunc("/trips", s.handleSearchTrips).Methods("GET")
	api.HandleFunc("/trips/{id}", s.handleGetTrip).Methods("GET")
	api.HandleFunc("/trips/{id}/join", s.handleJoinTrip).Methods("POST")
	api.HandleFunc("/trips/{id}/cancel", s.handleCancelTrip).Methods("POST")

	api.HandleFunc("/bookings", s.handleCreateBooking).Methods("POST")
	api.HandleFunc("/bookings", s.handleListBookings).Methods("GET")
	api.HandleFunc("/bookings/{id}/pay", s.handlePayBooking).Methods("POST")

	api.HandleFunc("/notifications", s.handleNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", s.handleMarkRead).Methods("POST")

	api.HandleFunc("/users/{id}/reviews", s.handleCreateReview).Methods("POST")
	api.HandleFunc("/users/{id}/reviews", s.handleListReviews).Methods("GET")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.Ready != nil {
		if err := s.Ready(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(200)
	w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string           `json:"error"`
	Kind  models.ErrorKind `json:"kind,omitempty"`
}

func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindNotAuthenticated:
		return http.StatusUnauthorized
	case models.KindForbidden, models.KindNotCreator, models.KindSelfJoin:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindAlreadyJoined, models.KindTripFull, models.KindTripTerminal, models.KindTripExpired,
		models.KindConflict, models.KindPaymentNotPending:
		return http.StatusConflict
	case models.KindUnknownStation, models.KindInvalidRoutePair, models.KindNotApplicable,
		models.KindTooSoon, models.KindTooFarAhead, models.KindInvalidPassengers, models.KindInvalidRating,
		models.KindNoPaymentMethod:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors to their status; anything else is a 500 and
// goes to the error observer.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if kind := models.KindOf(err); kind != "" {
		writeJSON(w, statusFor(kind), errorBody{Error: err.Error(), Kind: kind})
		return
	}
	if errors.Is(err, bookings.ErrPaymentFailed) {
		writeJSON(w, http.StatusPaymentRequired, errorBody{Error: err.Error()})
		return
	}
	s.Observer.OnError(r.Context(), observability.Report{
		Message:   err.Error(),
		Path:      r.URL.Path,
		Component: "http",
		Timestamp: time.Now(),
	})
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func newID() string { return uuid.NewString() }

func stack() string { return string(debug.Stack()) }
