package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/airport-shuttle/internal/auth"
	"github.com/example/airport-shuttle/internal/bookings"
	"github.com/example/airport-shuttle/internal/inbox"
	"github.com/example/airport-shuttle/internal/models"
	"github.com/example/airport-shuttle/internal/reviews"
	"github.com/example/airport-shuttle/internal/trips"
)

func queryInt(r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	cat := models.Category(r.URL.Query().Get("category"))
	if cat == "" {
		writeJSON(w, http.StatusOK, s.Catalog.All())
		return
	}
	if !cat.Valid() {
		badRequest(w, "unknown category")
		return
	}
	writeJSON(w, http.StatusOK, s.Catalog.ByCategory(cat))
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil {
		badRequest(w, "lat and lon are required")
		return
	}
	limit, ok := queryInt(r, "limit", 5)
	if !ok || limit <= 0 {
		badRequest(w, "invalid limit")
		return
	}
	hits, err := s.Geo.Nearby(r.Context(), lat, lon, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleValidateRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.Routes.Check(q.Get("pickup"), q.Get("dropoff")))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, ok := queryInt(r, "passengers", 1)
	if !ok {
		badRequest(w, "invalid passengers")
		return
	}
	res, err := s.Quotes.Quote(r.Context(), q.Get("pickup"), q.Get("dropoff"), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type createTripRequest struct {
	PickupID     string    `json:"pickup_id"`
	DropoffID    string    `json:"dropoff_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	t, err := s.Trips.Create(r.Context(), auth.UserID(r.Context()), req.PickupID, req.DropoffID, req.ScheduledFor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trips.NewListing(t))
}

func (s *Server) handleSearchTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := trips.Filter{
		PickupID:  q.Get("pickup"),
		DropoffID: q.Get("dropoff"),
		Sort:      trips.SortBy(q.Get("sort")),
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequest(w, "from must be RFC3339")
			return
		}
		f.From = from
	}
	var ok bool
	if f.MinSeats, ok = queryInt(r, "min_seats", 0); !ok {
		badRequest(w, "invalid min_seats")
		return
	}
	maxPrice, ok := queryInt(r, "max_price", 0)
	if !ok {
		badRequest(w, "invalid max_price")
		return
	}
	f.MaxPrice = models.Amount(maxPrice)
	if f.Limit, ok = queryInt(r, "limit", 50); !ok {
		badRequest(w, "invalid limit")
		return
	}
	res, err := s.Trips.Search(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	t, err := s.Trips.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips.NewListing(t))
}

func (s *Server) handleJoinTrip(w http.ResponseWriter, r *http.Request) {
	t, err := s.Trips.Join(r.Context(), mux.Vars(r)["id"], auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips.NewListing(t))
}

func (s *Server) handleCancelTrip(w http.ResponseWriter, r *http.Request) {
	t, err := s.Trips.Cancel(r.Context(), mux.Vars(r)["id"], auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips.NewListing(t))
}

type createBookingRequest struct {
	PickupID     string    `json:"pickup_id"`
	DropoffID    string    `json:"dropoff_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Passengers   int       `json:"passengers"`
	Email        string    `json:"email"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	email := req.Email
	if c, ok := auth.ClaimsFrom(r.Context()); ok && email == "" {
		email = c.Email
	}
	b, err := s.Bookings.Create(r.Context(), bookings.Request{
		UserID:       auth.UserID(r.Context()),
		Email:        email,
		PickupID:     req.PickupID,
		DropoffID:    req.DropoffID,
		ScheduledFor: req.ScheduledFor,
		Passengers:   req.Passengers,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bs, err := s.Bookings.ListForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

type payBookingRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (s *Server) handlePayBooking(w http.ResponseWriter, r *http.Request) {
	var req payBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, err.Error())
		return
	}
	b, err := s.Bookings.Pay(r.Context(), mux.Vars(r)["id"], auth.UserID(r.Context()), req.PaymentMethodID)
	if err != nil && b != nil {
		// declined: the booking now carries payment_status=failed
		writeJSON(w, http.StatusPaymentRequired, map[string]any{"error": err.Error(), "booking": b})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if uid == "" {
		s.writeError(w, r, models.ErrNotAuthenticated)
		return
	}
	limit, ok := queryInt(r, "limit", 50)
	if !ok {
		badRequest(w, "invalid limit")
		return
	}
	ns, err := s.Inbox.List(r.Context(), uid, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": ns, "unread": inbox.Unread(ns)})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if uid == "" {
		s.writeError(w, r, models.ErrNotAuthenticated)
		return
	}
	if err := s.Inbox.MarkRead(r.Context(), uid, mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createReviewRequest struct {
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	BookingID string `json:"booking_id"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	rv, err := s.Reviews.Create(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"], req.Rating, req.Comment, req.BookingID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	rs, err := s.Reviews.List(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": rs, "summary": reviews.Summarize(rs)})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWS keeps a notification channel open for the authenticated user.
// Inbound messages are ignored; the read loop only detects disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if uid == "" {
		s.writeError(w, r, models.ErrNotAuthenticated)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	s.WSReg.Add(uid, conn)
	defer func() {
		s.WSReg.Remove(uid, conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
