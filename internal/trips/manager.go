// Package trips owns the shared-trip lifecycle: creation, concurrent joins,
// cancellation and completion.
package trips

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/airport-shuttle/internal/dispatch"
	"github.com/example/airport-shuttle/internal/fare"
	"github.com/example/airport-shuttle/internal/models"
	"github.com/example/airport-shuttle/internal/observability"
	"github.com/example/airport-shuttle/internal/route"
	"github.com/example/airport-shuttle/internal/schedule"
	"github.com/example/airport-shuttle/internal/storage"
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 10 * time.Millisecond
)

type Manager struct {
	Store       storage.TripStore
	Routes      *route.Validator
	Notifier    dispatch.Dispatcher         // optional
	Observer    observability.ErrorObserver // optional
	Logger      *slog.Logger
	Now         func() time.Time
	MaxAttempts int
	RetryDelay  time.Duration
}

func NewManager(store storage.TripStore, routes *route.Validator, notifier dispatch.Dispatcher, observer observability.ErrorObserver, logger *slog.Logger) *Manager {
	return &Manager{
		Store:       store,
		Routes:      routes,
		Notifier:    notifier,
		Observer:    observer,
		Logger:      logger,
		Now:         time.Now,
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
	}
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// Create opens a new shared trip with the creator as sole participant.
func (m *Manager) Create(ctx context.Context, userID, pickupID, dropoffID string, scheduledFor time.Time) (*models.Trip, error) {
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}
	pickup, dropoff, err := m.Routes.Resolve(pickupID, dropoffID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	if err := schedule.ValidateAt(scheduledFor, now); err != nil {
		return nil, err
	}
	total, err := fare.Calculate(pickup, dropoff)
	if err != nil {
		return nil, err
	}
	t := &models.Trip{
		ID:                uuid.NewString(),
		CreatorID:         userID,
		Participants:      []string{userID},
		Pickup:            pickup,
		Dropoff:           dropoff,
		ScheduledFor:      scheduledFor,
		MaxPassengers:     models.DefaultMaxPassengers,
		CurrentPassengers: 1,
		Status:            models.TripOpen,
		Fare:              total,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.Store.CreateTrip(ctx, t); err != nil {
		return nil, err
	}
	observability.TripsCreated.Inc()
	m.Logger.Info("trip created", "trip_id", t.ID, "creator", userID, "pickup", pickupID, "dropoff", dropoffID, "fare", int64(total))
	return t, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*models.Trip, error) {
	return m.Store.GetTrip(ctx, id)
}

// checkJoin evaluates the join preconditions in order; the first failure wins.
// A terminal trip reports TripTerminal whether or not it has seats left.
func checkJoin(t *models.Trip, userID string, now time.Time) error {
	switch {
	case t.CreatorID == userID:
		return models.ErrSelfJoin
	case t.HasParticipant(userID):
		return models.ErrAlreadyJoined
	case t.Status.Terminal():
		return models.ErrTripTerminal
	case t.Status == models.TripFull || t.CurrentPassengers >= t.MaxPassengers:
		return models.ErrTripFull
	case t.ScheduledFor.Before(now):
		return models.ErrTripExpired
	}
	return nil
}

// Join adds userID to the trip. The read-check-write cycle is retried on
// version conflicts, so concurrent joins can never overbook a trip.
func (m *Manager) Join(ctx context.Context, tripID, userID string) (*models.Trip, error) {
	if userID == "" {
		observability.TripJoins.WithLabelValues(string(models.KindNotAuthenticated)).Inc()
		return nil, models.ErrNotAuthenticated
	}
	start := time.Now()
	t, err := m.update(ctx, tripID, func(t *models.Trip) error {
		if err := checkJoin(t, userID, m.now()); err != nil {
			return err
		}
		t.Participants = append(t.Participants, userID)
		t.CurrentPassengers++
		if t.CurrentPassengers >= t.MaxPassengers {
			t.Status = models.TripFull
		}
		return nil
	})
	observability.JoinLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		result := string(models.KindOf(err))
		if result == "" {
			result = "error"
		}
		observability.TripJoins.WithLabelValues(result).Inc()
		return nil, err
	}
	observability.TripJoins.WithLabelValues("ok").Inc()
	m.Logger.Info("trip joined", "trip_id", t.ID, "user_id", userID, "passengers", t.CurrentPassengers, "status", t.Status)
	m.notify(ctx, t, userID, models.NotifyParticipantJoined)
	return t, nil
}

// Cancel moves the trip to cancelled whatever its passenger count. Only the
// creator may cancel.
func (m *Manager) Cancel(ctx context.Context, tripID, actorID string) (*models.Trip, error) {
	if actorID == "" {
		return nil, models.ErrNotAuthenticated
	}
	t, err := m.update(ctx, tripID, func(t *models.Trip) error {
		if t.CreatorID != actorID {
			return models.ErrNotCreator
		}
		if t.Status.Terminal() {
			return models.ErrTripTerminal
		}
		t.Status = models.TripCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.TripsClosed.WithLabelValues(string(t.Status)).Inc()
	m.Logger.Info("trip cancelled", "trip_id", t.ID, "by", actorID)
	m.notify(ctx, t, actorID, models.NotifyTripCancelled)
	return t, nil
}

// Complete marks a finished trip. Timing is decided by the caller, usually the Sweeper.
func (m *Manager) Complete(ctx context.Context, tripID string) (*models.Trip, error) {
	t, err := m.update(ctx, tripID, func(t *models.Trip) error {
		if t.Status.Terminal() {
			return models.ErrTripTerminal
		}
		t.Status = models.TripCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.TripsClosed.WithLabelValues(string(t.Status)).Inc()
	m.Logger.Info("trip completed", "trip_id", t.ID)
	m.notify(ctx, t, "", models.NotifyTripUpdate)
	return t, nil
}

// update reads the trip, applies fn and writes it back conditionally on the
// version read. Conflicts re-read and re-apply, with doubling backoff, up to
// MaxAttempts; after that the caller gets ErrConflict and nothing is written.
func (m *Manager) update(ctx context.Context, tripID string, fn func(*models.Trip) error) (*models.Trip, error) {
	attempts := m.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	delay := m.RetryDelay
	for i := 0; i < attempts; i++ {
		t, err := m.Store.GetTrip(ctx, tripID)
		if err != nil {
			return nil, err
		}
		expected := t.Version
		if err := fn(t); err != nil {
			return nil, err
		}
		t.UpdatedAt = m.now()
		err = m.Store.UpdateTrip(ctx, t, expected)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return nil, err
		}
		observability.TripConflicts.Inc()
		m.Logger.Debug("trip version conflict", "trip_id", tripID, "attempt", i+1)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, models.ErrConflict
}

// notify is fire-and-forget: failures are reported, the trip change stands.
func (m *Manager) notify(ctx context.Context, t *models.Trip, actorID string, typ models.NotificationType) {
	if m.Notifier == nil {
		return
	}
	now := m.now()
	for _, uid := range recipients(t, actorID) {
		n := NewNotification(uid, typ, t, now)
		if err := m.Notifier.Dispatch(ctx, n); err != nil {
			observability.NotificationsFailed.Inc()
			m.Logger.Warn("notification dispatch failed", "trip_id", t.ID, "user_id", uid, "type", typ, "err", err)
			if m.Observer != nil {
				m.Observer.OnError(ctx, observability.Report{
					Message:   err.Error(),
					Component: "trips.notify",
					Timestamp: now,
				})
			}
			continue
		}
		observability.NotificationsSent.WithLabelValues(string(typ)).Inc()
	}
}
