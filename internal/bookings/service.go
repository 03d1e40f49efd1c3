// Package bookings handles individual (non-shared) airport transfers and
// their payment.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/airport-shuttle/internal/fare"
	"github.com/example/airport-shuttle/internal/models"
	"github.com/example/airport-shuttle/internal/observability"
	"github.com/example/airport-shuttle/internal/payments"
	"github.com/example/airport-shuttle/internal/route"
	"github.com/example/airport-shuttle/internal/schedule"
	"github.com/example/airport-shuttle/internal/storage"
)

// ErrPaymentFailed wraps the processor error when a charge is declined.
var ErrPaymentFailed = errors.New("payment failed")

type Service struct {
	Store    storage.BookingStore
	Routes   *route.Validator
	Payments payments.Processor
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

type Request struct {
	UserID       string
	Email        string
	PickupID     string
	DropoffID    string
	ScheduledFor time.Time
	Passengers   int
}

func (s *Service) Create(ctx context.Context, req Request) (*models.Booking, error) {
	if req.UserID == "" {
		return nil, models.ErrNotAuthenticated
	}
	pickup, dropoff, err := s.Routes.Resolve(req.PickupID, req.DropoffID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := schedule.ValidateAt(req.ScheduledFor, now); err != nil {
		return nil, err
	}
	if err := schedule.ValidatePassengers(req.Passengers, false); err != nil {
		return nil, err
	}
	total, err := fare.Calculate(pickup, dropoff)
	if err != nil {
		return nil, err
	}
	b := &models.Booking{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Email:         req.Email,
		Pickup:        pickup,
		Dropoff:       dropoff,
		ScheduledFor:  req.ScheduledFor,
		Passengers:    req.Passengers,
		Fare:          total,
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Store.SaveBooking(ctx, b); err != nil {
		return nil, err
	}
	observability.BookingsCreated.Inc()
	s.Logger.Info("booking created", "booking_id", b.ID, "user_id", b.UserID, "fare", int64(b.Fare))
	return b, nil
}

// Pay charges the booking fare with the client's payment method. The booking
// is claimed (pending -> processing) before the processor is called, so
// concurrent calls charge at most once; losers get ErrPaymentNotPending.
// The outcome is stored either way; a declined charge returns
// ErrPaymentFailed alongside the failed booking.
func (s *Service) Pay(ctx context.Context, bookingID, userID, paymentMethod string) (*models.Booking, error) {
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}
	b, err := s.Store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, models.ErrForbidden
	}
	if b.PaymentStatus != models.PaymentPending {
		return nil, models.ErrPaymentNotPending
	}
	if paymentMethod == "" {
		return nil, models.ErrNoPaymentMethod
	}
	err = s.Store.TransitionPayment(ctx, b.ID, models.PaymentPending, models.PaymentProcessing, s.now())
	if errors.Is(err, storage.ErrPaymentStateConflict) {
		return nil, models.ErrPaymentNotPending
	}
	if err != nil {
		return nil, err
	}

	// the claim is ours; finish it even if the caller goes away
	ctx = context.WithoutCancel(ctx)
	ref, chargeErr := s.Payments.Charge(ctx, payments.Charge{
		BookingID:     b.ID,
		Amount:        b.Fare,
		Currency:      models.Currency,
		Email:         b.Email,
		PaymentMethod: paymentMethod,
	})
	b.UpdatedAt = s.now()
	if chargeErr != nil {
		b.PaymentStatus = models.PaymentFailed
	} else {
		b.PaymentStatus = models.PaymentCompleted
		b.Status = models.BookingConfirmed
		b.PaymentRef = ref
	}
	observability.Payments.WithLabelValues(string(b.PaymentStatus)).Inc()
	if err := s.Store.UpdateBooking(ctx, b); err != nil {
		s.Logger.Error("payment outcome not stored", "booking_id", b.ID, "status", b.PaymentStatus, "ref", ref, "err", err)
		return nil, err
	}
	if chargeErr != nil {
		s.Logger.Warn("payment failed", "booking_id", b.ID, "err", chargeErr)
		return b, fmt.Errorf("%w: %v", ErrPaymentFailed, chargeErr)
	}
	s.Logger.Info("payment completed", "booking_id", b.ID, "ref", ref)
	return b, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}
	return s.Store.ListBookings(ctx, userID)
}
