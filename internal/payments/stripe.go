package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/example/airport-shuttle/internal/models"
)

// Charge is what the booking flow asks the processor to collect.
// PaymentMethod is the id the client obtained from Stripe.js (pm_...).
type Charge struct {
	BookingID     string
	Amount        models.Amount
	Currency      string
	Email         string
	PaymentMethod string
}

// Processor collects a charge and returns the provider's payment reference.
type Processor interface {
	Charge(ctx context.Context, c Charge) (string, error)
}

// ErrNotCapturable means the confirmed intent did not reach requires_capture,
// e.g. the card needs 3-D Secure.
var ErrNotCapturable = errors.New("payment intent is not capturable")

// StripeClient is a thin wrapper around stripe-go for PaymentIntent hold/capture/cancel flows.
type StripeClient struct{}

// NewStripeClient sets the global stripe key.
func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{}
}

// Charge holds the amount, then captures it. A hold that cannot be captured is released.
func (s *StripeClient) Charge(ctx context.Context, c Charge) (string, error) {
	pi, err := s.Hold(ctx, c)
	if err != nil {
		return "", fmt.Errorf("hold: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusRequiresCapture {
		return "", s.release(ctx, pi.ID, fmt.Errorf("%w: status %s", ErrNotCapturable, pi.Status))
	}
	if err := s.Capture(ctx, pi.ID); err != nil {
		return "", s.release(ctx, pi.ID, fmt.Errorf("capture: %w", err))
	}
	return pi.ID, nil
}

func (s *StripeClient) release(ctx context.Context, id string, cause error) error {
	if err := s.Cancel(ctx, id); err != nil {
		return fmt.Errorf("%w (release failed: %v)", cause, err)
	}
	return cause
}

// Hold creates and confirms a PaymentIntent with capture_method=manual, so a
// successful card authorization leaves it in requires_capture. The booking id
// is the idempotency key: retrying a booking never creates a second intent.
func (s *StripeClient) Hold(ctx context.Context, c Charge) (*stripe.PaymentIntent, error) {
	if c.PaymentMethod == "" {
		return nil, models.ErrNoPaymentMethod
	}
	currency := strings.ToLower(c.Currency)
	if currency == "" {
		currency = models.Currency
	}
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(c.Amount.Cents()),
		Currency:      stripe.String(currency),
		PaymentMethod: stripe.String(c.PaymentMethod),
		Confirm:       stripe.Bool(true),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	if c.Email != "" {
		params.ReceiptEmail = stripe.String(c.Email)
	}
	if c.BookingID != "" {
		params.AddMetadata("booking_id", c.BookingID)
		params.SetIdempotencyKey("booking-" + c.BookingID)
	}
	return paymentintent.New(params)
}

func (s *StripeClient) Capture(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	_, err := paymentintent.Capture(paymentIntentID, params)
	return err
}

// Cancel releases the hold on a PaymentIntent.
func (s *StripeClient) Cancel(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := paymentintent.Cancel(paymentIntentID, params)
	return err
}

var ErrNotConfigured = errors.New("payments are not configured")

// Disabled declines every charge. Used when no Stripe key is configured.
type Disabled struct{}

func (Disabled) Charge(context.Context, Charge) (string, error) { return "", ErrNotConfigured }
