package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	stripe "github.com/stripe/stripe-go/v74"

	"github.com/example/airport-shuttle/internal/models"
)

// fakeStripe answers the PaymentIntent endpoints like Stripe does for a single
// intent: only a confirmed intent with a payment method can be captured.
type fakeStripe struct {
	mu             sync.Mutex
	paths          []string
	failCapture    bool
	needsAction    bool
	form           map[string]string
	idempotencyKey string
	status         string
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/v1/payment_intents":
		f.form = map[string]string{}
		for k := range r.PostForm {
			f.form[k] = r.PostForm.Get(k)
		}
		f.idempotencyKey = r.Header.Get("Idempotency-Key")
		f.status = "requires_payment_method"
		if f.form["payment_method"] != "" && f.form["confirm"] == "true" {
			f.status = "requires_capture"
			if f.needsAction {
				f.status = "requires_action"
			}
		}
	case "/v1/payment_intents/pi_123/capture":
		if f.status != "requires_capture" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"payment_intent_unexpected_state","message":"unexpected state"}}`))
			return
		}
		if f.failCapture {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error":{"type":"card_error","message":"declined"}}`))
			return
		}
		f.status = "succeeded"
	case "/v1/payment_intents/pi_123/cancel":
		f.status = "canceled"
	}
	_, _ = w.Write([]byte(`{"id":"pi_123","object":"payment_intent","status":"` + f.status + `"}`))
}

func withFakeStripe(t *testing.T, f *fakeStripe) *StripeClient {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	prev := stripe.GetBackend(stripe.APIBackend)
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}))
	t.Cleanup(func() { stripe.SetBackend(stripe.APIBackend, prev) })
	return NewStripeClient("sk_test_fake")
}

func TestChargeHoldsThenCaptures(t *testing.T) {
	f := &fakeStripe{}
	c := withFakeStripe(t, f)
	ref, err := c.Charge(context.Background(), Charge{BookingID: "b1", Amount: 65, Currency: "EUR", Email: "a@example.com", PaymentMethod: "pm_card_visa"})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if ref != "pi_123" || f.status != "succeeded" {
		t.Fatalf("unexpected ref %q status %q", ref, f.status)
	}
	if len(f.paths) != 2 || f.paths[1] != "/v1/payment_intents/pi_123/capture" {
		t.Fatalf("expected hold then capture, got %v", f.paths)
	}
	want := map[string]string{
		"amount":               "6500",
		"currency":             "eur",
		"receipt_email":        "a@example.com",
		"metadata[booking_id]": "b1",
		"payment_method":       "pm_card_visa",
		"confirm":              "true",
		"capture_method":       "manual",
	}
	for k, v := range want {
		if f.form[k] != v {
			t.Errorf("hold param %s: expected %q, got %q", k, v, f.form[k])
		}
	}
	if f.idempotencyKey != "booking-b1" {
		t.Fatalf("expected booking idempotency key, got %q", f.idempotencyKey)
	}
}

func TestChargeRequiresPaymentMethod(t *testing.T) {
	f := &fakeStripe{}
	c := withFakeStripe(t, f)
	if _, err := c.Charge(context.Background(), Charge{BookingID: "b1", Amount: 44}); !errors.Is(err, models.ErrNoPaymentMethod) {
		t.Fatalf("expected ErrNoPaymentMethod, got %v", err)
	}
	if len(f.paths) != 0 {
		t.Fatalf("no intent should be created, got %v", f.paths)
	}
}

func TestChargeReleasesHoldWhenCaptureFails(t *testing.T) {
	f := &fakeStripe{failCapture: true}
	c := withFakeStripe(t, f)
	if _, err := c.Charge(context.Background(), Charge{Amount: 44, Currency: "eur", PaymentMethod: "pm_card_visa"}); err == nil {
		t.Fatal("expected capture error")
	}
	last := f.paths[len(f.paths)-1]
	if last != "/v1/payment_intents/pi_123/cancel" {
		t.Fatalf("expected hold to be released, got %v", f.paths)
	}
}

func TestChargeReleasesIntentThatNeedsAction(t *testing.T) {
	f := &fakeStripe{needsAction: true}
	c := withFakeStripe(t, f)
	_, err := c.Charge(context.Background(), Charge{BookingID: "b2", Amount: 56, PaymentMethod: "pm_card_authenticationRequired"})
	if !errors.Is(err, ErrNotCapturable) {
		t.Fatalf("expected ErrNotCapturable, got %v", err)
	}
	for _, p := range f.paths {
		if p == "/v1/payment_intents/pi_123/capture" {
			t.Fatalf("must not capture an unconfirmed intent, got %v", f.paths)
		}
	}
	if f.status != "canceled" {
		t.Fatalf("expected intent to be cancelled, got %q", f.status)
	}
}

func TestDisabledDeclines(t *testing.T) {
	if _, err := (Disabled{}).Charge(context.Background(), Charge{BookingID: "b1", Amount: 10}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
