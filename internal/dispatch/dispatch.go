// Package dispatch delivers trip notifications. Delivery is fire-and-forget from
// the caller's point of view: a failed delivery never undoes a trip change.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/airport-shuttle/internal/models"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, n models.Notification) error
}

// Multi fans a notification out to every dispatcher. Users without a live
// websocket session are not an error.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, n); err != nil && !errors.Is(err, ErrNoSession) {
			errs = append(errs, fmt.Errorf("%T: %w", d, err))
		}
	}
	return errors.Join(errs...)
}

// Func adapts a function to Dispatcher.
type Func func(ctx context.Context, n models.Notification) error

func (f Func) Dispatch(ctx context.Context, n models.Notification) error { return f(ctx, n) }
