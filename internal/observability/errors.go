package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Report describes one unexpected failure.
type Report struct {
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
	Path      string    `json:"path,omitempty"`
	Component string    `json:"component,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorObserver receives reports of failures that are handled but should not go unnoticed.
// The application entry point owns the instance and passes it to components.
type ErrorObserver interface {
	OnError(ctx context.Context, r Report)
}

type LogObserver struct {
	Logger *slog.Logger
}

func (o *LogObserver) OnError(ctx context.Context, r Report) {
	o.Logger.ErrorContext(ctx, "application error",
		"message", r.Message,
		"component", r.Component,
		"path", r.Path,
		"stack", r.Stack,
	)
}

// Recorder keeps the most recent reports in memory.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	reports []Report
}

func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 100
	}
	return &Recorder{limit: capacity}
}

func (r *Recorder) OnError(ctx context.Context, rep Report) {
	if rep.Timestamp.IsZero() {
		rep.Timestamp = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	if over := len(r.reports) - r.limit; over > 0 {
		r.reports = append([]Report(nil), r.reports[over:]...)
	}
}

func (r *Recorder) Errors() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	r.reports = nil
	r.mu.Unlock()
}

type MultiObserver []ErrorObserver

func (m MultiObserver) OnError(ctx context.Context, r Report) {
	for _, o := range m {
		o.OnError(ctx, r)
	}
}

// Nop discards reports.
type Nop struct{}

func (Nop) OnError(context.Context, Report) {}
