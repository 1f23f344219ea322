// Package analysis talks to the external face analysis model and turns its
// answer into recommendation text.
package analysis

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
)

type Image struct {
	Data        []byte
	ContentType string
}

type Analyzer interface {
	Analyze(ctx context.Context, img Image) (*Result, error)
}

// Resizer shrinks an image before upload to a remote model.
type Resizer interface {
	Fit(data []byte) ([]byte, error)
}

// ObserveFunc receives the backend name, "ok" or the error kind, and the
// call duration.
type ObserveFunc func(backend, outcome string, d time.Duration)

type observed struct {
	next    Analyzer
	backend string
	observe ObserveFunc
}

// WithObserver reports every call of next to observe.
func WithObserver(next Analyzer, backend string, observe ObserveFunc) Analyzer {
	return &observed{next: next, backend: backend, observe: observe}
}

func (o *observed) Analyze(ctx context.Context, img Image) (*Result, error) {
	start := time.Now()
	res, err := o.next.Analyze(ctx, img)
	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	o.observe(o.backend, outcome, time.Since(start))
	return res, err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// timeoutError returns a 504 analysis error when the deadline was hit, nil
// otherwise.
func timeoutError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.External(504, "Model analysis timed out", nil, err)
	}
	return nil
}
