package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
)

// HandlersRegistry routes task types to handlers. Every task passes through
// a middleware that logs the outcome and reports the final failed attempt
// to Sentry.
type HandlersRegistry struct {
	mux *asynq.ServeMux
}

func NewHandlersRegistry() *HandlersRegistry {
	mux := asynq.NewServeMux()
	mux.Use(observe)
	return &HandlersRegistry{mux: mux}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}

func observe(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) (err error) {
		start := time.Now()
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("task %s panicked: %v", t.Type(), p)
			}
			attrs := []any{"type", t.Type(), "duration_ms", time.Since(start).Milliseconds()}
			if err == nil {
				slog.Info("task done", attrs...)
				return
			}
			slog.Error("task failed", append(attrs, "error", err)...)
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if retried >= maxRetry {
				sentry.CaptureException(err)
			}
		}()
		return next.ProcessTask(ctx, t)
	})
}
