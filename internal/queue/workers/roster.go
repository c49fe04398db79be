package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/schoolhub/membership/internal/metrics"
	"github.com/schoolhub/membership/internal/queue"
	"github.com/schoolhub/membership/internal/store"
)

type RosterReconciler interface {
	ReconcileClass(ctx context.Context, schoolID, classID string) (bool, error)
	ReconcileSchool(ctx context.Context, schoolID string) (int, error)
}

type RosterWorker struct {
	reconciler RosterReconciler
}

func NewRosterWorker(r RosterReconciler) *RosterWorker {
	return &RosterWorker{reconciler: r}
}

func (w *RosterWorker) ProcessTask(ctx context.Context, t *asynq.Task) (err error) {
	done := metrics.TrackTask(queue.TypeRosterReconcile)
	defer func() { done(err) }()

	var payload queue.RosterReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %v", asynq.SkipRetry, err)
	}
	if payload.SchoolID == "" {
		return fmt.Errorf("missing school_id: %w", asynq.SkipRetry)
	}

	if payload.ClassID == "" {
		n, err := w.reconciler.ReconcileSchool(ctx, payload.SchoolID)
		if err != nil {
			return err
		}
		slog.Info("school rosters reconciled", "school_id", payload.SchoolID, "rewritten", n)
		return nil
	}

	changed, err := w.reconciler.ReconcileClass(ctx, payload.SchoolID, payload.ClassID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("roster reconcile for missing class", "school_id", payload.SchoolID, "class_id", payload.ClassID)
		return fmt.Errorf("class %s: %w", payload.ClassID, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	slog.Info("class roster reconciled", "school_id", payload.SchoolID, "class_id", payload.ClassID, "rewritten", changed)
	return nil
}
