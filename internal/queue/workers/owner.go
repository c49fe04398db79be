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
	"github.com/schoolhub/membership/internal/tenant"
)

type OwnerRepairer interface {
	RepairOwnerless(ctx context.Context, schoolID string) (bool, error)
	RepairAll(ctx context.Context) (int, error)
}

type OwnerWorker struct {
	repairer OwnerRepairer
}

func NewOwnerWorker(r OwnerRepairer) *OwnerWorker {
	return &OwnerWorker{repairer: r}
}

func (w *OwnerWorker) ProcessRepair(ctx context.Context, t *asynq.Task) (err error) {
	done := metrics.TrackTask(queue.TypeOwnerRepair)
	defer func() { done(err) }()

	var payload queue.OwnerRepairPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %v", asynq.SkipRetry, err)
	}

	repaired, err := w.repairer.RepairOwnerless(ctx, payload.SchoolID)
	if errors.Is(err, tenant.ErrSchoolNotFound) {
		return fmt.Errorf("school %s: %w", payload.SchoolID, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	slog.Info("owner repair finished", "school_id", payload.SchoolID, "repaired", repaired)
	return nil
}

// ProcessScan runs the periodic ownerless-school scan.
func (w *OwnerWorker) ProcessScan(ctx context.Context, _ *asynq.Task) (err error) {
	done := metrics.TrackTask(queue.TypeOwnerRepairScan)
	defer func() { done(err) }()

	n, err := w.repairer.RepairAll(ctx)
	if n > 0 {
		slog.Warn("ownerless schools repaired", "count", n)
	}
	return err
}
