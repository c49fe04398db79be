package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/schoolhub/membership/internal/metrics"
	"github.com/schoolhub/membership/internal/store"
)

// Reconciler rebuilds class rosters from the students that point at them.
type Reconciler struct {
	classes     store.ClassStore
	students    store.StudentStore
	concurrency int
}

func NewReconciler(classes store.ClassStore, students store.StudentStore, concurrency int) *Reconciler {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Reconciler{classes: classes, students: students, concurrency: concurrency}
}

// ReconcileClass rewrites one roster when it differs from the authoritative
// student query. It reports whether the roster was rewritten.
func (r *Reconciler) ReconcileClass(ctx context.Context, schoolID, classID string) (bool, error) {
	class, err := r.classes.FindByID(ctx, classID)
	if err != nil {
		return false, fmt.Errorf("load class %s: %w", classID, err)
	}
	if class.SchoolID != schoolID {
		return false, fmt.Errorf("load class %s: %w", classID, store.ErrNotFound)
	}

	students, err := r.students.FindByClass(ctx, schoolID, classID)
	if err != nil {
		return false, fmt.Errorf("query students of class %s: %w", classID, err)
	}
	want := make([]string, 0, len(students))
	for _, st := range students {
		want = append(want, st.ID)
	}

	if sameSet(class.StudentIDs, want) {
		return false, nil
	}
	if err := r.classes.SetRoster(ctx, classID, want); err != nil {
		return false, fmt.Errorf("rewrite roster of class %s: %w", classID, err)
	}

	metrics.RosterRepairs.Inc()
	slog.Info("roster reconciled",
		"school_id", schoolID,
		"class_id", classID,
		"before", len(class.StudentIDs),
		"after", len(want),
	)
	return true, nil
}

// ReconcileSchool reconciles every class of a school with bounded
// concurrency and returns how many rosters were rewritten.
func (r *Reconciler) ReconcileSchool(ctx context.Context, schoolID string) (int, error) {
	classes, err := r.classes.FindBySchool(ctx, schoolID)
	if err != nil {
		return 0, fmt.Errorf("list classes: %w", err)
	}

	var changed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, c := range classes {
		classID := c.ID
		g.Go(func() error {
			ok, err := r.ReconcileClass(ctx, schoolID, classID)
			if err != nil {
				return err
			}
			if ok {
				changed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	return int(changed.Load()), err
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
