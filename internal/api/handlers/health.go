package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const readyTimeout = 3 * time.Second

type dependency struct {
	name string
	ping func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness. Readiness pings every
// configured backend; a nil backend is skipped.
type HealthHandler struct {
	deps []dependency
}

func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client, mc *mongo.Client) *HealthHandler {
	h := &HealthHandler{}
	if mc != nil {
		h.deps = append(h.deps, dependency{"mongo", func(ctx context.Context) error {
			return mc.Ping(ctx, readpref.Primary())
		}})
	}
	if db != nil {
		h.deps = append(h.deps, dependency{"audit_db", db.Ping})
	}
	if rdb != nil {
		h.deps = append(h.deps, dependency{"redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return h
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, overall := http.StatusOK, "ok"
	checks := make(map[string]string, len(h.deps))
	for _, d := range h.deps {
		if err := d.ping(ctx); err != nil {
			checks[d.name] = "unhealthy: " + err.Error()
			status, overall = http.StatusServiceUnavailable, "unhealthy"
			continue
		}
		checks[d.name] = "ok"
	}

	writeJSON(w, status, map[string]interface{}{"status": overall, "checks": checks})
}
