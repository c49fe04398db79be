package api

import (
	"context"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/schoolhub/membership/internal/api/handlers"
	"github.com/schoolhub/membership/internal/api/middleware"
	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/classroom"
	"github.com/schoolhub/membership/internal/config"
	"github.com/schoolhub/membership/internal/identity"
	"github.com/schoolhub/membership/internal/member"
	"github.com/schoolhub/membership/internal/student"
	"github.com/schoolhub/membership/internal/tenant"
)

// Deps are the services the router exposes. AuditLog may be nil when the
// Postgres audit trail is disabled.
type Deps struct {
	Config   *config.Config
	Tokens   *auth.TokenService
	Gate     *auth.Gate
	Identity *identity.Service
	Tenants  *tenant.Service
	Members  *member.Service
	Classes  *classroom.Service
	Students *student.Service
	AuditLog handlers.AuditReader
	Health   *handlers.HealthHandler
}

type Router struct {
	mux  *chi.Mux
	deps Deps
}

func NewRouter(deps Deps) *Router {
	return &Router{mux: chi.NewRouter(), deps: deps}
}

// Setup mounts every route. The rate limiter's cleanup loop runs until ctx
// is cancelled.
func (rt *Router) Setup(ctx context.Context) http.Handler {
	r := rt.mux
	cfg := rt.deps.Config

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestSize(handlers.MaxBodyBytes))
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	if cfg.Server.RateLimit > 0 {
		rl := middleware.NewRateLimiter(ctx, cfg.Server.RateLimit, cfg.Server.RateWindow)
		r.Use(rl.Limit)
	}

	authn := auth.NewMiddleware(rt.deps.Tokens)
	r.Use(authn.Authenticate)

	// Health and metrics (no auth)
	health := rt.deps.Health
	if health == nil {
		health = handlers.NewHealthHandler(nil, nil, nil)
	}
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	authH := handlers.NewAuthHandler(rt.deps.Identity)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/callback", authH.Callback)
		r.With(auth.RequireAuthenticated).Get("/me", authH.Me)
	})

	schoolH := handlers.NewSchoolHandler(rt.deps.Tenants)
	memberH := handlers.NewMemberHandler(rt.deps.Members)
	classH := handlers.NewClassHandler(rt.deps.Classes)
	studentH := handlers.NewStudentHandler(rt.deps.Students)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.RequireAuthenticated)

		r.Get("/me/memberships", memberH.Mine)
		r.Get("/me/schools", schoolH.Mine)

		r.Route("/schools", func(r chi.Router) {
			r.Post("/", schoolH.Register)
			r.Get("/", schoolH.List)
			r.Get("/pending", schoolH.Pending)

			r.Route("/{schoolID}", func(r chi.Router) {
				r.Use(middleware.SchoolScope)

				r.Get("/", schoolH.Get)
				r.Post("/approve", schoolH.Approve)
				r.Post("/reject", schoolH.Reject)
				r.Post("/repair-owner", schoolH.RepairOwner)

				r.Route("/members", func(r chi.Router) {
					r.Get("/", memberH.List)
					r.Post("/", memberH.Add)
					r.Get("/{memberID}", memberH.Get)
					r.Delete("/{memberID}", memberH.Remove)
					r.Patch("/{memberID}/role", memberH.UpdateRole)
					r.Patch("/{memberID}/status", memberH.SetStatus)
					r.Post("/{memberID}/permissions", memberH.Grant)
				})

				r.Route("/classes", func(r chi.Router) {
					r.Post("/", classH.Create)
					r.Get("/", classH.List)
					r.Get("/{classID}", classH.Get)
					r.Get("/{classID}/roster", classH.Roster)
					r.Post("/{classID}/reconcile", classH.Reconcile)
				})
				r.Post("/rosters/reconcile", classH.Reconcile)

				r.Route("/students", func(r chi.Router) {
					r.Post("/", studentH.Create)
					r.Get("/{studentID}", studentH.Get)
					r.Patch("/{studentID}", studentH.Update)
					r.Delete("/{studentID}", studentH.Delete)
				})

				if rt.deps.AuditLog != nil {
					adminH := handlers.NewAdminHandler(rt.deps.AuditLog, rt.deps.Gate)
					r.Get("/audit", adminH.AuditLogs)
				}
			})
		})
	})

	return r
}
