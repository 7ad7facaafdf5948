// Package api serves the archiver's HTTP interface: archive rule management,
// manual sweeps, system tags and their assignments, plus health and metrics.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mdhemmi/files-archive/pkg/api/middleware"
	"github.com/mdhemmi/files-archive/pkg/archive"
	"github.com/mdhemmi/files-archive/pkg/rules"

	"github.com/go-chi/chi/v5"
)

// RuleService is the rule lifecycle the API exposes.
type RuleService interface {
	List(ctx context.Context) ([]rules.RuleView, error)
	Create(ctx context.Context, rule *archive.Rule) error
	Delete(ctx context.Context, id int64) error
	TagDeleted(ctx context.Context, tagID int64) error
	RunNow(ctx context.Context, tag string) (*archive.SweepResult, error)
}

// TagStore manages system tags and their assignments.
type TagStore interface {
	ListTags(ctx context.Context) ([]*archive.Tag, error)
	CreateTag(ctx context.Context, tag *archive.Tag) error
	GetTag(ctx context.Context, id int64) (*archive.Tag, error)
	DeleteTag(ctx context.Context, id int64) error
	Assign(ctx context.Context, objectID int64, objectType string, tagIDs []int64) error
	Unassign(ctx context.Context, objectID int64, objectType string, tagIDs []int64) error
}

// Options carries the optional parts of the router.
type Options struct {
	// Logger for request logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records per-request metrics when set.
	Metrics middleware.MetricsRecorder

	// MetricsPath and MetricsHandler mount the Prometheus endpoint.
	MetricsPath    string
	MetricsHandler http.Handler

	// Liveness, Readiness and Version are mounted at /health, /ready and
	// /version when set.
	Liveness  http.Handler
	Readiness http.Handler
	Version   http.Handler
}

// API holds the handlers' collaborators.
type API struct {
	rules  RuleService
	tags   TagStore
	logger *slog.Logger
}

// NewRouter builds the chi router with the middleware chain applied.
func NewRouter(ruleSvc RuleService, tags TagStore, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		rules:  ruleSvc,
		tags:   tags,
		logger: logger.With("component", "api"),
	}

	r := chi.NewRouter()

	// Recovery is outermost so panics in other middleware are caught too.
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Tracing)
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}

	if opts.Liveness != nil {
		r.Method(http.MethodGet, "/health", opts.Liveness)
	}
	if opts.Readiness != nil {
		r.Method(http.MethodGet, "/ready", opts.Readiness)
	}
	if opts.Version != nil {
		r.Method(http.MethodGet, "/version", opts.Version)
	}
	if opts.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, opts.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/rules", a.listRules)
		r.Post("/rules", a.createRule)
		r.Delete("/rules/{id}", a.deleteRule)

		r.Post("/run", a.run)

		r.Get("/tags", a.listTags)
		r.Post("/tags", a.createTag)
		r.Delete("/tags/{id}", a.deleteTag)
		r.Put("/tags/{id}/objects/{objectId}", a.assignTag)
		r.Delete("/tags/{id}/objects/{objectId}", a.unassignTag)
	})

	return r
}
