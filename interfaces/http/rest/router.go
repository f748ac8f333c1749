// Package rest exposes the analysis and modeling services over HTTP.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/application/commands/bus"
	querybus "github.com/tmdt-buw/plasma-sub002/application/queries/bus"
	"github.com/tmdt-buw/plasma-sub002/interfaces/http/rest/handlers"
	"github.com/tmdt-buw/plasma-sub002/interfaces/http/rest/middleware"
	"github.com/tmdt-buw/plasma-sub002/pkg/observability"
)

// Options configures the optional parts of the router. Zero values disable
// the corresponding feature.
type Options struct {
	AllowedOrigins []string
	MaxRequestSize int64
	// TracingService names the tracer of the HTTP spans
	TracingService string
	Collector      *observability.Collector
	Auth           middleware.TokenValidator
	Recipes        handlers.RecipeRunner
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	opts       Options
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, opts Options, logger *zap.Logger) *Router {
	return &Router{commandBus: commandBus, queryBus: queryBus, opts: opts, logger: logger}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.opts.TracingService != "" {
		router.Use(observability.TracingMiddleware(rt.opts.TracingService))
	}
	if rt.opts.Collector != nil {
		router.Use(observability.MetricsMiddleware(rt.opts.Collector))
	}
	if rt.opts.MaxRequestSize > 0 {
		router.Use(chimiddleware.RequestSize(rt.opts.MaxRequestSize))
	}

	origins := rt.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Trace-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)
	if rt.opts.Collector != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.Collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if rt.opts.Auth != nil {
			r.Use(middleware.Authenticate(rt.opts.Auth, rt.logger))
		}

		dataSources := handlers.NewDataSourceHandler(rt.commandBus, rt.queryBus, rt.logger)
		r.Route("/datasources", func(r chi.Router) {
			r.Get("/", dataSources.ListDataSources)
			r.Route("/{dataSourceID}", func(r chi.Router) {
				r.Post("/samples", dataSources.IngestSamples)
				r.Delete("/aggregation", dataSources.ResetAggregation)
				r.Post("/finalize", dataSources.Finalize)
				r.Get("/schema", dataSources.GetSchema)
				r.Post("/schema/undo", dataSources.UndoSchema)
				r.Post("/schema/redo", dataSources.RedoSchema)
				r.Get("/faults", dataSources.GetFaults)
				r.Get("/status", dataSources.GetStatus)
				r.Get("/revisions", dataSources.ListRevisions)
			})
		})

		sessions := handlers.NewSessionHandler(rt.commandBus, rt.queryBus, rt.opts.Recipes, rt.logger)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessions.StartSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Delete("/", sessions.CloseSession)
				r.Get("/model", sessions.GetModel)
				r.Post("/undo", sessions.Undo)
				r.Post("/redo", sessions.Redo)
				r.Post("/operations", sessions.ApplyOperation)
				r.Get("/handles", sessions.GetHandles)
				r.Post("/concepts", sessions.AddConcept)
				r.Post("/relations", sessions.Relate)
				r.Post("/recipe", sessions.ApplyRecipe)
				r.Get("/revisions", sessions.ListRevisions)
			})
		})

		r.Get("/operations", handlers.NewOperationHandler(rt.queryBus, rt.logger).ListOperations)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
