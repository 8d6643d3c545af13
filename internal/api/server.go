// Package api exposes the catalog over HTTP.
package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bowerhall/monumentd/internal/catalog"
	"github.com/bowerhall/monumentd/internal/logger"
	"github.com/bowerhall/monumentd/internal/monument"
	"github.com/bowerhall/monumentd/internal/refresh"
)

// Refresher is the part of the refresh coordinator the API needs.
type Refresher interface {
	Ready() bool
	LastResult() (refresh.Result, bool)
	TriggerAsync()
}

type Options struct {
	// DataDir is reported in /status disk usage. Default: ".".
	DataDir string
	// Metrics serves /metrics. Default: promhttp.Handler().
	Metrics http.Handler
	// AdminToken is the bearer token /admin routes require. Empty disables
	// them.
	AdminToken string
}

type Server struct {
	catalog   *catalog.Service
	refresher Refresher
	opts      Options
	started   time.Time
}

func New(c *catalog.Service, r Refresher, opts Options) *Server {
	if opts.DataDir == "" {
		opts.DataDir = "."
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}
	return &Server{catalog: c, refresher: r, opts: opts, started: time.Now()}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLog)
	r.Use(cors)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/monuments", http.StatusFound)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", s.opts.Metrics)
	r.Route("/admin", func(r chi.Router) {
		r.Use(requireToken(s.opts.AdminToken))
		r.Post("/refresh", s.handleRefresh)
	})

	r.Route("/monuments", func(r chi.Router) {
		r.Get("/", s.handleAll)
		r.Get("/nearby", s.handleNearby)
		r.Get("/province/{value}", s.handleByField(monument.FieldProvince))
		r.Get("/monument-type/{value}", s.handleByField(monument.FieldMonumentType))
		r.Get("/construction-type/{value}", s.handleByField(monument.FieldConstructionType))
		r.Get("/classification/{value}", s.handleByField(monument.FieldClassification))
		r.Get("/historical-period/{value}", s.handleByField(monument.FieldHistoricalPeriod))
		r.Get("/{id}", s.handleByID)
		r.Get("/{id}/image", s.handleImage)
	})

	r.Get("/facets/{dimension}", s.handleFacets)

	return r
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// requireToken answers 403 when no token is configured and 401 unless the
// request carries "Authorization: Bearer <token>".
func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeError(w, http.StatusForbidden, errors.New("admin endpoints disabled"))
				return
			}

			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="monumentd"`)
				writeError(w, http.StatusUnauthorized, errors.New("invalid admin token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// cors allows any origin; the API is public and read-only apart from the
// token-guarded /admin routes.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
