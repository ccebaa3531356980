// Package api exposes the search engine over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/search"
)

const (
	maxBodyBytes = 32 << 20

	statusDescription = "Operation breakdown similarity search engine is up and running"
)

// Service is the search surface the handlers call.
type Service interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
	SearchDataSource(ctx context.Context, req search.DataSourceRequest) (*search.Response, error)
	StyleTypes(ctx context.Context, tenantID int64) ([]string, error)
	Breakdowns(ctx context.Context, tenantID int64, styleType string) ([]core.Breakdown, error)
	BreakdownByLayoutCode(ctx context.Context, tenantID int64, layoutCode string) (*core.Breakdown, error)
}

var _ Service = (*search.Searcher)(nil)

// Handler serves the HTTP API.
type Handler struct {
	service      Service
	logger       *slog.Logger
	metrics      http.Handler
	corsOrigins  []string
	requestLimit time.Duration
	rateRequests int
	rateWindow   time.Duration
}

// Option configures a Handler.
type Option func(*Handler) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) error {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger
		return nil
	}
}

// WithMetricsHandler mounts handler at /metrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(h *Handler) error {
		h.metrics = handler
		return nil
	}
}

// WithCORSOrigins sets the allowed CORS origins.
// Default is every origin.
func WithCORSOrigins(origins []string) Option {
	return func(h *Handler) error {
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		h.corsOrigins = origins
		return nil
	}
}

// WithRequestTimeout bounds each request.
// Default is 60s.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) error {
		h.requestLimit = d
		return nil
	}
}

// WithRateLimit limits each client IP to requests per window on the /ob
// routes. Default is no limit.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(h *Handler) error {
		if requests > 0 && window <= 0 {
			window = time.Minute
		}
		h.rateRequests = requests
		h.rateWindow = window
		return nil
	}
}

// NewHandler creates the API handler.
func NewHandler(service Service, opts ...Option) (*Handler, error) {
	if service == nil {
		return nil, ErrServiceRequired
	}

	h := &Handler{
		service:      service,
		logger:       slog.Default(),
		corsOrigins:  []string{"*"},
		requestLimit: 60 * time.Second,
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/status", h.Status)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/ob", func(r chi.Router) {
		if h.rateRequests > 0 {
			r.Use(httprate.LimitByIP(h.rateRequests, h.rateWindow))
		}
		if h.requestLimit > 0 {
			r.Use(middleware.Timeout(h.requestLimit))
		}
		r.Post("/search", h.Search)
		r.Post("/search-ds", h.SearchDataSource)
		r.Get("/style-types/{tenant_id}", h.StyleTypes)
		r.Get("/get-style-types/{tenant_id}", h.StyleTypes)
		r.Get("/data/{tenant_id}/{style_type}", h.Data)
		r.Get("/layout/{tenant_id}/{layout_code}", h.Layout)
		r.Get("/get-ob-by-layout/{tenant_id}/{layout_code}", h.Layout)
	})

	return r
}

// Status reports that the service is up.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"service_status": "UP",
		"description":    statusDescription,
	})
}

// Search handles POST /ob/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req := search.NewRequest()
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.Search(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}

// SearchDataSource handles POST /ob/search-ds.
func (h *Handler) SearchDataSource(w http.ResponseWriter, r *http.Request) {
	req := search.NewDataSourceRequest()
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.SearchDataSource(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}

// StyleTypes handles GET /ob/style-types/{tenant_id}.
func (h *Handler) StyleTypes(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantParam(w, r)
	if !ok {
		return
	}

	styles, err := h.service.StyleTypes(r.Context(), tenantID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, styles)
}

// Data handles GET /ob/data/{tenant_id}/{style_type}.
func (h *Handler) Data(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantParam(w, r)
	if !ok {
		return
	}

	breakdowns, err := h.service.Breakdowns(r.Context(), tenantID, chi.URLParam(r, "style_type"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, breakdowns)
}

// Layout handles GET /ob/layout/{tenant_id}/{layout_code}.
func (h *Handler) Layout(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantParam(w, r)
	if !ok {
		return
	}

	b, err := h.service.BreakdownByLayoutCode(r.Context(), tenantID, chi.URLParam(r, "layout_code"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, b)
}

// decode reads and validates a JSON body. On failure it writes a 422 and
// returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		respondDetail(w, h.logger, http.StatusUnprocessableEntity, []FieldError{{Field: "body", Message: err.Error()}})
		return false
	}
	if fieldErrs := validateStruct(v); fieldErrs != nil {
		respondDetail(w, h.logger, http.StatusUnprocessableEntity, fieldErrs)
		return false
	}
	return true
}

// tenantParam parses the tenant_id path parameter. Non-numeric and
// non-positive ids are answered with 400.
func (h *Handler) tenantParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	tenantID, err := strconv.ParseInt(chi.URLParam(r, "tenant_id"), 10, 64)
	if err != nil || tenantID <= 0 {
		respondDetail(w, h.logger, http.StatusBadRequest, "Invalid tenant_id. Must be a positive integer.")
		return 0, false
	}
	return tenantID, true
}
