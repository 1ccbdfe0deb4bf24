package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	srv *http.Server
}

func New(addr string, exposeMetrics bool, h *Handler, log *slog.Logger) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewRouter(h, exposeMetrics, log),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func NewRouter(h *Handler, exposeMetrics bool, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if exposeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/items", h.ListMaterials)
			r.Post("/items", h.CreateMaterial)
			r.Get("/items/{id}", h.GetMaterial)
			r.Patch("/items/{id}", h.UpdateMaterial)
			r.Delete("/items/{id}", h.DeleteMaterial)
			r.Post("/items/{id}/add-stock", h.AddStock)
			r.Post("/items/{id}/write-off", h.WriteOff)
			r.Get("/items/{id}/transactions", h.Movements)
			r.Get("/export", h.ExportStock)
			r.Post("/samples", h.SeedSamples)

			r.Post("/audit/start", h.StartAudit)
			r.Get("/audit/current", h.CurrentAudit)
			r.Post("/audit/{id}/items", h.RecordCounts)
			r.Post("/audit/{id}/import", h.ImportCounts)
			r.Post("/audit/{id}/complete", h.CompleteAudit)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Get("/{id}/composition", h.Composition)
			r.Put("/{id}/composition", h.SetComposition)
			r.Get("/{id}/availability", h.CheckAvailability)
			r.Post("/{id}/deduct-materials", h.DeductMaterials)
		})
	})
	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
