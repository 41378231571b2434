package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andreasstove999/shipment-service-go/internal/auth"
)

const LoginPath = "/login"

type RouterDeps struct {
	API      *APIHandler
	Web      *WebHandler
	Tokens   *auth.Tokens
	Logger   *slog.Logger
	Metrics  *HTTPMetrics
	Gatherer prometheus.Gatherer
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Instrument)
	}

	r.Get("/health", Health)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireBearer(d.Tokens))

		r.Route("/shipments", func(r chi.Router) {
			r.Get("/", d.API.Index)
			r.Post("/", d.API.Store)
			r.Get("/{id}", d.API.Show)
			r.Patch("/{id}", d.API.Update)
			r.Delete("/{id}", d.API.Destroy)
			r.Get("/{id}/tracking", d.API.Tracking)
		})
		r.Post("/addresses/validate", d.API.ValidateAddress)
	})

	r.Route("/shipments", func(r chi.Router) {
		r.Use(auth.RequireSession(d.Tokens, LoginPath))

		r.Get("/", d.Web.Index)
		r.Get("/create", d.Web.Create)
		r.Post("/", d.Web.Store)
		r.Get("/{id}", d.Web.Show)
		r.Post("/{id}/delete", d.Web.Destroy)
	})

	return r
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
