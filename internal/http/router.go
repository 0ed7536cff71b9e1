package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxRequestBodySize = 1 << 20

// HealthCheck reports the state of one dependency. Any check returning
// ok=false turns /health into a 503.
type HealthCheck func() (name, state string, ok bool)

// NewRouter mounts the basket routes and the health check.
func NewRouter(baskets BasketService, timeout time.Duration, logger *slog.Logger, checks ...HealthCheck) http.Handler {
	handler := NewBasketHandler(baskets, timeout, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.Get("/health", health(checks))

	r.Route("/api/v1/baskets/{ownerID}", func(r chi.Router) {
		r.Get("/", handler.GetBasket)
		r.Post("/images", handler.AddItem)
		r.Post("/images/remove", handler.RemoveItem)
	})

	return otelhttp.NewHandler(r, "basket-service")
}

func health(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		for _, check := range checks {
			name, state, ok := check()
			body[name] = state
			if !ok {
				status, body["status"] = http.StatusServiceUnavailable, "degraded"
			}
		}
		respondJSON(w, status, body)
	}
}
