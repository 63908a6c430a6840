package routes

import (
	"net/http"

	"github.com/zatekoja/clinicfinder/internal/api/handlers"
	"github.com/zatekoja/clinicfinder/internal/api/middleware"
	"github.com/zatekoja/clinicfinder/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	recommendationHandler *handlers.RecommendationHandler
	triageHandler         *handlers.TriageHandler
	geolocationHandler    *handlers.GeolocationHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. triageHandler may be nil when no LLM is configured.
func NewRouter(
	recommendationHandler *handlers.RecommendationHandler,
	triageHandler *handlers.TriageHandler,
	geolocationHandler *handlers.GeolocationHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                   http.NewServeMux(),
		recommendationHandler: recommendationHandler,
		triageHandler:         triageHandler,
		geolocationHandler:    geolocationHandler,
		allowedOrigins:        allowedOrigins,
		metrics:               metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	r.mux.HandleFunc("POST /api/recommendations", r.recommendationHandler.Recommend)

	if r.triageHandler != nil {
		r.mux.HandleFunc("POST /api/triage", r.triageHandler.Triage)
	}

	r.mux.HandleFunc("GET /api/geocode", r.geolocationHandler.Geocode)
	r.mux.HandleFunc("GET /api/places/{placeID}", r.geolocationHandler.PlaceDetails)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so preflight never reaches the handlers
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
