package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"uniicon/internal/http/handlers"
	"uniicon/internal/infra"
	"uniicon/internal/middleware"
)

// NewRouter builds the service router: the JSON API plus static serving of
// previously generated icons.
func NewRouter(app *handlers.App, logger infra.Logger, corsOrigins []string, rateLimitPerMin int) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(corsOrigins),
	)

	r.Get("/healthz", app.Health)
	r.Route("/api", func(r chi.Router) {
		if rateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(rateLimitPerMin, time.Minute))
		}
		r.Post("/generate", app.Generate)
		r.Post("/edit", app.Edit)
		r.Post("/validate", app.ValidateInstructions)
		r.Get("/status", app.Status)
	})

	if app.Store != nil {
		fs := http.StripPrefix("/generated/", http.FileServer(http.Dir(app.Store.BasePath())))
		r.Get("/generated/*", fs.ServeHTTP)
	}

	return r
}
