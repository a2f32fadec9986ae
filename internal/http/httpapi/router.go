package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"server/internal/http/handlers"
	mw "server/internal/middleware"
)

// NewRouter assembles the HTTP surface of the ingestion service.
func NewRouter(app *handlers.App, logger zerolog.Logger, defaultLocale string, lookup mw.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		mw.I18N(defaultLocale, lookup),
		mw.Logger(logger),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/images", func(r chi.Router) {
		r.Post("/", app.UploadImages)
		r.Get("/{id}", app.GetImage)
		r.Get("/{id}/thumbnail", app.GetImageThumbnail)
	})

	return r
}
