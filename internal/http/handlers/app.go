package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/ingest"
	"server/internal/validation"
)

// App bundles the capabilities the HTTP surface depends on. Everything is
// constructed once at process start and injected here.
type App struct {
	Logger    zerolog.Logger
	Repo      domain.ImageRepository
	Store     domain.BlobStore
	Validator *validation.BatchValidator
	Ingest    *ingest.Orchestrator

	// MaxMultipartMemory caps the in-memory portion of multipart parsing.
	MaxMultipartMemory int64
}

// NewApp constructs the handler container.
func NewApp(logger zerolog.Logger, repo domain.ImageRepository, store domain.BlobStore, validator *validation.BatchValidator, ingestor *ingest.Orchestrator) *App {
	return &App{
		Logger:             logger,
		Repo:               repo,
		Store:              store,
		Validator:          validator,
		Ingest:             ingestor,
		MaxMultipartMemory: 32 << 20,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}
