package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

// uploadFieldName is the multipart field carrying the batch files.
const uploadFieldName = "files"

type uploadResultItem struct {
	ID             string `json:"id,omitempty"`
	Filename       string `json:"filename"`
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
	StorageKey     string `json:"storage_key,omitempty"`
	StorageURL     string `json:"storage_url,omitempty"`
	ThumbnailKey   string `json:"thumbnail_key,omitempty"`
	ThumbnailURL   string `json:"thumbnail_url,omitempty"`
	ThumbnailError string `json:"thumbnail_error,omitempty"`
	Error          string `json:"error,omitempty"`
}

type uploadResponse struct {
	Results []uploadResultItem `json:"results"`
}

// UploadImages ingests a multipart batch: every file is validated through
// the check chain, persistable files are stored with a thumbnail, and the
// response reports one outcome per input file in input order.
func (a *App) UploadImages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(a.MaxMultipartMemory); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File[uploadFieldName]
	if len(headers) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "No files uploaded.")
		return
	}

	candidates := make([]domain.UploadCandidate, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unreadable file part")
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unreadable file part")
			return
		}
		candidates = append(candidates, domain.UploadCandidate{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Size:     fh.Size,
			Data:     data,
		})
	}

	actor := strings.TrimSpace(r.Header.Get("X-User"))

	verdicts := a.Validator.ValidateAll(r.Context(), candidates)
	result, err := a.Ingest.Ingest(r.Context(), candidates, verdicts, actor)
	if err != nil {
		a.Logger.Error().Err(err).Int("files", len(candidates)).Msg("handlers: batch ingest failed")
		a.error(w, http.StatusInternalServerError, "internal", "Error saving image metadata")
		return
	}

	resp := uploadResponse{Results: make([]uploadResultItem, len(result))}
	for i, outcome := range result {
		resp.Results[i] = uploadResultItem{
			ID:             outcome.ID,
			Filename:       outcome.Filename,
			Status:         string(outcome.Status),
			Reason:         outcome.Reason,
			StorageKey:     outcome.StorageKey,
			StorageURL:     outcome.StorageURL,
			ThumbnailKey:   outcome.ThumbnailKey,
			ThumbnailURL:   outcome.ThumbnailURL,
			ThumbnailError: outcome.ThumbnailURLError,
			Error:          outcome.ProcessingError,
		}
	}
	a.json(w, http.StatusOK, resp)
}

// GetImage serves the stored original bytes for an image id.
func (a *App) GetImage(w http.ResponseWriter, r *http.Request) {
	a.serveBlob(w, r, func(rec *domain.ImageRecord) (string, string) {
		return rec.StorageKey, rec.MimeType
	})
}

// GetImageThumbnail serves the stored thumbnail bytes for an image id.
func (a *App) GetImageThumbnail(w http.ResponseWriter, r *http.Request) {
	a.serveBlob(w, r, func(rec *domain.ImageRecord) (string, string) {
		return rec.ThumbnailKey, "image/jpeg"
	})
}

func (a *App) serveBlob(w http.ResponseWriter, r *http.Request, pick func(*domain.ImageRecord) (key, fallbackType string)) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}

	rec, err := a.Repo.GetByID(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "Image not found")
		return
	}
	if err != nil {
		a.Logger.Error().Err(err).Str("image_id", id).Msg("handlers: load image record failed")
		a.error(w, http.StatusInternalServerError, "internal", "Error retrieving image")
		return
	}

	key, fallbackType := pick(rec)
	if key == "" {
		a.error(w, http.StatusNotFound, "not_found", "Image not found")
		return
	}

	stream, err := a.Store.GetStream(r.Context(), key)
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "Image not found")
		return
	}
	if err != nil {
		a.Logger.Error().Err(err).Str("key", key).Msg("handlers: open blob stream failed")
		a.error(w, http.StatusInternalServerError, "internal", "Error retrieving image")
		return
	}
	defer stream.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = fallbackType
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, stream); err != nil {
		a.Logger.Error().Err(err).Str("key", key).Msg("handlers: stream blob failed")
	}
}
