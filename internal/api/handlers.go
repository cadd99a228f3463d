package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/evmaki/pothos/internal/apperr"
	"github.com/evmaki/pothos/internal/archive"
	"github.com/evmaki/pothos/internal/models"
)

// multipartMemory is how much of a multipart body is held in memory
// before spilling to temp files.
const multipartMemory = 8 << 20

// Handler holds API route handlers.
type Handler struct {
	svc  *archive.Service
	auth *archive.Authenticator
}

// NewHandler creates a new Handler.
func NewHandler(svc *archive.Service, auth *archive.Authenticator) *Handler {
	return &Handler{svc: svc, auth: auth}
}

// fileName extracts the {name} parameter. Clients may percent-encode the
// ':' and ',' in frame and video names.
func fileName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// List handles GET /videos, /frames and /data.
func (h *Handler) List(c models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := h.svc.Names(r.Context(), c)
		if err != nil {
			slog.Error("list failed", slog.String("category", string(c)), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, failure("internal error"))
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{c.Dir(): names})
	}
}

// Get handles GET /{category dir}/{name}.
func (h *Handler) Get(c models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := fileName(r)
		path, err := h.svc.Path(r.Context(), c, name)
		switch {
		case errors.Is(err, apperr.ErrInvalidName):
			writeJSON(w, http.StatusBadRequest, failure(err.Error()))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, failure("not found"))
		case err != nil:
			slog.Error("get failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, failure("internal error"))
		default:
			serveFile(w, r, c, path)
		}
	}
}

// Latest handles GET / and GET /latest/.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	meta, err := h.svc.Latest(r.Context())
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, failure("no videos"))
		return
	}
	if err == nil {
		var path string
		path, err = h.svc.Path(r.Context(), models.CategoryVideo, meta.Name)
		if err == nil {
			serveFile(w, r, models.CategoryVideo, path)
			return
		}
	}
	slog.Error("latest failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, failure("internal error"))
}

// Upload handles POST /add/{category} (multipart/form-data, fields "file"
// and "password").
func (h *Handler) Upload(c models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, failure("file too large"))
				return
			}
			writeJSON(w, http.StatusBadRequest, failure("invalid multipart form"))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile("file")
		if err != nil {
			slog.Warn("upload without file", slog.String("category", string(c)))
			writeJSON(w, http.StatusBadRequest, failure("missing 'file' field in multipart form"))
			return
		}
		defer file.Close()

		if _, ok := r.MultipartForm.Value["password"]; !ok {
			slog.Warn("upload without password", slog.String("category", string(c)), slog.String("name", header.Filename))
			writeJSON(w, http.StatusUnauthorized, failure("password is required"))
			return
		}
		if err := h.auth.Check(r.FormValue("password")); err != nil {
			slog.Warn("upload with wrong password", slog.String("category", string(c)), slog.String("name", header.Filename))
			writeJSON(w, http.StatusUnauthorized, failure("unauthorized"))
			return
		}

		n, err := h.svc.Save(r.Context(), c, header.Filename, file)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidName) {
				slog.Warn("upload with invalid name", slog.String("category", string(c)), slog.String("name", header.Filename))
				writeJSON(w, http.StatusBadRequest, failure(err.Error()))
				return
			}
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, failure("file too large"))
				return
			}
			slog.Error("upload failed", slog.String("name", header.Filename), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, failure("internal error"))
			return
		}

		slog.Info("uploaded",
			slog.String("category", string(c)),
			slog.String("name", header.Filename),
			slog.Int64("size", n),
		)
		writeJSON(w, http.StatusOK, result{Success: true})
	}
}

// Add routes POST /add/{category} to the category's Upload handler.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	c, err := models.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, failure(err.Error()))
		return
	}
	h.Upload(c).ServeHTTP(w, r)
}

func serveFile(w http.ResponseWriter, r *http.Request, c models.Category, path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", c.ContentType())
	http.ServeFile(w, r, path)
}
