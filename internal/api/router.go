package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evmaki/pothos/internal/archive"
	"github.com/evmaki/pothos/internal/models"
)

// DefaultMaxUploadBytes caps the size of one upload request body.
const DefaultMaxUploadBytes = 32 << 20

// Options configures NewRouter.
type Options struct {
	MaxUploadBytes int64
	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
}

// NewRouter creates a chi router with all archive routes mounted.
func NewRouter(svc *archive.Service, auth *archive.Authenticator, opts Options) chi.Router {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	h := NewHandler(svc, auth)

	r := chi.NewRouter()

	for _, c := range models.Categories {
		r.Get("/"+c.Dir(), h.List(c))
		r.Get("/"+c.Dir()+"/", h.List(c))
		r.Get("/"+c.Dir()+"/{name}", h.Get(c))
	}
	r.With(LimitBody(opts.MaxUploadBytes)).Post("/add/{category}", h.Add)

	// Most recent video.
	r.Get("/", h.Latest)
	r.Get("/latest/", h.Latest)
	r.Get("/latest", h.Latest)

	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}
