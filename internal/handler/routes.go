package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"training-app/internal/logger"
	"training-app/internal/middleware"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Router bundles what NewRouter wires together.
type Router struct {
	Auth     *AuthHandler
	Sections *SectionHandler
	Elements *ElementHandler
	Verifier middleware.TokenVerifier
	DB       Pinger

	// UploadPath and Uploads serve stored files publicly. Uploads may be nil.
	UploadPath string
	Uploads    http.Handler

	Log logger.Logger
}

// NewRouter creates and configures a new chi router.
func NewRouter(rt Router) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(rt.Log))
	r.Use(chimw.Recoverer)

	wrap := middleware.Error(rt.Log)

	if rt.Uploads != nil {
		prefix := "/" + strings.Trim(rt.UploadPath, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, rt.Uploads))
	}

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", wrap(health(rt.DB)))
		r.Method(http.MethodPost, "/auth/login", wrap(rt.Auth.login))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.Verifier, rt.Log))

			r.Method(http.MethodPost, "/auth/register", wrap(rt.Auth.register))

			r.Method(http.MethodGet, "/sections", wrap(rt.Sections.list))
			r.Method(http.MethodPost, "/sections", wrap(rt.Sections.create))
			r.Method(http.MethodPut, "/sections/{id}", wrap(rt.Sections.rename))
			r.Method(http.MethodDelete, "/sections/{id}", wrap(rt.Sections.delete))

			// GET and POST take a section id, PUT and DELETE an element id.
			r.Method(http.MethodGet, "/elements/{id}", wrap(rt.Elements.list))
			r.Method(http.MethodPost, "/elements/{id}", wrap(rt.Elements.create))
			r.Method(http.MethodPut, "/elements/{id}", wrap(rt.Elements.update))
			r.Method(http.MethodDelete, "/elements/{id}", wrap(rt.Elements.delete))
		})
	})

	return r
}

func health(db Pinger) middleware.AppHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return err
			}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return nil
	}
}
