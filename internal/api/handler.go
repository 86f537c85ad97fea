// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custom_errors "github-contributions/internal/errors"
	"github-contributions/internal/github"
	"github-contributions/internal/storage"
)

// Runner triggers a sync for one user. *syncer.Syncer implements it.
type Runner interface {
	Run(ctx context.Context, login string) (bool, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	store  storage.Store
	runner Runner
	logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(store storage.Store, runner Runner, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	h := &Handler{
		store:  store,
		runner: runner,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.healthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1/users/{login}", func(r chi.Router) {
		r.With(middleware.Timeout(60*time.Second)).Get("/stats", h.getItem(storage.StatsID))
		r.With(middleware.Timeout(60*time.Second)).Get("/repositories", h.getItem(storage.RepositoriesID))
		// A first crawl can take far longer than any sensible request timeout.
		r.Post("/sync", h.triggerSync)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getItem serves a published document of the user as stored.
// GET /v1/users/{login}/stats
// GET /v1/users/{login}/repositories
func (h *Handler) getItem(id func(login string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		login := chi.URLParam(r, "login")
		if err := github.ValidateLogin(login); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		data, ok, err := h.store.ReadItem(r.Context(), id(github.CanonicalLogin(login)))
		if err != nil {
			h.logger.Error("Failed to read item", "login", login, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !ok {
			respondWithError(w, http.StatusNotFound, "No statistics published for this user")
			return
		}

		respondWithRawJSON(w, http.StatusOK, []byte(data))
	}
}

// triggerSync runs a sync for the user and reports whether anything changed.
// POST /v1/users/{login}/sync
func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")

	changed, err := h.runner.Run(r.Context(), login)
	if err != nil {
		var loginErr *custom_errors.ErrInvalidLogin
		var notFound *custom_errors.ErrUserNotFound
		switch {
		case errors.As(err, &loginErr):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &notFound):
			respondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, custom_errors.ErrSyncInProgress):
			respondWithError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("Sync failed", "login", login, "error", err)
			respondWithError(w, http.StatusBadGateway, "Sync failed")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}
