package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andres10976/certcheck/internal/service/watch"
)

type watchService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() watch.State
}

type WatchHandler struct {
	watcher watchService
}

func NewWatchHandler(w watchService) *WatchHandler {
	return &WatchHandler{watcher: w}
}

func (h *WatchHandler) RegisterRoutes(r chi.Router) {
	r.Get("/watch/status", h.Status)
	r.Post("/watch/start", h.Start)
	r.Post("/watch/stop", h.Stop)
}

func (h *WatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.watcher.Status())
}

func (h *WatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.watcher.Start(r.Context()); err != nil {
		switch {
		case errors.Is(err, watch.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "watcher is already running")
		case errors.Is(err, watch.ErrNoDomains):
			writeError(w, http.StatusConflict, "no domains configured; set WATCH_DOMAINS")
		default:
			writeError(w, http.StatusInternalServerError, "failed to start watcher")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Watcher started"})
}

func (h *WatchHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.watcher.Stop(r.Context()); err != nil {
		if errors.Is(err, watch.ErrNotRunning) {
			writeError(w, http.StatusConflict, "watcher is not running")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to stop watcher")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Watcher stopped"})
}
