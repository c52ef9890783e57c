package web

import (
	"encoding/json"
	"net/http"

	"fitlife-planner/internal/app"

	"go.uber.org/zap"
)

// Handlers serves a read-only JSON view of the planner.
type Handlers struct {
	app    *app.App
	logger *zap.Logger
}

// NewHandlers creates the read-only API. logger may be nil.
func NewHandlers(a *app.App, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{app: a, logger: logger.Named("web")}
}

// Register mounts the endpoints on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /api/plan", h.synced(h.plan))
	mux.HandleFunc("GET /api/meals", h.synced(h.meals))
	mux.HandleFunc("GET /api/meals/{id}", h.synced(h.meal))
	mux.HandleFunc("GET /api/shopping", h.synced(h.shopping))
}

// synced re-reads the remote tables before next runs. When the remote is
// unreachable the last known state is served.
func (h *Handlers) synced(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.app.Sync(r.Context()); err != nil {
			h.logger.Warn("serving last known state", zap.Error(err))
		}
		next(w, r)
	}
}

func (h *Handlers) plan(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.app.Week())
}

func (h *Handlers) meals(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.app.Catalog.List())
}

func (h *Handlers) meal(w http.ResponseWriter, r *http.Request) {
	d, ok := h.app.Detail(r.PathValue("id"))
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "meal not found"})
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) shopping(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.app.ShoppingList())
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}
