// Package ops содержит служебную HTTP-поверхность бота.
package ops

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/middleware"
	"github.com/mvolkov/accmarket-bot/internal/store"
)

// Handler реализует служебные HTTP-обработчики.
type Handler struct {
	store  *store.Store
	logger *zap.Logger
	auth   *middleware.TokenAuth
}

// NewHandler создаёт новый экземпляр служебных обработчиков.
func NewHandler(st *store.Store, logger *zap.Logger, auth *middleware.TokenAuth) *Handler {
	return &Handler{
		store:  st,
		logger: logger,
		auth:   auth,
	}
}

// Health сообщает, что процесс жив.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Stats возвращает сводку по состоянию.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("encode stats error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Backup принудительно сохраняет снапшот состояния.
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Save(r.Context()); err != nil {
		h.logger.Error("forced backup error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
