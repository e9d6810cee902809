package handler

import (
	"context"
	"net/http"
	"time"

	"doc-vault-server/internal/model/requestresponse"

	"github.com/rs/zerolog/log"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	database pinger
}

func NewHealthHandler(database pinger) *HealthHandler {
	return &HealthHandler{database: database}
}

// Health godoc
// @Summary Состояние сервиса
// @Tags Health
// @Produce json
// @Success 200 {object} requestresponse.HealthResponse
// @Failure 503 {object} requestresponse.HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.database.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("[HealthHandler] БД недоступна")
		writeJSON(w, http.StatusServiceUnavailable, requestresponse.HealthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, requestresponse.HealthResponse{Status: "ok"})
}
