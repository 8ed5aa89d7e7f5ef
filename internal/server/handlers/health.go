package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Pinger проверка доступности хранилища (реализуется sqlite.Storage)
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler отвечает мониторингу: жив ли процесс и достает ли он до БД
type HealthHandler struct {
	logger  *slog.Logger
	db      Pinger
	version string
}

// NewHealthHandler создает handler health check-а
func NewHealthHandler(logger *slog.Logger, db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		db:      db,
		version: version,
	}
}

// HealthResponse тело ответа health check
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
}

// Health обрабатывает GET /api/v1/health.
// Недоступное хранилище деградирует ответ до 503: процесс жив,
// но принимать доску не готов.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Service: "boardsync",
		Version: h.version,
	}
	status := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "storage unreachable", slog.Any("error", err))
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
