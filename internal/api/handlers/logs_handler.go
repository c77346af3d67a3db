package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/formbricks/embedding-gateway/internal/api/response"
	"github.com/formbricks/embedding-gateway/internal/api/validation"
	"github.com/formbricks/embedding-gateway/internal/huberrors"
	"github.com/formbricks/embedding-gateway/internal/models"
)

// LogsService defines the interface for querying request and error logs.
type LogsService interface {
	ListRequestLogs(ctx context.Context, filters *models.ListRequestLogsFilters) (*models.ListRequestLogsResponse, error)
	ListErrorLogs(ctx context.Context, filters *models.ListErrorLogsFilters) (*models.ListErrorLogsResponse, error)
	GetErrorLog(ctx context.Context, id uuid.UUID) (*models.ErrorLog, error)
	DeleteErrorLogs(ctx context.Context, before time.Time) (*models.DeleteErrorLogsResponse, error)
	RequestStats(ctx context.Context, since *time.Time) (*models.RequestStats, error)
}

// LogsHandler handles the admin log endpoints.
type LogsHandler struct {
	service LogsService
}

// NewLogsHandler creates a new logs handler.
func NewLogsHandler(service LogsService) *LogsHandler {
	return &LogsHandler{service: service}
}

// ListRequests handles GET /v1/logs/requests.
func (h *LogsHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	filters := &models.ListRequestLogsFilters{}

	if err := validation.ValidateAndDecodeQueryParams(r, filters); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	result, err := h.service.ListRequestLogs(r.Context(), filters)
	if err != nil {
		slog.Error("Failed to list request logs", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// ListErrors handles GET /v1/logs/errors.
func (h *LogsHandler) ListErrors(w http.ResponseWriter, r *http.Request) {
	filters := &models.ListErrorLogsFilters{}

	if err := validation.ValidateAndDecodeQueryParams(r, filters); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	result, err := h.service.ListErrorLogs(r.Context(), filters)
	if err != nil {
		slog.Error("Failed to list error logs", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// GetError handles GET /v1/logs/errors/{id}.
func (h *LogsHandler) GetError(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondBadRequest(w, "Invalid UUID format")
		return
	}

	log, err := h.service.GetErrorLog(r.Context(), id)
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			response.RespondNotFound(w, "Error log not found")
			return
		}

		slog.Error("Failed to get error log", "method", r.Method, "path", r.URL.Path, "id", id, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, log)
}

// DeleteErrors handles DELETE /v1/logs/errors?before=.
func (h *LogsHandler) DeleteErrors(w http.ResponseWriter, r *http.Request) {
	filters := &models.DeleteErrorLogsFilters{}

	if err := validation.ValidateAndDecodeQueryParams(r, filters); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	result, err := h.service.DeleteErrorLogs(r.Context(), *filters.Before)
	if err != nil {
		if errors.Is(err, huberrors.ErrValidation) {
			response.RespondBadRequest(w, err.Error())
			return
		}

		slog.Error("Failed to delete error logs", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Stats handles GET /v1/logs/stats.
func (h *LogsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	filters := &models.RequestStatsFilters{}

	if err := validation.ValidateAndDecodeQueryParams(r, filters); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	stats, err := h.service.RequestStats(r.Context(), filters.Since)
	if err != nil {
		slog.Error("Failed to aggregate request logs", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, stats)
}
