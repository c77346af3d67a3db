package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/formbricks/embedding-gateway/internal/huberrors"
	"github.com/formbricks/embedding-gateway/internal/models"
	"github.com/formbricks/embedding-gateway/internal/observability"
)

const defaultLogsLimit = 100

// RequestLogsReader reads request logs.
type RequestLogsReader interface {
	List(ctx context.Context, filters *models.ListRequestLogsFilters) ([]models.RequestLog, error)
	Stats(ctx context.Context, since *time.Time) (*models.RequestStats, error)
}

// ErrorLogsStore reads and prunes error logs.
type ErrorLogsStore interface {
	List(ctx context.Context, filters *models.ListErrorLogsFilters) ([]models.ErrorLog, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ErrorLog, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// LogsService exposes the request and error logs written by EmbeddingService.
// Credentials are redacted in everything it returns.
type LogsService struct {
	requestLogs RequestLogsReader
	errorLogs   ErrorLogsStore
}

// NewLogsService creates a new logs service
func NewLogsService(requestLogs RequestLogsReader, errorLogs ErrorLogsStore) *LogsService {
	return &LogsService{requestLogs: requestLogs, errorLogs: errorLogs}
}

// ListRequestLogs lists request logs, newest first.
func (s *LogsService) ListRequestLogs(ctx context.Context, filters *models.ListRequestLogsFilters) (*models.ListRequestLogsResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultLogsLimit
	}

	logs, err := s.requestLogs.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	for i := range logs {
		logs[i].APIKey = observability.RedactAPIKey(logs[i].APIKey)
	}

	return &models.ListRequestLogsResponse{
		Data:   logs,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

// ListErrorLogs lists error logs, newest first.
func (s *LogsService) ListErrorLogs(ctx context.Context, filters *models.ListErrorLogsFilters) (*models.ListErrorLogsResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultLogsLimit
	}

	logs, err := s.errorLogs.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	for i := range logs {
		logs[i].APIKey = observability.RedactAPIKey(logs[i].APIKey)
	}

	return &models.ListErrorLogsResponse{
		Data:   logs,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

// GetErrorLog returns a single error log.
func (s *LogsService) GetErrorLog(ctx context.Context, id uuid.UUID) (*models.ErrorLog, error) {
	log, err := s.errorLogs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	log.APIKey = observability.RedactAPIKey(log.APIKey)

	return log, nil
}

// DeleteErrorLogs removes error logs recorded before the given time.
func (s *LogsService) DeleteErrorLogs(ctx context.Context, before time.Time) (*models.DeleteErrorLogsResponse, error) {
	if before.IsZero() {
		return nil, huberrors.NewValidationError("before", "before is required")
	}

	deleted, err := s.errorLogs.DeleteBefore(ctx, before)
	if err != nil {
		return nil, err
	}

	return &models.DeleteErrorLogsResponse{DeletedCount: deleted}, nil
}

// RequestStats aggregates request logs since the given time (all time when nil).
func (s *LogsService) RequestStats(ctx context.Context, since *time.Time) (*models.RequestStats, error) {
	return s.requestLogs.Stats(ctx, since)
}
