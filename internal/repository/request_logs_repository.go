package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formbricks/embedding-gateway/internal/models"
)

// RequestLogsRepository handles data access for request_logs
type RequestLogsRepository struct {
	db *pgxpool.Pool
}

// NewRequestLogsRepository creates a new request logs repository
func NewRequestLogsRepository(db *pgxpool.Pool) *RequestLogsRepository {
	return &RequestLogsRepository{db: db}
}

// AddRequestLog inserts the outcome record of one embedding call
func (r *RequestLogsRepository) AddRequestLog(ctx context.Context, params *models.CreateRequestLogParams) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate request log id: %w", err)
	}

	query := `
		INSERT INTO request_logs (
			id, model_name, api_key, is_success, status_code, latency_ms, request_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.Exec(ctx, query,
		id, params.ModelName, params.APIKey, params.IsSuccess,
		params.StatusCode, params.LatencyMS, params.RequestTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert request log: %w", err)
	}

	return nil
}

// buildRequestLogFilterConditions builds WHERE clause conditions and arguments from filters
func buildRequestLogFilterConditions(filters *models.ListRequestLogsFilters) (string, []any) {
	var conditions []string
	var args []any
	argCount := 1

	if filters.ModelName != nil {
		conditions = append(conditions, fmt.Sprintf("model_name = $%d", argCount))
		args = append(args, *filters.ModelName)
		argCount++
	}

	if filters.IsSuccess != nil {
		conditions = append(conditions, fmt.Sprintf("is_success = $%d", argCount))
		args = append(args, *filters.IsSuccess)
		argCount++
	}

	if filters.Since != nil {
		conditions = append(conditions, fmt.Sprintf("request_time >= $%d", argCount))
		args = append(args, *filters.Since)
		argCount++
	}

	if filters.Until != nil {
		conditions = append(conditions, fmt.Sprintf("request_time <= $%d", argCount))
		args = append(args, *filters.Until)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	return whereClause, args
}

// List retrieves request logs with optional filters, newest first
func (r *RequestLogsRepository) List(ctx context.Context, filters *models.ListRequestLogsFilters) ([]models.RequestLog, error) {
	query := `
		SELECT id, model_name, api_key, is_success, status_code, latency_ms, request_time
		FROM request_logs
	`

	whereClause, args := buildRequestLogFilterConditions(filters)
	query += whereClause
	query += " ORDER BY request_time DESC, id DESC"
	query, args = appendPagination(query, args, filters.Limit, filters.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list request logs: %w", err)
	}
	defer rows.Close()

	logs := []models.RequestLog{}
	for rows.Next() {
		var log models.RequestLog
		err := rows.Scan(
			&log.ID, &log.ModelName, &log.APIKey, &log.IsSuccess,
			&log.StatusCode, &log.LatencyMS, &log.RequestTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating request logs: %w", err)
	}

	return logs, nil
}

// Stats aggregates request logs recorded at or after since (all rows when since is nil)
func (r *RequestLogsRepository) Stats(ctx context.Context, since *time.Time) (*models.RequestStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_success),
			COUNT(*) FILTER (WHERE NOT is_success),
			COALESCE(AVG(latency_ms), 0)::float8
		FROM request_logs
	`

	var args []any
	if since != nil {
		query += " WHERE request_time >= $1"
		args = append(args, *since)
	}

	var stats models.RequestStats
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&stats.TotalRequests, &stats.SuccessCount, &stats.FailureCount, &stats.AvgLatencyMS,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate request logs: %w", err)
	}

	return &stats, nil
}

// appendPagination adds LIMIT/OFFSET placeholders after the existing args
func appendPagination(query string, args []any, limit, offset int) (string, []any) {
	argCount := len(args) + 1

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, limit)
		argCount++
	}

	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, offset)
	}

	return query, args
}
