package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formbricks/embedding-gateway/internal/huberrors"
	"github.com/formbricks/embedding-gateway/internal/models"
)

// ErrorLogsRepository handles data access for error_logs
type ErrorLogsRepository struct {
	db *pgxpool.Pool
}

// NewErrorLogsRepository creates a new error logs repository
func NewErrorLogsRepository(db *pgxpool.Pool) *ErrorLogsRepository {
	return &ErrorLogsRepository{db: db}
}

const errorLogColumns = `id, api_key, model_name, error_type, error_log, error_code, request_msg, request_time`

// AddErrorLog inserts the diagnostic record of one failed embedding call.
// request_time is assigned by the database.
func (r *ErrorLogsRepository) AddErrorLog(ctx context.Context, params *models.CreateErrorLogParams) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate error log id: %w", err)
	}

	requestMsg, err := json.Marshal(params.RequestMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal request preview: %w", err)
	}

	query := `
		INSERT INTO error_logs (
			id, api_key, model_name, error_type, error_log, error_code, request_msg
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.Exec(ctx, query,
		id, params.APIKey, params.ModelName, params.ErrorType,
		params.ErrorLog, params.ErrorCode, requestMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to insert error log: %w", err)
	}

	return nil
}

// buildErrorLogFilterConditions builds WHERE clause conditions and arguments from filters
func buildErrorLogFilterConditions(filters *models.ListErrorLogsFilters) (string, []any) {
	var conditions []string
	var args []any
	argCount := 1

	if filters.ModelName != nil {
		conditions = append(conditions, fmt.Sprintf("model_name = $%d", argCount))
		args = append(args, *filters.ModelName)
		argCount++
	}

	if filters.ErrorCode != nil {
		conditions = append(conditions, fmt.Sprintf("error_code = $%d", argCount))
		args = append(args, *filters.ErrorCode)
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

// List retrieves error logs with optional filters, newest first
func (r *ErrorLogsRepository) List(ctx context.Context, filters *models.ListErrorLogsFilters) ([]models.ErrorLog, error) {
	query := "SELECT " + errorLogColumns + " FROM error_logs"

	whereClause, args := buildErrorLogFilterConditions(filters)
	query += whereClause
	query += " ORDER BY request_time DESC, id DESC"
	query, args = appendPagination(query, args, filters.Limit, filters.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list error logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ErrorLog{}
	for rows.Next() {
		log, err := scanErrorLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating error logs: %w", err)
	}

	return logs, nil
}

// GetByID retrieves a single error log
func (r *ErrorLogsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ErrorLog, error) {
	query := "SELECT " + errorLogColumns + " FROM error_logs WHERE id = $1"

	log, err := scanErrorLog(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("error log", "error log not found")
		}

		return nil, err
	}

	return log, nil
}

// DeleteBefore removes error logs recorded strictly before the cutoff
func (r *ErrorLogsRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM error_logs WHERE request_time < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete error logs: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanErrorLog(row pgx.Row) (*models.ErrorLog, error) {
	var log models.ErrorLog
	var requestMsg []byte

	err := row.Scan(
		&log.ID, &log.APIKey, &log.ModelName, &log.ErrorType,
		&log.ErrorLog, &log.ErrorCode, &requestMsg, &log.RequestTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan error log: %w", err)
	}

	if len(requestMsg) > 0 {
		if err := json.Unmarshal(requestMsg, &log.RequestMsg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request preview: %w", err)
		}
	}

	return &log, nil
}
