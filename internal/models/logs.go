package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestLog is the outcome record written for every embedding call.
type RequestLog struct {
	ID          uuid.UUID `json:"id"`
	ModelName   string    `json:"model_name"`
	APIKey      string    `json:"api_key"`
	IsSuccess   bool      `json:"is_success"`
	StatusCode  *int      `json:"status_code,omitempty"`
	LatencyMS   int64     `json:"latency_ms"`
	RequestTime time.Time `json:"request_time"`
}

// ErrorLog is the diagnostic record written for every failed embedding call.
type ErrorLog struct {
	ID          uuid.UUID    `json:"id"`
	APIKey      string       `json:"api_key"`
	ModelName   string       `json:"model_name"`
	ErrorType   string       `json:"error_type"`
	ErrorLog    string       `json:"error_log"`
	ErrorCode   *int         `json:"error_code,omitempty"`
	RequestMsg  InputPreview `json:"request_msg"`
	RequestTime time.Time    `json:"request_time"`
}

// CreateRequestLogParams holds the fields of a new request log row.
type CreateRequestLogParams struct {
	ModelName   string
	APIKey      string
	IsSuccess   bool
	StatusCode  *int
	LatencyMS   int64
	RequestTime time.Time
}

// CreateErrorLogParams holds the fields of a new error log row.
type CreateErrorLogParams struct {
	APIKey     string
	ModelName  string
	ErrorType  string
	ErrorLog   string
	ErrorCode  *int
	RequestMsg InputPreview
}

// ListRequestLogsFilters represents query filters for listing request logs
type ListRequestLogsFilters struct {
	ModelName *string    `form:"model_name" validate:"omitempty,max=255,no_null_bytes"`
	IsSuccess *bool      `form:"is_success"`
	Since     *time.Time `form:"since"`
	Until     *time.Time `form:"until"`
	Limit     int        `form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset    int        `form:"offset" validate:"omitempty,min=0,max=2147483647"`
}

// ListRequestLogsResponse represents the response for listing request logs
type ListRequestLogsResponse struct {
	Data   []RequestLog `json:"data"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ListErrorLogsFilters represents query filters for listing error logs
type ListErrorLogsFilters struct {
	ModelName *string    `form:"model_name" validate:"omitempty,max=255,no_null_bytes"`
	ErrorCode *int       `form:"error_code" validate:"omitempty,min=100,max=599"`
	Since     *time.Time `form:"since"`
	Until     *time.Time `form:"until"`
	Limit     int        `form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset    int        `form:"offset" validate:"omitempty,min=0,max=2147483647"`
}

// ListErrorLogsResponse represents the response for listing error logs
type ListErrorLogsResponse struct {
	Data   []ErrorLog `json:"data"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// DeleteErrorLogsFilters selects error logs for retention cleanup.
type DeleteErrorLogsFilters struct {
	Before *time.Time `form:"before" validate:"required"`
}

// DeleteErrorLogsResponse reports how many error logs were removed.
type DeleteErrorLogsResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// RequestStatsFilters narrows the stats window.
type RequestStatsFilters struct {
	Since *time.Time `form:"since"`
}

// RequestStats aggregates request logs.
type RequestStats struct {
	TotalRequests int64   `json:"total_requests"`
	SuccessCount  int64   `json:"success_count"`
	FailureCount  int64   `json:"failure_count"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
}
