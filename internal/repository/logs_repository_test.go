package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/formbricks/embedding-gateway/internal/models"
)

func TestBuildRequestLogFilterConditions(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		where, args := buildRequestLogFilterConditions(&models.ListRequestLogsFilters{})

		assert.Empty(t, where)
		assert.Empty(t, args)
	})

	t.Run("all filters numbered in order", func(t *testing.T) {
		model := "text-embedding-3-small"
		success := false
		since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		until := since.Add(24 * time.Hour)

		where, args := buildRequestLogFilterConditions(&models.ListRequestLogsFilters{
			ModelName: &model, IsSuccess: &success, Since: &since, Until: &until,
		})

		assert.Equal(t,
			" WHERE model_name = $1 AND is_success = $2 AND request_time >= $3 AND request_time <= $4",
			where)
		assert.Equal(t, []any{model, success, since, until}, args)
	})
}

func TestBuildErrorLogFilterConditions(t *testing.T) {
	code := 429
	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	where, args := buildErrorLogFilterConditions(&models.ListErrorLogsFilters{
		ErrorCode: &code, Since: &since,
	})

	assert.Equal(t, " WHERE error_code = $1 AND request_time >= $2", where)
	assert.Equal(t, []any{code, since}, args)
}

func TestAppendPagination(t *testing.T) {
	tests := []struct {
		name      string
		args      []any
		limit     int
		offset    int
		wantQuery string
		wantArgs  []any
	}{
		{"none", nil, 0, 0, "SELECT 1", nil},
		{"limit only", nil, 10, 0, "SELECT 1 LIMIT $1", []any{10}},
		{"limit and offset after filters", []any{"m"}, 10, 20, "SELECT 1 LIMIT $2 OFFSET $3", []any{"m", 10, 20}},
		{"offset only", nil, 0, 5, "SELECT 1 OFFSET $1", []any{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := appendPagination("SELECT 1", tt.args, tt.limit, tt.offset)

			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
