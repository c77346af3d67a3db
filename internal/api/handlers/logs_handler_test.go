package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/embedding-gateway/internal/huberrors"
	"github.com/formbricks/embedding-gateway/internal/models"
)

type mockLogsService struct {
	gotRequestFilters *models.ListRequestLogsFilters
	gotErrorFilters   *models.ListErrorLogsFilters
	gotBefore         time.Time
	gotSince          *time.Time
	errorLog          *models.ErrorLog
	err               error
}

func (m *mockLogsService) ListRequestLogs(_ context.Context, filters *models.ListRequestLogsFilters) (*models.ListRequestLogsResponse, error) {
	m.gotRequestFilters = filters
	if m.err != nil {
		return nil, m.err
	}

	return &models.ListRequestLogsResponse{Data: []models.RequestLog{}, Limit: filters.Limit}, nil
}

func (m *mockLogsService) ListErrorLogs(_ context.Context, filters *models.ListErrorLogsFilters) (*models.ListErrorLogsResponse, error) {
	m.gotErrorFilters = filters

	return &models.ListErrorLogsResponse{Data: []models.ErrorLog{}, Limit: filters.Limit}, m.err
}

func (m *mockLogsService) GetErrorLog(_ context.Context, id uuid.UUID) (*models.ErrorLog, error) {
	if m.errorLog == nil || m.errorLog.ID != id {
		return nil, huberrors.NewNotFoundError("error log", "error log not found")
	}

	return m.errorLog, nil
}

func (m *mockLogsService) DeleteErrorLogs(_ context.Context, before time.Time) (*models.DeleteErrorLogsResponse, error) {
	m.gotBefore = before

	return &models.DeleteErrorLogsResponse{DeletedCount: 3}, nil
}

func (m *mockLogsService) RequestStats(_ context.Context, since *time.Time) (*models.RequestStats, error) {
	m.gotSince = since

	return &models.RequestStats{TotalRequests: 10, SuccessCount: 9, FailureCount: 1, AvgLatencyMS: 12.5}, nil
}

func TestLogsHandler_ListRequests(t *testing.T) {
	t.Run("decodes filters", func(t *testing.T) {
		svc := &mockLogsService{}
		rec := httptest.NewRecorder()

		NewLogsHandler(svc).ListRequests(rec,
			httptest.NewRequest(http.MethodGet, "http://test/v1/logs/requests?is_success=false&limit=20", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, svc.gotRequestFilters.IsSuccess)
		assert.False(t, *svc.gotRequestFilters.IsSuccess)
		assert.Equal(t, 20, svc.gotRequestFilters.Limit)
	})

	t.Run("zero limit is left to the service default", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewLogsHandler(&mockLogsService{}).ListRequests(rec,
			httptest.NewRequest(http.MethodGet, "http://test/v1/logs/requests?limit=0", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("service failure returns 500", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewLogsHandler(&mockLogsService{err: errors.New("db down")}).ListRequests(rec,
			httptest.NewRequest(http.MethodGet, "http://test/v1/logs/requests", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestLogsHandler_ListErrors(t *testing.T) {
	t.Run("rejects out of range error code", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewLogsHandler(&mockLogsService{}).ListErrors(rec,
			httptest.NewRequest(http.MethodGet, "http://test/v1/logs/errors?error_code=42", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("passes error code", func(t *testing.T) {
		svc := &mockLogsService{}
		rec := httptest.NewRecorder()

		NewLogsHandler(svc).ListErrors(rec,
			httptest.NewRequest(http.MethodGet, "http://test/v1/logs/errors?error_code=429", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, svc.gotErrorFilters.ErrorCode)
		assert.Equal(t, 429, *svc.gotErrorFilters.ErrorCode)
	})
}

func TestLogsHandler_GetError(t *testing.T) {
	id := uuid.Must(uuid.NewV7())
	svc := &mockLogsService{errorLog: &models.ErrorLog{ID: id, ErrorType: "openai-embedding"}}
	handler := NewLogsHandler(svc)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/logs/errors/"+id.String(), nil)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()

		handler.GetError(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var got models.ErrorLog
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, id, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		other := uuid.Must(uuid.NewV7())
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/logs/errors/"+other.String(), nil)
		req.SetPathValue("id", other.String())
		rec := httptest.NewRecorder()

		handler.GetError(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/logs/errors/nope", nil)
		req.SetPathValue("id", "nope")
		rec := httptest.NewRecorder()

		handler.GetError(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogsHandler_DeleteErrors(t *testing.T) {
	t.Run("requires before", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewLogsHandler(&mockLogsService{}).DeleteErrors(rec,
			httptest.NewRequest(http.MethodDelete, "http://test/v1/logs/errors", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("deletes before cutoff", func(t *testing.T) {
		svc := &mockLogsService{}
		rec := httptest.NewRecorder()

		NewLogsHandler(svc).DeleteErrors(rec,
			httptest.NewRequest(http.MethodDelete, "http://test/v1/logs/errors?before=2026-03-01T00:00:00Z", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"deleted_count":3}`, rec.Body.String())
		assert.True(t, svc.gotBefore.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	})
}

func TestLogsHandler_Stats(t *testing.T) {
	svc := &mockLogsService{}
	rec := httptest.NewRecorder()

	NewLogsHandler(svc).Stats(rec,
		httptest.NewRequest(http.MethodGet, "http://test/v1/logs/stats?since=2026-03-01T00:00:00Z", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.gotSince)
	assert.JSONEq(t,
		`{"total_requests":10,"success_count":9,"failure_count":1,"avg_latency_ms":12.5}`,
		rec.Body.String())
}
