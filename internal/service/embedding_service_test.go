package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/embedding-gateway/internal/huberrors"
	"github.com/formbricks/embedding-gateway/internal/models"
)

type mockEmbeddingAPI struct {
	mock.Mock
}

func (m *mockEmbeddingAPI) CreateEmbedding(
	ctx context.Context,
	apiKey string,
	model string,
	input models.EmbeddingInput,
) (*openaisdk.CreateEmbeddingResponse, error) {
	args := m.Called(ctx, apiKey, model, input)
	resp, _ := args.Get(0).(*openaisdk.CreateEmbeddingResponse)

	return resp, args.Error(1)
}

// recordingSinks implements both log writers and keeps the order of writes.
type recordingSinks struct {
	mu          sync.Mutex
	order       []string
	requestLogs []*models.CreateRequestLogParams
	errorLogs   []*models.CreateErrorLogParams
	ctxErrs     []error
	requestErr  error
	errorErr    error
}

func (r *recordingSinks) AddRequestLog(ctx context.Context, params *models.CreateRequestLogParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = append(r.order, "request")
	r.requestLogs = append(r.requestLogs, params)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())

	return r.requestErr
}

func (r *recordingSinks) AddErrorLog(ctx context.Context, params *models.CreateErrorLogParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = append(r.order, "error")
	r.errorLogs = append(r.errorLogs, params)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())

	return r.errorErr
}

type embeddingCall struct {
	outcome    string
	statusCode int
	duration   time.Duration
}

type fakeMetrics struct {
	embeddingCalls []embeddingCall
	logWriteErrors []string
}

func (f *fakeMetrics) RecordRequest(context.Context, string, string, string, time.Duration) {}

func (f *fakeMetrics) RecordRequestBodyTooLarge(context.Context) {}

func (f *fakeMetrics) RecordEmbeddingRequest(_ context.Context, outcome string, statusCode int, duration time.Duration) {
	f.embeddingCalls = append(f.embeddingCalls, embeddingCall{outcome: outcome, statusCode: statusCode, duration: duration})
}

func (f *fakeMetrics) RecordLogWriteError(_ context.Context, sink string) {
	f.logWriteErrors = append(f.logWriteErrors, sink)
}

func twoVectorResponse() *openaisdk.CreateEmbeddingResponse {
	return &openaisdk.CreateEmbeddingResponse{
		Data: []openaisdk.Embedding{
			{Index: 0, Embedding: []float64{0.1, 0.2}},
			{Index: 1, Embedding: []float64{0.3, 0.4}},
		},
		Model: "text-embed-1",
	}
}

func newTestEmbeddingService(api *mockEmbeddingAPI, sinks *recordingSinks, metrics *fakeMetrics) *EmbeddingService {
	if metrics == nil {
		return NewEmbeddingService(api, sinks, sinks, nil)
	}

	return NewEmbeddingService(api, sinks, sinks, metrics)
}

func TestEmbeddingService_CreateEmbedding_success(t *testing.T) {
	api := &mockEmbeddingAPI{}
	sinks := &recordingSinks{}
	metrics := &fakeMetrics{}
	svc := newTestEmbeddingService(api, sinks, metrics)

	input := models.NewTextsInput([]string{"a", "b"})
	want := twoVectorResponse()
	api.On("CreateEmbedding", mock.Anything, "k1", "text-embed-1", input).Return(want, nil).Once()

	before := time.Now()
	got, err := svc.CreateEmbedding(context.Background(), input, "text-embed-1", "k1")

	require.NoError(t, err)
	assert.Same(t, want, got, "provider result is returned unmodified")
	api.AssertExpectations(t)

	assert.Empty(t, sinks.errorLogs)
	require.Len(t, sinks.requestLogs, 1)

	entry := sinks.requestLogs[0]
	assert.Equal(t, "text-embed-1", entry.ModelName)
	assert.Equal(t, "k1", entry.APIKey)
	assert.True(t, entry.IsSuccess)
	require.NotNil(t, entry.StatusCode)
	assert.Equal(t, 200, *entry.StatusCode)
	assert.GreaterOrEqual(t, entry.LatencyMS, int64(0))
	assert.False(t, entry.RequestTime.Before(before.Truncate(time.Second)))

	require.Len(t, metrics.embeddingCalls, 1)
	assert.Equal(t, "success", metrics.embeddingCalls[0].outcome)
	assert.Equal(t, 200, metrics.embeddingCalls[0].statusCode)
}

func TestEmbeddingService_CreateEmbedding_providerError(t *testing.T) {
	api := &mockEmbeddingAPI{}
	sinks := &recordingSinks{}
	metrics := &fakeMetrics{}
	svc := newTestEmbeddingService(api, sinks, metrics)

	input := models.NewTextInput("hello")
	providerErr := huberrors.NewProviderError(429, "rate limited", errors.New("POST /embeddings: 429 Too Many Requests"))
	api.On("CreateEmbedding", mock.Anything, "k1", "text-embed-1", input).Return(nil, providerErr).Once()

	got, err := svc.CreateEmbedding(context.Background(), input, "text-embed-1", "k1")

	require.Error(t, err)
	assert.Nil(t, got)
	assert.Same(t, providerErr, err, "the provider error is returned unchanged")

	var perr *huberrors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 429, perr.StatusCode)
	assert.Equal(t, "rate limited", perr.Message)

	assert.Equal(t, []string{"error", "request"}, sinks.order, "error log is written before request log")

	require.Len(t, sinks.errorLogs, 1)
	errEntry := sinks.errorLogs[0]
	assert.Equal(t, "k1", errEntry.APIKey)
	assert.Equal(t, "text-embed-1", errEntry.ModelName)
	assert.Equal(t, "openai-embedding", errEntry.ErrorType)
	assert.Contains(t, errEntry.ErrorLog, "rate limited")
	assert.Contains(t, errEntry.ErrorLog, "OpenAI API error: ")
	require.NotNil(t, errEntry.ErrorCode)
	assert.Equal(t, 429, *errEntry.ErrorCode)
	assert.Equal(t, "hello", errEntry.RequestMsg.InputTruncated.Text())

	require.Len(t, sinks.requestLogs, 1)
	reqEntry := sinks.requestLogs[0]
	assert.False(t, reqEntry.IsSuccess)
	require.NotNil(t, reqEntry.StatusCode)
	assert.Equal(t, 429, *reqEntry.StatusCode)

	require.Len(t, metrics.embeddingCalls, 1)
	assert.Equal(t, "provider_error", metrics.embeddingCalls[0].outcome)
}

func TestEmbeddingService_CreateEmbedding_unstructuredError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "status code recovered from error text",
			err:        errors.New("upstream proxy failed with status code 503 after handshake"),
			wantStatus: 503,
		},
		{
			name:       "defaults to 500 when text has no status code",
			err:        errors.New("dial tcp 10.0.0.1:443: connect: connection refused"),
			wantStatus: 500,
		},
		{
			name:       "status code inside parentheses",
			err:        errors.New("decode response: unexpected end of JSON input (status code 502)"),
			wantStatus: 502,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockEmbeddingAPI{}
			sinks := &recordingSinks{}
			metrics := &fakeMetrics{}
			svc := newTestEmbeddingService(api, sinks, metrics)

			input := models.NewTextInput("hello")
			api.On("CreateEmbedding", mock.Anything, "k1", "text-embed-1", input).Return(nil, tt.err).Once()

			_, err := svc.CreateEmbedding(context.Background(), input, "text-embed-1", "k1")

			assert.Same(t, tt.err, err, "the original error is returned unchanged")
			assert.False(t, errors.Is(err, huberrors.ErrProvider))

			require.Len(t, sinks.errorLogs, 1)
			require.NotNil(t, sinks.errorLogs[0].ErrorCode)
			assert.Equal(t, tt.wantStatus, *sinks.errorLogs[0].ErrorCode)
			assert.Equal(t, "Generic error: "+tt.err.Error(), sinks.errorLogs[0].ErrorLog)

			require.Len(t, sinks.requestLogs, 1)
			assert.False(t, sinks.requestLogs[0].IsSuccess)
			assert.Equal(t, tt.wantStatus, *sinks.requestLogs[0].StatusCode)

			require.Len(t, metrics.embeddingCalls, 1)
			assert.Equal(t, "unstructured_error", metrics.embeddingCalls[0].outcome)
		})
	}
}

func TestEmbeddingService_CreateEmbedding_panicStillLogs(t *testing.T) {
	api := &mockEmbeddingAPI{}
	sinks := &recordingSinks{}
	svc := newTestEmbeddingService(api, sinks, nil)

	input := models.NewTextInput("hello")
	api.On("CreateEmbedding", mock.Anything, "k1", "text-embed-1", input).Panic("boom").Once()

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = svc.CreateEmbedding(context.Background(), input, "text-embed-1", "k1")
	})

	assert.Equal(t, []string{"error", "request"}, sinks.order)
	require.Len(t, sinks.errorLogs, 1)
	assert.Equal(t, 500, *sinks.errorLogs[0].ErrorCode)
	assert.Contains(t, sinks.errorLogs[0].ErrorLog, "panic: boom")
	assert.False(t, sinks.requestLogs[0].IsSuccess)
}

func TestEmbeddingService_CreateEmbedding_canceledContextStillLogs(t *testing.T) {
	api := &mockEmbeddingAPI{}
	sinks := &recordingSinks{}
	svc := newTestEmbeddingService(api, sinks, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := models.NewTextInput("hello")
	api.On("CreateEmbedding", mock.Anything, "k1", "text-embed-1", input).Return(nil, context.Canceled).Once()

	_, err := svc.CreateEmbedding(ctx, input, "text-embed-1", "k1")

	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, sinks.ctxErrs, 2)

	for _, ctxErr := range sinks.ctxErrs {
		assert.NoError(t, ctxErr, "log writes must not inherit the caller's cancellation")
	}
}

func TestEmbeddingService_CreateEmbedding_sinkFailureKeepsResult(t *testing.T) {
	api := &mockEmbeddingAPI{}
	sinks := &recordingSinks{
		errorErr:   errors.New("error_logs insert failed"),
		requestErr: errors.New("request_logs insert failed"),
	}
	metrics := &fakeMetrics{}
	svc := newTestEmbeddingService(api, sinks, metrics)

	input := models.NewTextInput("hello")
	providerErr := huberrors.NewProviderError(401, "invalid api key", nil)
	api.On("CreateEmbedding", mock.Anything, "bad", "text-embed-1", input).Return(nil, providerErr).Once()

	_, err := svc.CreateEmbedding(context.Background(), input, "text-embed-1", "bad")

	assert.Same(t, providerErr, err)
	assert.Equal(t, []string{"error", "request"}, sinks.order, "request log is attempted after a failed error log")
	assert.Equal(t, []string{"error_log", "request_log"}, metrics.logWriteErrors)
}

func TestEmbeddingService_CreateEmbedding_successWithFailedRequestLog(t *testing.T) {
	api := &mockEmbeddingAPI{}
	sinks := &recordingSinks{requestErr: errors.New("db down")}
	svc := newTestEmbeddingService(api, sinks, nil)

	input := models.NewTextInput("hello")
	want := twoVectorResponse()
	api.On("CreateEmbedding", mock.Anything, "k1", "text-embed-1", input).Return(want, nil).Once()

	got, err := svc.CreateEmbedding(context.Background(), input, "text-embed-1", "k1")

	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestFailureStatusCode(t *testing.T) {
	assert.Equal(t, 429, FailureStatusCode(huberrors.NewProviderError(429, "slow down", nil)))
	assert.Equal(t, 503, FailureStatusCode(errors.New("got status code 503")))
	assert.Equal(t, 500, FailureStatusCode(errors.New("EOF")))
}
