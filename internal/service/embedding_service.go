package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/formbricks/embedding-gateway/internal/huberrors"
	"github.com/formbricks/embedding-gateway/internal/models"
	"github.com/formbricks/embedding-gateway/internal/observability"
)

// EmbeddingAPI is the remote embedding provider. Implemented by internal/openai.Client.
type EmbeddingAPI interface {
	CreateEmbedding(
		ctx context.Context,
		apiKey string,
		model string,
		input models.EmbeddingInput,
	) (*openaisdk.CreateEmbeddingResponse, error)
}

// RequestLogWriter persists one outcome record per embedding call.
type RequestLogWriter interface {
	AddRequestLog(ctx context.Context, params *models.CreateRequestLogParams) error
}

// ErrorLogWriter persists one diagnostic record per failed embedding call.
type ErrorLogWriter interface {
	AddErrorLog(ctx context.Context, params *models.CreateErrorLogParams) error
}

// EmbeddingService forwards embedding requests to the provider and records the outcome of every call.
type EmbeddingService struct {
	api         EmbeddingAPI
	requestLogs RequestLogWriter
	errorLogs   ErrorLogWriter
	metrics     observability.GatewayMetrics
	tracer      trace.Tracer
}

// NewEmbeddingService creates an EmbeddingService. metrics may be nil when metrics are disabled.
func NewEmbeddingService(
	api EmbeddingAPI,
	requestLogs RequestLogWriter,
	errorLogs ErrorLogWriter,
	metrics observability.GatewayMetrics,
) *EmbeddingService {
	return &EmbeddingService{
		api:         api,
		requestLogs: requestLogs,
		errorLogs:   errorLogs,
		metrics:     metrics,
		tracer:      otel.Tracer(observability.TracerName),
	}
}

// callOutcome is what the finalizer knows about a call when it writes the logs.
type callOutcome struct {
	success    bool
	statusCode *int
	message    string
	kind       string
	err        error
}

// CreateEmbedding sends input to the provider using model, authenticated with apiKey, and returns the
// provider's response unmodified. Errors from the provider are returned unchanged.
//
// On every exit path, including a panic in the provider client, an error log is written first when the
// call failed, then a request log is always written. Both writes complete before CreateEmbedding returns.
func (s *EmbeddingService) CreateEmbedding(
	ctx context.Context,
	input models.EmbeddingInput,
	model string,
	apiKey string,
) (*openaisdk.CreateEmbeddingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "embedding.create", trace.WithAttributes(
		attribute.String("embedding.model", model),
		attribute.Bool("embedding.input_is_list", input.IsList()),
	))
	defer span.End()

	requestTime := time.Now()
	preview := BuildInputPreview(input)

	var outcome callOutcome

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome = classifyFailure(fmt.Errorf("panic: %v", r))
			s.recordOutcome(ctx, span, model, apiKey, preview, outcome, start, requestTime)
			panic(r)
		}

		s.recordOutcome(ctx, span, model, apiKey, preview, outcome, start, requestTime)
	}()

	resp, err := s.api.CreateEmbedding(ctx, apiKey, model, input)
	if err != nil {
		outcome = classifyFailure(err)

		slog.ErrorContext(ctx, "embedding: create failed",
			"kind", outcome.kind,
			"model", model,
			"api_key", observability.RedactAPIKey(apiKey),
			"status_code", *outcome.statusCode,
			"error", outcome.message,
		)

		return nil, err
	}

	status := successStatus
	outcome = callOutcome{success: true, statusCode: &status, kind: observability.OutcomeSuccess}

	return resp, nil
}

// recordOutcome writes the error log (failures only) and then the request log.
// Sink failures are logged and counted; they never replace the call's own result.
func (s *EmbeddingService) recordOutcome(
	ctx context.Context,
	span trace.Span,
	model string,
	apiKey string,
	preview models.InputPreview,
	outcome callOutcome,
	start time.Time,
	requestTime time.Time,
) {
	elapsed := time.Since(start)
	latencyMS := max(elapsed.Milliseconds(), 0)

	// The caller may have gone away; the outcome record must still land.
	logCtx := context.WithoutCancel(ctx)

	if !outcome.success {
		err := s.errorLogs.AddErrorLog(logCtx, &models.CreateErrorLogParams{
			APIKey:     apiKey,
			ModelName:  model,
			ErrorType:  embeddingErrorSource,
			ErrorLog:   outcome.message,
			ErrorCode:  outcome.statusCode,
			RequestMsg: preview,
		})
		if err != nil {
			s.logWriteFailed(ctx, observability.SinkErrorLog, model, err)
		}
	}

	err := s.requestLogs.AddRequestLog(logCtx, &models.CreateRequestLogParams{
		ModelName:   model,
		APIKey:      apiKey,
		IsSuccess:   outcome.success,
		StatusCode:  outcome.statusCode,
		LatencyMS:   latencyMS,
		RequestTime: requestTime,
	})
	if err != nil {
		s.logWriteFailed(ctx, observability.SinkRequestLog, model, err)
	}

	statusCode := 0
	if outcome.statusCode != nil {
		statusCode = *outcome.statusCode
	}

	span.SetAttributes(
		attribute.Int("embedding.status_code", statusCode),
		attribute.Int64("embedding.latency_ms", latencyMS),
	)

	if outcome.success {
		slog.DebugContext(ctx, "embedding: created",
			"model", model,
			"api_key", observability.RedactAPIKey(apiKey),
			"latency_ms", latencyMS,
		)
	} else {
		span.SetStatus(codes.Error, outcome.kind)

		if outcome.err != nil {
			span.RecordError(outcome.err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordEmbeddingRequest(ctx, outcome.kind, statusCode, elapsed)
	}
}

func (s *EmbeddingService) logWriteFailed(ctx context.Context, sink, model string, err error) {
	slog.ErrorContext(ctx, "embedding: write outcome log failed",
		"sink", sink,
		"model", model,
		"error", err,
	)

	if s.metrics != nil {
		s.metrics.RecordLogWriteError(ctx, sink)
	}
}

// classifyFailure captures status code and message from a failed call.
// Structured provider errors keep their status; anything else has it recovered from the error text.
func classifyFailure(err error) callOutcome {
	var perr *huberrors.ProviderError
	if errors.As(err, &perr) {
		status := perr.StatusCode

		return callOutcome{
			statusCode: &status,
			message:    "OpenAI API error: " + err.Error(),
			kind:       observability.OutcomeProviderError,
			err:        err,
		}
	}

	status := parseStatusCode(err.Error())

	return callOutcome{
		statusCode: &status,
		message:    "Generic error: " + err.Error(),
		kind:       observability.OutcomeUnstructuredError,
		err:        err,
	}
}

// FailureStatusCode returns the status code recorded for err: the provider's own status for
// structured provider errors, otherwise the one recovered from the error text (default 500).
func FailureStatusCode(err error) int {
	return *classifyFailure(err).statusCode
}
