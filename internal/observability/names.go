// Package observability provides OpenTelemetry metrics and tracing plus slog wiring for the gateway.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameHTTPRequestCount         = "http.server.request_count"
	MetricNameHTTPDuration             = "http.server.duration"
	MetricNameEmbeddingRequests        = "embedding_requests_total"
	MetricNameEmbeddingRequestDuration = "embedding_request_duration_seconds"
	MetricNameLogWriteErrors           = "log_write_errors_total"
	MetricNameRequestBodyTooLarge      = "http_request_body_too_large_total"
)

// Attribute keys.
const (
	AttrMethod      = "method"
	AttrRoute       = "route"
	AttrStatusClass = "status_class"
	AttrOutcome     = "outcome"
	AttrSink        = "sink"
)

// Embedding outcomes recorded on embedding_requests_total.
const (
	OutcomeSuccess           = "success"
	OutcomeProviderError     = "provider_error"
	OutcomeUnstructuredError = "unstructured_error"
)

// Log sinks recorded on log_write_errors_total.
const (
	SinkRequestLog = "request_log"
	SinkErrorLog   = "error_log"
)

// AllowedOutcomes for embedding_requests_total and embedding_request_duration_seconds.
var AllowedOutcomes = map[string]bool{
	OutcomeSuccess:           true,
	OutcomeProviderError:     true,
	OutcomeUnstructuredError: true,
}

// AllowedSinks for log_write_errors_total.
var AllowedSinks = map[string]bool{
	SinkRequestLog: true,
	SinkErrorLog:   true,
}

// NormalizeReason returns value if in allowed, otherwise "other".
func NormalizeReason(value string, allowed map[string]bool) string {
	if allowed[value] {
		return value
	}

	return "other"
}

// StatusClass maps an HTTP status code to 1xx..5xx.
func StatusClass(status int) string {
	switch {
	case status >= 600:
		return "unknown"
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status >= 100:
		return "1xx"
	default:
		return "unknown"
	}
}
