// Package openai provides a thin wrapper around the official OpenAI Go SDK for embeddings.
package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/formbricks/embedding-gateway/internal/huberrors"
	"github.com/formbricks/embedding-gateway/internal/models"
)

const defaultTimeout = 60 * time.Second

// Client calls an OpenAI-compatible embeddings API via the official SDK.
// The credential is supplied per call; the client itself holds no API key.
type Client struct {
	sdk        openaisdk.Client
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for provider calls.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout for a single provider call.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates an embeddings client directed at baseURL.
// SDK retries are disabled: every call results in exactly one HTTP request.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	client.sdk = openaisdk.NewClient(
		option.WithBaseURL(client.baseURL),
		option.WithHTTPClient(client.httpClient),
		option.WithMaxRetries(0),
	)

	return client
}

// BaseURL returns the endpoint the client is directed at.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateEmbedding sends input to the embeddings endpoint with the given model, authenticated with apiKey.
// The provider response is returned unmodified. Failures the provider reports with a status code are
// returned as *huberrors.ProviderError wrapping the SDK error; anything else is returned as-is.
func (c *Client) CreateEmbedding(
	ctx context.Context,
	apiKey string,
	model string,
	input models.EmbeddingInput,
) (*openaisdk.CreateEmbeddingResponse, error) {
	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: inputUnion(input),
		Model: openaisdk.EmbeddingModel(model),
	}, option.WithAPIKey(apiKey))
	if err != nil {
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			return nil, huberrors.NewProviderError(apiErr.StatusCode, providerMessage(apiErr), err)
		}

		return nil, err
	}

	return resp, nil
}

func inputUnion(input models.EmbeddingInput) openaisdk.EmbeddingNewParamsInputUnion {
	if input.IsList() {
		return openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: input.Texts()}
	}

	return openaisdk.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(input.Text())}
}

// providerMessage prefers the message from the provider's error body, falling back to the HTTP status text.
func providerMessage(apiErr *openaisdk.Error) string {
	if apiErr.Message != "" {
		return apiErr.Message
	}

	return http.StatusText(apiErr.StatusCode)
}
