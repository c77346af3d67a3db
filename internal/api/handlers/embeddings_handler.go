package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	openaisdk "github.com/openai/openai-go/v3"

	"github.com/formbricks/embedding-gateway/internal/api/middleware"
	"github.com/formbricks/embedding-gateway/internal/api/response"
	"github.com/formbricks/embedding-gateway/internal/api/validation"
	"github.com/formbricks/embedding-gateway/internal/huberrors"
	"github.com/formbricks/embedding-gateway/internal/models"
	"github.com/formbricks/embedding-gateway/internal/service"
)

// EmbeddingsService defines the interface for the logged embedding call.
type EmbeddingsService interface {
	CreateEmbedding(ctx context.Context, input models.EmbeddingInput, model, apiKey string) (*openaisdk.CreateEmbeddingResponse, error)
}

// EmbeddingsHandler serves the OpenAI-compatible embeddings endpoint.
type EmbeddingsHandler struct {
	service EmbeddingsService
}

// NewEmbeddingsHandler creates a new embeddings handler.
func NewEmbeddingsHandler(service EmbeddingsService) *EmbeddingsHandler {
	return &EmbeddingsHandler{service: service}
}

// Create handles POST /v1/embeddings.
// The caller's bearer token is the provider credential and is forwarded as is.
func (h *EmbeddingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	apiKey, err := middleware.BearerToken(r)
	if err != nil {
		response.RespondOpenAIError(w, http.StatusUnauthorized, response.OpenAIErrorType(http.StatusUnauthorized), err.Error())
		return
	}

	var req models.CreateEmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid request body", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondOpenAIError(w, http.StatusBadRequest, response.OpenAIErrorType(http.StatusBadRequest),
			"Invalid request body: "+err.Error())

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		response.RespondOpenAIError(w, http.StatusBadRequest, response.OpenAIErrorType(http.StatusBadRequest), err.Error())
		return
	}

	resp, err := h.service.CreateEmbedding(r.Context(), req.Input, req.Model, apiKey)
	if err != nil {
		h.respondFailure(w, err)
		return
	}

	if raw := resp.RawJSON(); raw != "" {
		response.RespondRawJSON(w, http.StatusOK, []byte(raw))
		return
	}

	response.RespondJSON(w, http.StatusOK, resp)
}

func (h *EmbeddingsHandler) respondFailure(w http.ResponseWriter, err error) {
	status := service.FailureStatusCode(err)
	if status < http.StatusBadRequest || status > 599 {
		status = http.StatusInternalServerError
	}

	message := "An unexpected error occurred"

	var perr *huberrors.ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		message = perr.Message
	}

	response.RespondOpenAIError(w, status, response.OpenAIErrorType(status), message)
}
