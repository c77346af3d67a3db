package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/formbricks/embedding-gateway/internal/api/response"
)

var (
	errMissingAuthHeader = errors.New("missing Authorization header")
	errInvalidAuthFormat = errors.New("invalid Authorization header format. Expected: Bearer <api-key>")
	errEmptyAPIKey       = errors.New("API key is empty")
)

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errMissingAuthHeader
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errInvalidAuthFormat
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errEmptyAPIKey
	}

	return token, nil
}

// Auth guards admin routes with the static API key from configuration.
func Auth(apiKey string) func(http.Handler) http.Handler {
	expected := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				response.RespondUnauthorized(w, err.Error())
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
				response.RespondUnauthorized(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
