package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	t.Run("check always ok", func(t *testing.T) {
		rec := httptest.NewRecorder()

		NewHealthHandler(nil).Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("ready when database answers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		db := pingerFunc(func(context.Context) error { return nil })

		NewHealthHandler(db).Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
	})

	t.Run("not ready when database is down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		db := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

		NewHealthHandler(db).Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
