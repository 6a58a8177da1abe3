package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/pkg/testutil"
)

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("no dependencies", func(t *testing.T) {
		rr := testutil.Do(healthHandler(nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{}}`, rr.Body.String())
	})

	t.Run("all up", func(t *testing.T) {
		rr := testutil.Do(healthHandler(map[string]func(context.Context) error{"postgres": ok, "redis": ok}),
			httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"up","redis":"up"}}`, rr.Body.String())
	})

	t.Run("one down", func(t *testing.T) {
		rr := testutil.Do(healthHandler(map[string]func(context.Context) error{"postgres": ok, "redis": down}),
			httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"up","redis":"down"}}`, rr.Body.String())
	})
}
