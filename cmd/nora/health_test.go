package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/nora/internal/agent"
	"github.com/ChamsBouzaiene/nora/internal/mode"
)

func TestHealthHandler(t *testing.T) {
	st := agent.Status{Connected: true, Spawned: true, Mode: mode.Guardian, Memory: 3, Plugins: []string{"Economy"}}
	srv := httptest.NewServer(healthHandler(func() agent.Status { return st }))
	defer srv.Close()

	t.Run("root", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	})

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got agent.Status
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, st, got)
	})

	t.Run("unknown path", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
