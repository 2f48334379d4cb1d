package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/nora/internal/agent"
)

// healthHandler serves the liveness page hosting platforms poll and a JSON
// status view.
func healthHandler(status func() agent.Status) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		st := status()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "Nora is alive. connected=%t spawned=%t mode=%s\n", st.Connected, st.Spawned, st.Mode)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status())
	})
	return mux
}

// serveHealth listens on addr until ctx is done.
func serveHealth(ctx context.Context, addr string, status func() agent.Status, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           healthHandler(status),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := shutdownContext()
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("health endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
