// cmd/worker/startup.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"restaurant-backoffice/pkg/container"
	"restaurant-backoffice/pkg/logger"
)

// HealthChecker performs startup health checks
type HealthChecker struct {
	c *container.Container
}

// startServices performs health checks and starts the health endpoint
func startServices(c *container.Container) error {
	logger.Info("Back-office worker starting", map[string]interface{}{
		"environment": c.Config.App.Environment,
		"timezone":    c.Location.String(),
	})

	checker := &HealthChecker{c: c}
	if err := checker.checkAll(); err != nil {
		return err
	}

	go startHealthCheckServer(c.Config.Queue.HealthPort, checker)

	return nil
}

// checkAll runs all health checks
func (h *HealthChecker) checkAll() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"Redis Connection", h.checkRedis},
		{"Postgres Connection", h.checkPostgres},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			logger.ErrorWith("health check failed", err, map[string]interface{}{"check": check.name})
			return fmt.Errorf("%s failed: %w", check.name, err)
		}
		logger.Info("health check OK", map[string]interface{}{"check": check.name})
	}

	return nil
}

// checkRedis verifies the Redis connection asynq runs on
func (h *HealthChecker) checkRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return h.c.Redis.HealthCheck(ctx)
}

// checkPostgres verifies the pool the promotion job writes through
func (h *HealthChecker) checkPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return h.c.DB.HealthCheck(ctx)
}

// startHealthCheckServer starts HTTP server for health checks
func startHealthCheckServer(port string, checker *HealthChecker) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthCheckHandler)
	mux.HandleFunc("/ready", readyCheckHandler(checker))

	logger.Info("[Health] Starting health check server", map[string]interface{}{"port": port})
	if err := http.ListenAndServe(":"+port, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("[Health] Failed to start", err)
	}
}

// healthCheckHandler handles /health endpoint
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"UP","service":"backoffice-worker"}`))
}

// readyCheckHandler handles /ready endpoint (Kubernetes readiness probe)
func readyCheckHandler(checker *HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := checker.checkAll(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"NOT_READY"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"READY"}`))
	}
}
