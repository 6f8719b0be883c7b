package main

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"restaurant-backoffice/internal/shared"
	"restaurant-backoffice/pkg/container"
	"restaurant-backoffice/pkg/logger"
)

// asynqServer wraps asynq.Server with additional functionality
type asynqServer struct {
	*asynq.Server
}

// setupAsynqServer creates and configures the Asynq server
func setupAsynqServer(c *container.Container, handlers *HandlerRegistry) *asynqServer {
	// Create ServeMux
	mux := asynq.NewServeMux()

	// Register all handlers
	handlers.RegisterHandlers(mux)

	srv := asynq.NewServer(
		c.RedisConnOpt(),
		asynq.Config{
			Queues:          shared.QueuePriorities,
			Concurrency:     c.Config.Queue.Concurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.ErrorWith("[Asynq] Task failed", err, map[string]interface{}{
					"type":      task.Type(),
					"retried":   retried,
					"max_retry": maxRetry,
				})
			}),
		},
	)

	// Start does not block; signals are handled in main
	logger.Info("[Worker] Starting", map[string]interface{}{"queues": shared.QueuePriorities})
	if err := srv.Start(mux); err != nil {
		log.Fatal().Err(err).Msg("[Worker] Failed")
	}

	return &asynqServer{Server: srv}
}

// Shutdown stops fetching new tasks and waits up to ShutdownTimeout for
// the active ones.
func (s *asynqServer) Shutdown() {
	logger.Info("[Worker] Shutting down", nil)
	s.Server.Shutdown()
	logger.Info("[Worker] Gracefully stopped", nil)
}
