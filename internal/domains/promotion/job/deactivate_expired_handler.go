package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"restaurant-backoffice/pkg/logger"
)

// Deactivator is the part of the promotion service the job needs
type Deactivator interface {
	DeactivateExpired(ctx context.Context) (int, error)
}

// DeactivateExpiredHandler switches off promotions whose end date passed
type DeactivateExpiredHandler struct {
	service Deactivator
}

func NewDeactivateExpiredHandler(service Deactivator) *DeactivateExpiredHandler {
	return &DeactivateExpiredHandler{service: service}
}

func (h *DeactivateExpiredHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	n, err := h.service.DeactivateExpired(ctx)
	if err != nil {
		logger.Error("Failed to deactivate expired promotions", err)
		return fmt.Errorf("deactivate expired promotions: %w", err)
	}

	logger.Info("Deactivate expired promotions finished", map[string]interface{}{
		"task":        t.Type(),
		"deactivated": n,
	})
	return nil
}
