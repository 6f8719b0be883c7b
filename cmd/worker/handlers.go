package main

import (
	"github.com/hibiken/asynq"

	orderJob "restaurant-backoffice/internal/domains/order/job"
	promotionJob "restaurant-backoffice/internal/domains/promotion/job"
	"restaurant-backoffice/internal/infrastructure/push"
	"restaurant-backoffice/internal/shared"
	"restaurant-backoffice/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	// Order
	statusChanged *orderJob.StatusChangedHandler

	// Promotion maintenance
	deactivateExpired *promotionJob.DeactivateExpiredHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	pushSvc := push.NewLogPushService()

	return &HandlerRegistry{
		statusChanged:     orderJob.NewStatusChangedHandler(pushSvc),
		deactivateExpired: promotionJob.NewDeactivateExpiredHandler(c.PromotionService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeOrderStatusChanged, h.statusChanged.ProcessTask)
	mux.HandleFunc(shared.TypePromotionDeactivateExpired, h.deactivateExpired.ProcessTask)
}
