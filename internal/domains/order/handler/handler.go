package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/domains/order/service"
	"restaurant-backoffice/internal/shared/auth"
	"restaurant-backoffice/internal/shared/middleware"
	"restaurant-backoffice/internal/shared/response"
)

// =====================================================
// ORDER HANDLER
// =====================================================
type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// =====================================================
// ROUTES REGISTRATION
// =====================================================

// RegisterRoutes registers the back-office order routes. router must
// already run AuthMiddleware.
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	canView := middleware.RequirePermission(auth.ModuleOrder, auth.ActionView)
	canEdit := middleware.RequirePermission(auth.ModuleOrder, auth.ActionEdit)

	orders := router.Group("/order")
	{
		orders.GET("/:id", canView, h.GetOrder)
		orders.GET("/:id/next-statuses", canView, h.GetNextStatuses)
		orders.GET("/:id/history", canView, h.GetStatusHistory)
		orders.PUT("/update-status/:id", canEdit, h.UpdateOrderStatus)
		orders.PUT("/update-schedule/:id", canEdit, h.UpdateOrderSchedule)
	}
}

// =====================================================
// READ
// =====================================================

// GetOrder godoc
// @Summary Get order with line items
// @Router /v1/order/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Get order successfully", order)
}

// GetNextStatuses godoc
// @Summary Statuses the order may move to next
// @Router /v1/order/{id}/next-statuses [get]
func (h *OrderHandler) GetNextStatuses(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	next, err := h.orderService.AllowedNextStatuses(c.Request.Context(), orderID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Get next statuses successfully", next)
}

// GetStatusHistory godoc
// @Summary Status audit trail of an order
// @Router /v1/order/{id}/history [get]
func (h *OrderHandler) GetStatusHistory(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	history, err := h.orderService.GetOrderStatusHistory(c.Request.Context(), orderID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Get order history successfully", history)
}

// =====================================================
// UPDATE
// =====================================================

// UpdateOrderStatus godoc
// @Summary Move an order to its next status
// @Param request body model.UpdateOrderStatusRequest true "New status"
// @Failure 409 {object} response.Response "transition not allowed or stale version"
// @Router /v1/order/update-status/{id} [put]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req model.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	var changedBy *uuid.UUID
	if p := middleware.GetPrincipal(c); p != nil {
		changedBy = &p.UserID
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), orderID, changedBy, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Order status updated successfully", order)
}

// UpdateOrderSchedule godoc
// @Summary Reschedule pickup or delivery
// @Param request body model.UpdateScheduleRequest true "Selected date and time"
// @Failure 422 {object} response.Response "less than 60 minutes after the order was placed"
// @Router /v1/order/update-schedule/{id} [put]
func (h *OrderHandler) UpdateOrderSchedule(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req model.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	order, err := h.orderService.UpdateOrderSchedule(c.Request.Context(), orderID, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Order schedule updated successfully", order)
}

// =====================================================
// HELPERS
// =====================================================

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, model.ErrCodeInvalidRequest,
			"invalid order id", gin.H{"id": c.Param("id")})
		return uuid.Nil, false
	}
	return orderID, true
}
