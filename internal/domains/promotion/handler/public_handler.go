package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-backoffice/internal/domains/promotion/model"
	"restaurant-backoffice/internal/domains/promotion/service"
	"restaurant-backoffice/internal/shared/response"
)

// PublicHandler serves the checkout-facing promotion API
type PublicHandler struct {
	service service.ServiceInterface
}

// NewPublicHandler creates the handler
func NewPublicHandler(promotionService service.ServiceInterface) *PublicHandler {
	return &PublicHandler{
		service: promotionService,
	}
}

// Evaluate checks a promotion against a cart and returns the discount
//
// A promotion that does not apply is still a 200: the result carries
// applicable=false and the reason.
// @Router       /v1/promotions/evaluate [post]
func (h *PublicHandler) Evaluate(c *gin.Context) {
	var req model.EvaluateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Evaluate(c.Request.Context(), &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Evaluate promotion successfully", result)
}

// RecordRedemption stores a redemption once checkout has placed the order
// @Router       /v1/promotions/redemptions [post]
func (h *PublicHandler) RecordRedemption(c *gin.Context) {
	var req model.RecordRedemptionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	redemption, err := h.service.RecordRedemption(c.Request.Context(), &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Record redemption successfully", redemption)
}
