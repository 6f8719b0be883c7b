package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant-backoffice/internal/domains/promotion/model"
	"restaurant-backoffice/internal/domains/promotion/service"
	"restaurant-backoffice/internal/shared/response"
)

// AdminHandler serves the back-office promotion API
type AdminHandler struct {
	service service.ServiceInterface
}

// NewAdminHandler creates the handler
func NewAdminHandler(service service.ServiceInterface) *AdminHandler {
	return &AdminHandler{
		service: service,
	}
}

// -------------------------------------------------------------------
// CREATE & UPDATE
// -------------------------------------------------------------------

// CreatePromotion creates a promotion from the back-office form payload
// @Router       /v1/admin/promotions [post]
func (h *AdminHandler) CreatePromotion(c *gin.Context) {
	var req model.PromotionPayload

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	promo, err := h.service.CreatePromotion(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Create promotion successfully", model.NewPromotionDetail(promo))
}

// UpdatePromotion replaces a promotion. The body carries the version the
// editor loaded; a stale version returns 409.
// @Router       /v1/admin/promotions/:id [put]
func (h *AdminHandler) UpdatePromotion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	promo, err := h.service.UpdatePromotion(c.Request.Context(), id, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Update promotion successfully", model.NewPromotionDetail(promo))
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

// GetPromotion returns one promotion in form payload shape
// @Router       /v1/admin/promotions/:id [get]
func (h *AdminHandler) GetPromotion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	promo, err := h.service.GetPromotion(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Get promotion successfully", model.NewPromotionDetail(promo))
}

// ListPromotions lists promotions with status, channel and search filters
// @Router       /v1/admin/promotions [get]
func (h *AdminHandler) ListPromotions(c *gin.Context) {
	var filter model.ListPromotionsFilter

	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}

	promotions, total, err := h.service.ListPromotions(c.Request.Context(), &filter)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	if promotions == nil {
		promotions = []*model.PromotionListItem{}
	}

	response.SuccessWithMeta(c, http.StatusOK, promotions, response.NewMeta(filter.Page, filter.Limit, total))
}

// -------------------------------------------------------------------
// STATUS & DELETE
// -------------------------------------------------------------------

// UpdatePromotionStatus flips the active/inactive switch
// @Router       /v1/admin/promotions/:id/status [patch]
func (h *AdminHandler) UpdatePromotionStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(c, model.NewValidationError(err))
		return
	}

	status := model.PromotionStatus(req.Status)
	if err := h.service.UpdatePromotionStatus(c.Request.Context(), id, status); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Update promotion status successfully", gin.H{
		"id":     id,
		"status": status,
	})
}

// DeletePromotion deletes a promotion that has never been redeemed
// @Router       /v1/admin/promotions/:id [delete]
func (h *AdminHandler) DeletePromotion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeletePromotion(c.Request.Context(), id); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Delete promotion successfully", gin.H{"id": id})
}

// -------------------------------------------------------------------
// HELPER FUNCTIONS
// -------------------------------------------------------------------

// parseID reads the :id path parameter and writes a 400 when it is not a UUID
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed),
			"invalid promotion id", gin.H{"id": c.Param("id")})
		return uuid.Nil, false
	}
	return id, true
}
