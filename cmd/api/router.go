package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"restaurant-backoffice/internal/shared/auth"
	"restaurant-backoffice/internal/shared/middleware"
	"restaurant-backoffice/internal/shared/response"
	"restaurant-backoffice/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	router.NoRoute(func(ctx *gin.Context) {
		response.NotFound(ctx, "route not found")
	})

	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", healthCheckHandler(c))

		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(c.JWTManager))

		setupPromotionRoutes(authed, c)
		c.OrderHandler.RegisterRoutes(authed)
	}

	return router
}

// ========================================
// PROMOTION ROUTES
// ========================================
func setupPromotionRoutes(v1 *gin.RouterGroup, c *container.Container) {
	perm := func(action string) gin.HandlerFunc {
		return middleware.RequirePermission(auth.ModulePromotion, action)
	}

	// Checkout-side evaluation, used by order staff and the POS
	promotion := v1.Group("/promotions")
	{
		promotion.POST("/evaluate", perm(auth.ActionView), c.PublicProHandler.Evaluate)
		promotion.POST("/redemptions", perm(auth.ActionEdit), c.PublicProHandler.RecordRedemption)
	}

	admin := v1.Group("/admin/promotions")
	{
		admin.POST("", perm(auth.ActionCreate), c.AdminProHandler.CreatePromotion)
		admin.GET("", perm(auth.ActionView), c.AdminProHandler.ListPromotions)
		admin.GET("/:id", perm(auth.ActionView), c.AdminProHandler.GetPromotion)
		admin.PUT("/:id", perm(auth.ActionEdit), c.AdminProHandler.UpdatePromotion)
		admin.PATCH("/:id/status", perm(auth.ActionEdit), c.AdminProHandler.UpdatePromotionStatus)
		admin.DELETE("/:id", perm(auth.ActionDelete), c.AdminProHandler.DeletePromotion)
	}
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
			"services":  gin.H{},
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		// Check database
		dbStatus := "ok"
		var poolStats interface{}
		if appCtx.DB == nil || appCtx.DB.Pool == nil {
			dbStatus = "disconnected"
			health["status"] = "degraded"
		} else if err := appCtx.DB.HealthCheck(ctx); err != nil {
			dbStatus = fmt.Sprintf("error: %v", err)
			health["status"] = "degraded"
		} else if stats, err := appCtx.DB.Stats(); err == nil {
			poolStats = stats
		}

		// Check redis
		redisStatus := "ok"
		if appCtx.Cache == nil {
			redisStatus = "disconnected"
		} else if err := appCtx.Cache.Ping(ctx); err != nil {
			redisStatus = fmt.Sprintf("error: %v", err)
		}

		health["services"] = gin.H{
			"database": dbStatus,
			"pool":     poolStats,
			"redis":    redisStatus,
		}

		statusCode := http.StatusOK
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, health)
	}
}
