package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Services bundles everything the handlers depend on.
type Services struct {
	DB                  *gorm.DB
	Auth                *service.AuthService
	Recipes             *service.RecipeService
	Relations           *service.RelationService
	ShoppingList        *service.ShoppingListService
	Catalog             *service.CatalogService
	Users               *service.UserService
	Subscriptions       *service.SubscriptionService
	CreationLimiter     *middleware.RateLimiter
	ModificationLimiter *middleware.RateLimiter
}

// HealthCheck reports whether the API and its database are reachable.
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.HealthCheck(ctx, db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Foodgram API is running",
		})
	}
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, s Services) {
	router.GET("/health", HealthCheck(s.DB))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	group := router.Group("/api")
	NewCatalogHandler(s.Catalog, s.Auth, s.Users).RegisterRoutes(group)
	NewRecipeHandler(s.Recipes, s.Relations, s.ShoppingList, s.Auth).
		WithRateLimits(s.CreationLimiter, s.ModificationLimiter).
		RegisterRoutes(group)
	NewUserHandler(s.Users, s.Subscriptions, s.Auth).RegisterRoutes(group)
}
