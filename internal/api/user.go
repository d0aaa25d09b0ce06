package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

type UserHandler struct {
	userService         *service.UserService
	subscriptionService *service.SubscriptionService
	authService         middleware.TokenValidator
}

func NewUserHandler(userService *service.UserService, subscriptionService *service.SubscriptionService, authService middleware.TokenValidator) *UserHandler {
	return &UserHandler{
		userService:         userService,
		subscriptionService: subscriptionService,
		authService:         authService,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.AuthMiddleware(h.authService)
	optional := middleware.OptionalAuthMiddleware(h.authService)

	users := router.Group("/users")
	{
		users.GET("", optional, h.ListUsers)
		users.GET("/me", auth, h.GetMe)
		users.GET("/subscriptions", auth, h.ListSubscriptions)
		users.GET("/:id", optional, h.GetUser)
		users.POST("/:id/subscribe", auth, h.Subscribe)
		users.DELETE("/:id/subscribe", auth, h.Unsubscribe)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	users, total, err := h.userService.ListUsers(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, users, total, page)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.GetUser(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetMe(c *gin.Context) {
	userID := middleware.UserID(c)
	user, err := h.userService.GetUser(c.Request.Context(), userID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ListSubscriptions(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	subs, total, err := h.subscriptionService.ListSubscriptions(c.Request.Context(), middleware.UserID(c), page, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, subs, total, page)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := h.subscriptionService.Subscribe(c.Request.Context(), middleware.UserID(c), id, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.subscriptionService.Unsubscribe(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
