package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// CatalogHandler serves tags and ingredients. Reads are public, writes need
// an admin.
type CatalogHandler struct {
	catalog     *service.CatalogService
	authService middleware.TokenValidator
	admins      middleware.AdminChecker
}

func NewCatalogHandler(catalog *service.CatalogService, authService middleware.TokenValidator, admins middleware.AdminChecker) *CatalogHandler {
	return &CatalogHandler{
		catalog:     catalog,
		authService: authService,
		admins:      admins,
	}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := []gin.HandlerFunc{middleware.AuthMiddleware(h.authService), middleware.RequireAdmin(h.admins)}

	tags := router.Group("/tags")
	{
		tags.GET("", h.ListTags)
		tags.GET("/:id", h.GetTag)
		tags.POST("", append(admin, h.CreateTag)...)
		tags.PATCH("/:id", append(admin, h.UpdateTag)...)
		tags.PUT("/:id", append(admin, h.UpdateTag)...)
		tags.DELETE("/:id", append(admin, h.DeleteTag)...)
	}

	ingredients := router.Group("/ingredients")
	{
		ingredients.GET("", h.ListIngredients)
		ingredients.GET("/:id", h.GetIngredient)
		ingredients.POST("", append(admin, h.CreateIngredient)...)
		ingredients.PATCH("/:id", append(admin, h.UpdateIngredient)...)
		ingredients.PUT("/:id", append(admin, h.UpdateIngredient)...)
		ingredients.DELETE("/:id", append(admin, h.DeleteIngredient)...)
	}
}

func (h *CatalogHandler) ListTags(c *gin.Context) {
	tags, err := h.catalog.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *CatalogHandler) GetTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tag, err := h.catalog.GetTag(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (h *CatalogHandler) CreateTag(c *gin.Context) {
	var req types.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	tag, err := h.catalog.CreateTag(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (h *CatalogHandler) UpdateTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req types.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	tag, err := h.catalog.UpdateTag(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (h *CatalogHandler) DeleteTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteTag(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) ListIngredients(c *gin.Context) {
	ingredients, err := h.catalog.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

func (h *CatalogHandler) GetIngredient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ingredient, err := h.catalog.GetIngredient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

func (h *CatalogHandler) CreateIngredient(c *gin.Context) {
	var req types.IngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ingredient, err := h.catalog.CreateIngredient(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ingredient)
}

func (h *CatalogHandler) UpdateIngredient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req types.IngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ingredient, err := h.catalog.UpdateIngredient(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

func (h *CatalogHandler) DeleteIngredient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteIngredient(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
