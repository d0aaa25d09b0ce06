package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const shoppingListFilename = "shopping_cart.txt"

type RecipeHandler struct {
	recipeService       *service.RecipeService
	relationService     *service.RelationService
	shoppingListService *service.ShoppingListService
	authService         middleware.TokenValidator
	creationLimiter     *middleware.RateLimiter
	modificationLimiter *middleware.RateLimiter
}

func NewRecipeHandler(
	recipeService *service.RecipeService,
	relationService *service.RelationService,
	shoppingListService *service.ShoppingListService,
	authService middleware.TokenValidator,
) *RecipeHandler {
	return &RecipeHandler{
		recipeService:       recipeService,
		relationService:     relationService,
		shoppingListService: shoppingListService,
		authService:         authService,
	}
}

// WithRateLimits enables the recipe write limiters. Either may be nil.
func (h *RecipeHandler) WithRateLimits(creation, modification *middleware.RateLimiter) *RecipeHandler {
	h.creationLimiter = creation
	h.modificationLimiter = modification
	return h
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.AuthMiddleware(h.authService)
	optional := middleware.OptionalAuthMiddleware(h.authService)

	create := []gin.HandlerFunc{auth}
	if h.creationLimiter != nil {
		create = append(create, h.creationLimiter.RateLimitMiddleware())
	}
	update := []gin.HandlerFunc{auth}
	if h.modificationLimiter != nil {
		update = append(update, h.modificationLimiter.PerRecipeRateLimitMiddleware())
	}

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optional, h.ListRecipes)
		recipes.GET("/download_shopping_cart", auth, h.DownloadShoppingCart)
		recipes.GET("/:id", optional, h.GetRecipe)
		recipes.POST("", append(create, h.CreateRecipe)...)
		recipes.PATCH("/:id", append(update, h.UpdateRecipe)...)
		recipes.PUT("/:id", append(update, h.UpdateRecipe)...)
		recipes.DELETE("/:id", auth, h.DeleteRecipe)
		recipes.POST("/:id/favorite", auth, h.FavoriteRecipe)
		recipes.DELETE("/:id/favorite", auth, h.UnfavoriteRecipe)
		recipes.POST("/:id/shopping_cart", auth, h.AddToShoppingCart)
		recipes.DELETE("/:id/shopping_cart", auth, h.RemoveFromShoppingCart)
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	filter := types.RecipeFilter{
		Tags:             uniqueStrings(c.QueryArray("tags")),
		IsFavorited:      queryFlag(c, "is_favorited"),
		IsInShoppingCart: queryFlag(c, "is_in_shopping_cart"),
		Page:             page,
	}
	if raw := c.Query("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": map[string][]string{"author": {"Enter a valid user id."}}})
			return
		}
		author := uint(id)
		filter.AuthorID = &author
	}

	recipes, total, err := h.recipeService.ListRecipes(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, recipes, total, page)
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	recipe, err := h.recipeService.CreateRecipe(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req types.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	recipe, err := h.recipeService.UpdateRecipe(c.Request.Context(), middleware.UserID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.recipeService.DeleteRecipe(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) FavoriteRecipe(c *gin.Context) {
	h.addRelation(c, h.relationService.AddFavorite)
}

func (h *RecipeHandler) UnfavoriteRecipe(c *gin.Context) {
	h.removeRelation(c, h.relationService.RemoveFavorite)
}

func (h *RecipeHandler) AddToShoppingCart(c *gin.Context) {
	h.addRelation(c, h.relationService.AddToCart)
}

func (h *RecipeHandler) RemoveFromShoppingCart(c *gin.Context) {
	h.removeRelation(c, h.relationService.RemoveFromCart)
}

func (h *RecipeHandler) addRelation(c *gin.Context, add func(ctx context.Context, userID, recipeID uint) (*types.ShortRecipeResponse, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	short, err := add(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, short)
}

func (h *RecipeHandler) removeRelation(c *gin.Context, remove func(ctx context.Context, userID, recipeID uint) error) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := remove(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadShoppingCart sends the aggregated shopping list as a text file.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	body, lines, err := h.shoppingListService.Export(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordShoppingListExport(lines)

	c.Header("Content-Disposition", `attachment; filename="`+shoppingListFilename+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
