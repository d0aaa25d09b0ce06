package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

type recipeEnv struct {
	*testAPI
	author      *models.User
	authorToken string
	other       *models.User
	otherToken  string
	tag         *models.Tag
	flour       *models.Ingredient
	milk        *models.Ingredient
}

func setupRecipeEnv(t *testing.T, opts ...testOptions) *recipeEnv {
	a := setupTestRouter(t, opts...)
	env := &recipeEnv{testAPI: a}
	env.author, env.authorToken = testhelpers.CreateTestUserAndToken(t, a.db, "author")
	env.other, env.otherToken = testhelpers.CreateTestUserAndToken(t, a.db, "other")
	env.tag = testhelpers.CreateTestTag(t, a.db, "breakfast", "#E26C2D")
	env.flour = testhelpers.CreateTestIngredient(t, a.db, "flour", "g")
	env.milk = testhelpers.CreateTestIngredient(t, a.db, "milk", "ml")
	return env
}

func (e *recipeEnv) body() map[string]any {
	return map[string]any{
		"name":         "Pancakes",
		"text":         "Whisk and fry.",
		"image":        testImage,
		"cooking_time": 20,
		"tags":         []uint{e.tag.ID},
		"ingredients": []map[string]any{
			{"id": e.flour.ID, "amount": 100},
			{"id": e.milk.ID, "amount": 200},
			{"id": e.flour.ID, "amount": 50},
		},
	}
}

func (e *recipeEnv) createRecipe(t *testing.T) types.RecipeResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/recipes/", e.authorToken, e.body())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[types.RecipeResponse](t, w)
}

func TestCreateRecipe(t *testing.T) {
	env := setupRecipeEnv(t)

	recipe := env.createRecipe(t)
	assert.Equal(t, "Pancakes", recipe.Name)
	assert.Equal(t, "author", recipe.Author.Username)
	assert.False(t, recipe.IsFavorited)
	require.Len(t, recipe.Ingredients, 2)
	assert.Equal(t, 150, recipe.Ingredients[0].Amount)
	assert.Equal(t, "g", recipe.Ingredients[0].MeasurementUnit)
}

func TestCreateRecipeRequiresAuth(t *testing.T) {
	env := setupRecipeEnv(t)

	w := env.do(t, http.MethodPost, "/api/recipes/", "", env.body())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/recipes/", "garbage", env.body())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRecipeValidation(t *testing.T) {
	env := setupRecipeEnv(t)

	tests := []struct {
		name  string
		edit  func(map[string]any)
		field string
	}{
		{"cooking time zero", func(b map[string]any) { b["cooking_time"] = 0 }, "cooking_time"},
		{"no tags", func(b map[string]any) { b["tags"] = []uint{} }, "tags"},
		{"no ingredients", func(b map[string]any) { b["ingredients"] = []map[string]any{} }, "ingredients"},
		{"zero amount", func(b map[string]any) {
			b["ingredients"] = []map[string]any{{"id": env.flour.ID, "amount": 0}}
		}, "ingredients"},
		{"amount over cap", func(b map[string]any) {
			b["ingredients"] = []map[string]any{{"id": env.flour.ID, "amount": 40000}}
		}, "ingredients"},
		{"merged amount over cap", func(b map[string]any) {
			b["ingredients"] = []map[string]any{{"id": env.flour.ID, "amount": 30000}, {"id": env.flour.ID, "amount": 30000}}
		}, "ingredients"},
		{"unknown ingredient", func(b map[string]any) {
			b["ingredients"] = []map[string]any{{"id": 999, "amount": 1}}
		}, "ingredients"},
		{"unknown tag", func(b map[string]any) { b["tags"] = []uint{999} }, "tags"},
		{"missing image", func(b map[string]any) { delete(b, "image") }, "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := env.body()
			tt.edit(body)
			w := env.do(t, http.MethodPost, "/api/recipes", env.authorToken, body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			resp := decode[map[string]map[string][]string](t, w)
			assert.Contains(t, resp["errors"], tt.field)
		})
	}
}

func TestCookingTimeBoundary(t *testing.T) {
	env := setupRecipeEnv(t)
	body := env.body()
	body["cooking_time"] = 1

	w := env.do(t, http.MethodPost, "/api/recipes", env.authorToken, body)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestGetRecipe(t *testing.T) {
	env := setupRecipeEnv(t)
	created := env.createRecipe(t)

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/recipes/%d/", created.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[types.RecipeResponse](t, w).ID)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/recipes/999", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/recipes/abc", "", nil).Code)
}

func TestUpdateRecipe(t *testing.T) {
	env := setupRecipeEnv(t)
	created := env.createRecipe(t)
	path := fmt.Sprintf("/api/recipes/%d/", created.ID)

	body := env.body()
	body["name"] = "Crepes"
	body["image"] = created.Image
	body["ingredients"] = []map[string]any{{"id": env.milk.ID, "amount": 1}}

	w := env.do(t, http.MethodPatch, path, env.otherToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, path, env.authorToken, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[types.RecipeResponse](t, w)
	assert.Equal(t, "Crepes", updated.Name)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "milk", updated.Ingredients[0].Name)
}

func TestDeleteRecipe(t *testing.T) {
	env := setupRecipeEnv(t)
	created := env.createRecipe(t)
	path := fmt.Sprintf("/api/recipes/%d", created.ID)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, path, env.otherToken, nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, path, env.authorToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, "", nil).Code)
}

func TestListRecipesFiltersAndPagination(t *testing.T) {
	env := setupRecipeEnv(t)
	lunch := testhelpers.CreateTestTag(t, env.db, "lunch", "#00FF00")
	for i := 0; i < 3; i++ {
		testhelpers.CreateTestRecipe(t, env.db, env.author.ID, fmt.Sprintf("Breakfast %d", i), []*models.Tag{env.tag}, map[uint]int{env.flour.ID: 1})
	}
	soup := testhelpers.CreateTestRecipe(t, env.db, env.other.ID, "Soup", []*models.Tag{lunch, env.tag}, map[uint]int{env.milk.ID: 1})

	w := env.do(t, http.MethodGet, "/api/recipes?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[types.PageResponse[types.RecipeResponse]](t, w)
	assert.Equal(t, int64(4), page.Count)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")
	assert.Nil(t, page.Previous)

	w = env.do(t, http.MethodGet, "/api/recipes?tags=lunch&tags=breakfast", "", nil)
	page = decode[types.PageResponse[types.RecipeResponse]](t, w)
	assert.Equal(t, int64(4), page.Count)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/recipes?author=%d", env.other.ID), "", nil)
	page = decode[types.PageResponse[types.RecipeResponse]](t, w)
	require.Len(t, page.Results, 1)
	assert.Equal(t, soup.ID, page.Results[0].ID)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/recipes?author=x", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/recipes?page=3&limit=2", "", nil).Code)
	w = env.do(t, http.MethodGet, "/api/recipes?tags=missing", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[types.PageResponse[types.RecipeResponse]](t, w).Results)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%d/favorite", soup.ID), env.authorToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/recipes?is_favorited=1", env.authorToken, nil)
	page = decode[types.PageResponse[types.RecipeResponse]](t, w)
	require.Len(t, page.Results, 1)
	assert.True(t, page.Results[0].IsFavorited)

	w = env.do(t, http.MethodGet, "/api/recipes?is_favorited=1", "", nil)
	page = decode[types.PageResponse[types.RecipeResponse]](t, w)
	assert.Empty(t, page.Results)
}

func TestFavoriteAndCartToggles(t *testing.T) {
	env := setupRecipeEnv(t)
	created := env.createRecipe(t)

	for _, action := range []string{"favorite", "shopping_cart"} {
		t.Run(action, func(t *testing.T) {
			path := fmt.Sprintf("/api/recipes/%d/%s/", created.ID, action)

			w := env.do(t, http.MethodPost, path, env.otherToken, nil)
			require.Equal(t, http.StatusCreated, w.Code)
			short := decode[types.ShortRecipeResponse](t, w)
			assert.Equal(t, types.ShortRecipeResponse{ID: created.ID, Name: created.Name, Image: created.Image, CookingTime: created.CookingTime}, short)

			assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, path, env.otherToken, nil).Code)
			assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, path, env.otherToken, nil).Code)
			assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, path, env.otherToken, nil).Code)
			assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, path, "", nil).Code)
		})
	}

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/recipes/999/favorite", env.otherToken, nil).Code)
}

func TestDownloadShoppingCart(t *testing.T) {
	env := setupRecipeEnv(t)
	first := env.createRecipe(t)
	second := env.createRecipe(t)

	w := env.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/", env.otherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	for _, id := range []uint{first.ID, second.ID} {
		require.Equal(t, http.StatusCreated,
			env.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart", id), env.otherToken, nil).Code)
	}

	w = env.do(t, http.MethodGet, "/api/recipes/download_shopping_cart", env.otherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="shopping_cart.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "flour\t300\tg\nmilk\t400\tml", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized,
		env.do(t, http.MethodGet, "/api/recipes/download_shopping_cart", "", nil).Code)
}

func TestDownloadShoppingCartWithHeader(t *testing.T) {
	env := setupRecipeEnv(t, testOptions{shoppingListHeader: true})
	created := env.createRecipe(t)
	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart", created.ID), env.authorToken, nil).Code)

	w := env.do(t, http.MethodGet, "/api/recipes/download_shopping_cart", env.authorToken, nil)
	assert.Equal(t, "Ingredient\tAmount\tMeasurement Unit\nflour\t150\tg\nmilk\t200\tml", w.Body.String())
}

func TestCreateRecipeRateLimited(t *testing.T) {
	env := setupRecipeEnv(t, testOptions{createLimit: 1})

	env.createRecipe(t)
	w := env.do(t, http.MethodPost, "/api/recipes", env.authorToken, env.body())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}
