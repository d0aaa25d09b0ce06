package api_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/router"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

var testImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))

type testAPI struct {
	handler http.Handler
	db      *gorm.DB
}

type testOptions struct {
	shoppingListHeader bool
	createLimit        int
}

func setupTestRouter(t *testing.T, opts ...testOptions) *testAPI {
	gin.SetMode(gin.TestMode)
	var o testOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	db := testhelpers.SetupSQLite(t)
	shoppingList, err := service.NewShoppingListService(db, o.shoppingListHeader)
	require.NoError(t, err)

	services := api.Services{
		DB:            db,
		Auth:          testhelpers.TestAuthService(),
		Recipes:       service.NewRecipeService(db, service.NewLocalImageStore(t.TempDir(), "http://localhost/media")),
		Relations:     service.NewRelationService(db),
		ShoppingList:  shoppingList,
		Catalog:       service.NewCatalogService(db),
		Users:         service.NewUserService(db),
		Subscriptions: service.NewSubscriptionService(db),
	}
	if o.createLimit > 0 {
		services.CreationLimiter = middleware.NewRecipeCreationRateLimiter(nil, o.createLimit, time.Hour)
	}
	_, handler := router.SetupRouter(services, nil)
	return &testAPI{handler: handler, db: db}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(a.handler, req)
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
