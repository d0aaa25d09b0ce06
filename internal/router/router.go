package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// SetupRouter configures the application routes. The returned handler
// accepts paths with or without a trailing slash and renders every error as
// JSON.
func SetupRouter(services api.Services, corsOrigins []string) (*gin.Engine, http.Handler) {
	validation.Register()

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.HandleMethodNotAllowed = true

	router.Use(
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.CORS(corsOrigins),
	)

	api.RegisterRoutes(router, services)

	return router, middleware.StripTrailingSlash(middleware.ErrorHandler(router))
}
