package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/router"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Options carries the optional collaborators of the server.
type Options struct {
	// Redis backs the rate limiters; nil selects in-process limiting.
	Redis *redis.Client
	// Images stores uploaded recipe images; nil stores them under cfg.MediaDir.
	Images service.ImageStore
}

// Server represents the HTTP server
type Server struct {
	router  *gin.Engine
	handler http.Handler
	http    *http.Server
	cfg     *config.Config
}

// New wires services and routes on top of an open database.
func New(cfg *config.Config, db *gorm.DB, opts Options) (*Server, error) {
	gin.SetMode(config.GetEnvironment().GinMode())

	images := opts.Images
	if images == nil {
		images = service.NewLocalImageStore(cfg.MediaDir, cfg.MediaURL)
	}
	shoppingList, err := service.NewShoppingListService(db, cfg.ShoppingListHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create shopping list service: %w", err)
	}

	services := api.Services{
		DB:            db,
		Auth:          service.NewAuthService(cfg.JWTSecret, cfg.JWTTTL),
		Recipes:       service.NewRecipeService(db, images),
		Relations:     service.NewRelationService(db),
		ShoppingList:  shoppingList,
		Catalog:       service.NewCatalogService(db),
		Users:         service.NewUserService(db),
		Subscriptions: service.NewSubscriptionService(db),
	}
	if cfg.RateLimitCreate > 0 {
		services.CreationLimiter = middleware.NewRecipeCreationRateLimiter(opts.Redis, cfg.RateLimitCreate, cfg.RateLimitWindow)
	}
	if cfg.RateLimitUpdate > 0 {
		services.ModificationLimiter = middleware.NewRecipeModificationRateLimiter(opts.Redis, cfg.RateLimitUpdate, cfg.RateLimitWindow)
	}

	engine, handler := router.SetupRouter(services, cfg.CORSOrigins)
	if opts.Images == nil && cfg.MediaDir != "" {
		engine.Static("/media", cfg.MediaDir)
	}

	return &Server{
		router:  engine,
		handler: handler,
		cfg:     cfg,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.ServerHost, cfg.ServerPort),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown is called. It returns nil after a graceful stop.
func (s *Server) Start() error {
	logging.Info().Str("addr", s.http.Addr).Msg("starting server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
