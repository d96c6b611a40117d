package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kitchenshare/kitchenshare/internal/app"
	iauth "github.com/kitchenshare/kitchenshare/internal/auth"
	"github.com/kitchenshare/kitchenshare/internal/handlers"
	"github.com/kitchenshare/kitchenshare/internal/middleware"
	"github.com/kitchenshare/kitchenshare/internal/services"
	"github.com/kitchenshare/kitchenshare/internal/storage"
)

// Services bundles the domain services the router depends on.
type Services struct {
	Users       *services.UserService
	Kitchens    *services.KitchenService
	Invitations *services.InvitationService
	Recipes     *services.RecipeService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(svcs Services, jwt *iauth.JWTService, store storage.Store, cfg *app.Config) (*gin.Engine, error) {
	if svcs.Users == nil || svcs.Kitchens == nil || svcs.Invitations == nil || svcs.Recipes == nil {
		return nil, fmt.Errorf("all services must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	r.NoRoute(middleware.NotFoundHandler)

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// Stored recipe images
	if local, ok := store.(*storage.LocalStore); ok {
		r.Static("/uploads", local.Root())
	}

	authHandler := handlers.NewAuthHandler(svcs.Users, jwt)
	kitchenHandler := handlers.NewKitchenHandler(svcs.Kitchens)
	invitationHandler := handlers.NewInvitationHandler(svcs.Invitations)
	recipeHandler := handlers.NewRecipeHandler(svcs.Recipes)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Public invitation routes. Accept runs behind OptionalAuth so an
	// anonymous attempt gets a resumable AUTHENTICATION_REQUIRED response.
	invites := r.Group("/api/invitations")
	{
		invites.GET("/:token", invitationHandler.Lookup)
		invites.POST("/:token/accept", middleware.OptionalAuth(jwt), invitationHandler.Accept)
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	api.GET("/auth/me", authHandler.Me)

	kitchens := api.Group("/kitchens")
	{
		kitchens.GET("", kitchenHandler.List)
		kitchens.POST("", kitchenHandler.Create)
		kitchens.GET("/:id", kitchenHandler.Get)
		kitchens.PUT("/:id", kitchenHandler.Update)
		kitchens.DELETE("/:id", kitchenHandler.Delete)
		kitchens.DELETE("/:id/members/:userId", kitchenHandler.RemoveMember)

		kitchens.GET("/:id/invitations", invitationHandler.ListPending)
		kitchens.POST("/:id/invitations", invitationHandler.Create)
		kitchens.DELETE("/:id/invitations/:invitationId", invitationHandler.Revoke)

		kitchens.GET("/:id/recipes", recipeHandler.List)
		kitchens.POST("/:id/recipes", recipeHandler.Create)
		kitchens.GET("/:id/recipes/:recipeId", recipeHandler.Get)
		kitchens.PUT("/:id/recipes/:recipeId", recipeHandler.Update)
		kitchens.DELETE("/:id/recipes/:recipeId", recipeHandler.Delete)
	}

	return r, nil
}
