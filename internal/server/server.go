// Package server wires the HTTP router, its middleware and the http.Server.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"nutriai/internal/api"
	"nutriai/internal/auth"
)

// Options configures New.
type Options struct {
	Port           int
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter builds the gin engine with every route of the service.
func NewRouter(opts Options, handler *api.Handler, gateway *auth.Gateway) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(opts.Logger), gin.Recovery())

	// Configure CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", handler.Health)

	authGroup := r.Group("/auth")
	authGroup.GET("/session", gateway.RequireUser(), gateway.Session)
	authGroup.POST("/logout", gateway.Logout)
	authGroup.GET("/:provider", gateway.BeginAuth)
	authGroup.GET("/:provider/callback", gateway.Callback)

	api.RegisterRoutes(r.Group("/api", gateway.RequireUser()), handler)
	return r
}

// New returns the http.Server serving the router on opts.Port. Write timeouts
// are left to the request context since recommendations wait on several
// model calls.
func New(opts Options, handler *api.Handler, gateway *auth.Gateway) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           NewRouter(opts, handler, gateway),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
	}
}
