package http

import (
	"log/slog"

	"github.com/geocoder89/inventoryhub/internal/http/handlers"
	"github.com/geocoder89/inventoryhub/internal/http/middlewares"
	"github.com/geocoder89/inventoryhub/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Stats is the aggregator the stats routes read and the item routes invalidate.
type Stats interface {
	handlers.StatsProvider
	handlers.StatsInvalidator
}

type Deps struct {
	Log         *slog.Logger
	Env         string
	ServiceName string

	Items  handlers.ItemStore
	Auth   handlers.Authenticator
	Tokens middlewares.TokenVerifier
	Stats  Stats
	Ready  handlers.Pinger

	// optional
	Prom *observability.Prom

	CORSAllowedOrigins []string
	MaxBodyBytes       int64
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()
	// both spellings are registered explicitly
	r.RedirectTrailingSlash = false

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	if d.ServiceName != "" {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSAllowedOrigins))
	if d.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	}

	// health
	h := handlers.NewHealthHandler(d.Ready)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Prom != nil {
		r.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// Wire up handlers
	authHandler := handlers.NewAuthHandler(d.Auth)
	itemsHandler := handlers.NewItemsHandler(d.Items, d.Stats)
	statsHandler := handlers.NewStatsHandler(d.Stats)

	authMw := middlewares.NewAuthMiddleware(d.Tokens)

	api := r.Group("/api")
	api.Use(middlewares.RequireJSON())

	// public
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// protected
	protected := api.Group("")
	protected.Use(authMw.RequireAuth())

	protected.GET("/auth/me", authHandler.Me)

	for _, p := range []string{"/items", "/items/"} {
		protected.GET(p, itemsHandler.ListItems)
		protected.POST(p, itemsHandler.CreateItem)
	}
	protected.GET("/items/:id", itemsHandler.GetItemByID)
	protected.PUT("/items/:id", itemsHandler.UpdateItem)
	protected.DELETE("/items/:id", itemsHandler.DeleteItem)

	for _, p := range []string{"/stats", "/stats/"} {
		protected.GET(p, statsHandler.GetStats)
	}
	protected.GET("/stats/low-stock", statsHandler.LowStock)

	return r
}
