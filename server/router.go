package server

import (
	"time"

	httpHandler "github.com/mido200912/Ai-Thor/interfaces/http"
	"github.com/mido200912/Ai-Thor/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// legacyPrefix is where the dashboard and widget snippets already point.
const legacyPrefix = "/api/integrations"

type Handlers struct {
	Integration httpHandler.IIntegrationHandler
	Webhook     httpHandler.IWebhookHandler
	Widget      httpHandler.IWidgetHandler
	Health      httpHandler.IHealthHandler
	// Stream serves the live link status feed; nil disables it.
	Stream gin.HandlerFunc
}

type RouterConfig struct {
	AllowOrigins []string
	SecretKey    string
}

func InitiateRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", h.Health.Healthz)

	registerPublicRoutes(router.Group("/"), "/integrations", h)
	registerPublicRoutes(router.Group(legacyPrefix), "", h)

	api := router.Group(legacyPrefix)
	api.Use(middleware.Auth(cfg.SecretKey))
	api.GET("/status", h.Integration.Status)
	if h.Stream != nil {
		api.GET("/stream", h.Stream)
	}

	return router
}

// registerPublicRoutes mounts the unauthenticated endpoints. Provider routes
// live under providerPrefix; webhooks and the widget do not.
func registerPublicRoutes(g *gin.RouterGroup, providerPrefix string, h Handlers) {
	meta := g.Group(providerPrefix + "/meta")
	{
		meta.GET("/login", h.Integration.MetaLogin)
		meta.GET("/callback", h.Integration.MetaCallback)
		meta.GET("/data-deletion", h.Integration.DataDeletion)
		meta.POST("/data-deletion", h.Integration.DataDeletion)
	}
	shopify := g.Group(providerPrefix + "/shopify")
	{
		shopify.GET("/login", h.Integration.ShopifyLogin)
		shopify.GET("/callback", h.Integration.ShopifyCallback)
	}

	g.GET("/webhooks/meta", h.Webhook.Meta)
	g.POST("/webhooks/meta", h.Webhook.Meta)
	g.POST("/webhooks/shopify", h.Webhook.Shopify)

	g.GET("/widget/script.js", h.Widget.Script)
}
