package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urmzd/smarttel/pkg/api/handlers"
	"github.com/urmzd/smarttel/pkg/db"
	"github.com/urmzd/smarttel/pkg/device"
	"github.com/urmzd/smarttel/pkg/device/schema"
)

// Dependencies are the collaborators the handlers use
type Dependencies struct {
	Controller device.Controller
	Subscriber device.EventSubscriber
	Validator  *schema.Validator
	Scanner    handlers.Scanner
	Discovered db.DiscoveredStore
}

// Router holds the Gin engine and dependencies
type Router struct {
	engine *gin.Engine
	deps   Dependencies
}

// NewRouter creates a new API router
func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)

	if deps.Validator == nil {
		deps.Validator = schema.NewValidator()
	}

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine: engine,
		deps:   deps,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Health check at root
	healthHandler := handlers.NewHealthHandler(r.deps.Controller)
	r.engine.GET("/health", healthHandler.Health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		statusHandler := handlers.NewStatusHandler(r.deps.Controller, r.deps.Subscriber)
		v1.GET("/status", statusHandler.Status)
		v1.GET("/events", statusHandler.Events)
		v1.GET("/events/stream", statusHandler.Stream)

		commandHandler := handlers.NewCommandHandler(r.deps.Controller, r.deps.Validator)
		v1.GET("/commands", commandHandler.Methods)
		v1.POST("/commands", commandHandler.Execute)

		if r.deps.Scanner != nil {
			discoveryHandler := handlers.NewDiscoveryHandler(r.deps.Scanner, r.deps.Discovered)
			discovery := v1.Group("/discovery")
			{
				discovery.POST("/scan", discoveryHandler.Scan)
				discovery.GET("/devices", discoveryHandler.Devices)
			}
		}
	}
}

// Handler returns the engine for use with an http.Server
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
