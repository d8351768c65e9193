package handlers

import (
	"climate_scheduler/internal/logger"
	"climate_scheduler/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	hub      *Hub
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies. The hub may be
// nil when WebSocket push is not wanted (tests).
func NewHandler(services *service.Service, hub *Hub, log *logger.Logger) *Handler {
	return &Handler{services: services, hub: hub, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// WebSocket transition feed, same port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerGroupRoutes(api)
		h.registerProfileRoutes(api)
		h.registerSettingsRoutes(api)
		h.registerLogRoutes(api)

		api.POST("/sync", h.syncAll)
	}
}

func (h *Handler) registerGroupRoutes(api *gin.RouterGroup) {
	groups := api.Group("/groups")
	{
		groups.GET("/", h.listGroups)
		groups.POST("/", h.createGroup)
		groups.DELETE("/:name", h.deleteGroup)
		groups.PUT("/:name/rename", h.renameGroup)
		groups.PUT("/:name/enabled", h.setGroupEnabled)
		groups.PUT("/:name/ignored", h.setGroupIgnored)
		groups.PUT("/:name/entities", h.setGroupEntities)
		groups.PUT("/:name/profile", h.setActiveProfile)

		groups.POST("/:name/advance", h.advance)
		groups.DELETE("/:name/advance", h.cancelAdvance)
		groups.GET("/:name/advance", h.overrideStatus)
		groups.GET("/:name/history", h.advanceHistory)
		groups.DELETE("/:name/history", h.clearAdvanceHistory)
		groups.GET("/:name/summary", h.summary)
		groups.POST("/:name/resolve", h.resolveGroup)
	}
}

func (h *Handler) registerProfileRoutes(api *gin.RouterGroup) {
	profiles := api.Group("/profiles")
	{
		profiles.POST("/", h.createProfile)
		profiles.DELETE("/:name", h.deleteProfile)
		profiles.PUT("/:name/rename", h.renameProfile)
		profiles.PUT("/:name/schedule", h.setProfileSchedule)
	}
}

func (h *Handler) registerSettingsRoutes(api *gin.RouterGroup) {
	api.PUT("/settings", h.setSettings)
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/events", h.listEvents)
		logs.GET("/performance/:entity", h.performanceSessions)
	}
}
