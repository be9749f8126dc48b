package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timmy/leadflow/internal/api/handler"
	"github.com/timmy/leadflow/internal/api/middleware"
	"github.com/timmy/leadflow/internal/config"
	"github.com/timmy/leadflow/internal/logger"
	"github.com/timmy/leadflow/internal/service"
	"github.com/timmy/leadflow/internal/store"
)

// Deps are the services the HTTP API serves.
type Deps struct {
	Intake   *service.IntakeService
	Lists    *service.ListService
	Contacts store.ContactStore
	DB       handler.Pinger // optional
	Logger   *logger.Logger // optional, defaults to the process logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, server *config.ServerConfig, ingest *config.IngestConfig) *gin.Engine {
	switch server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORS(server.CORS))
	r.Use(middleware.Metrics())

	healthHandler := handler.NewHealthHandler(deps.DB)
	importHandler := handler.NewImportHandler(deps.Intake, ingest.MaxUploadBytes())
	jobHandler := handler.NewJobHandler(deps.Intake)
	listHandler := handler.NewListHandler(deps.Lists, deps.Contacts)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1/tenants/:tenant_id")
	{
		// Imports
		v1.POST("/imports", importHandler.Create)

		// Jobs
		v1.GET("/jobs", jobHandler.List)
		v1.GET("/jobs/:id", jobHandler.Get)
		v1.POST("/jobs/:id/cancel", jobHandler.Cancel)

		// Lists
		v1.GET("/lists", listHandler.List)
		v1.POST("/lists", listHandler.Create)
		v1.GET("/lists/:id", listHandler.Get)
		v1.PATCH("/lists/:id", listHandler.Update)
		v1.DELETE("/lists/:id", listHandler.Delete)
		v1.GET("/lists/:id/contacts", listHandler.Contacts)
	}

	return r
}
