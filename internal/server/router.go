// Package server assembles the HTTP engine from ready-made dependencies.
package server

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"growthops/internal/auth"
	"growthops/internal/config"
	"growthops/internal/events"
	"growthops/internal/handler"
	"growthops/internal/observability"
	"growthops/internal/paas"
	"growthops/internal/repository"
	"growthops/internal/runner"
	"growthops/internal/service"
)

type Deps struct {
	Config   config.Config
	DB       *gorm.DB
	Repo     repository.Repository
	Runner   *runner.Runner
	Settings *service.SystemSettingsService
	Hub      *events.Hub
	PaaS     *paas.Client
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

type registrar interface {
	Register(r *gin.Engine)
}

func NewRouter(d Deps) *gin.Engine {
	if strings.EqualFold(d.Config.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	if d.Config.Tracing.Enabled {
		engine.Use(otelgin.Middleware(d.Config.Tracing.ServiceName))
	}
	engine.Use(auth.Middleware(d.Config.Auth))
	engine.Use(paas.InjectClientMiddleware(d.PaaS))

	health := &handler.HealthHandler{DB: d.DB, MetricsPath: d.Config.Metrics.Path}
	if d.Config.Metrics.Enabled && d.Metrics != nil {
		health.Metrics = d.Metrics.Registry
	}

	for _, h := range []registrar{
		health,
		&handler.ExecuteHandler{Runner: d.Runner, Settings: d.Settings, Logger: d.Logger},
		&handler.ExecutionStreamHandler{Hub: d.Hub, Logger: d.Logger},
		&handler.ExecutionsHandler{Repo: d.Repo},
		&handler.StrategiesHandler{Repo: d.Repo},
		&handler.PluginsHandler{Repo: d.Repo},
		&handler.SystemLogsHandler{Repo: d.Repo},
		&handler.SystemSettingsHandler{Repo: d.Repo, Settings: d.Settings},
	} {
		h.Register(engine)
	}

	paas.RegisterDocs(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return engine
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
	})
}
