package api

import (
	"github.com/gin-gonic/gin"

	"github.com/z4qs/repohealth_go_server/config"
	"github.com/z4qs/repohealth_go_server/internal/api/handler"
	"github.com/z4qs/repohealth_go_server/internal/api/middleware"
)

type Router struct {
	jobHandler    *handler.JobHandler
	streamHandler *handler.StreamHandler
	cfg           *config.Config
}

func NewRouter(
	jobHandler *handler.JobHandler,
	streamHandler *handler.StreamHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		jobHandler:    jobHandler,
		streamHandler: streamHandler,
		cfg:           cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		jobs := api.Group("/jobs")
		{
			jobs.POST("", r.jobHandler.Create)
			jobs.GET("/:id", r.jobHandler.Get)
			jobs.POST("/:id/cancel", r.jobHandler.Cancel)
			jobs.GET("/:id/report", r.jobHandler.GetReport)
			jobs.GET("/:id/export", r.jobHandler.Export)

			// WebSocket 事件流
			jobs.GET("/:id/events", r.streamHandler.Handle)
		}
	}

	return engine
}
