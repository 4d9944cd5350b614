package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"problems-service/internal/config"
	"problems-service/internal/logging"
	"problems-service/internal/notify"
)

func NewRouter(svc ProblemService, hub *notify.Hub, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(svc, logger)
	api := r.Group(cfg.API.BasePath)
	{
		// Problems
		api.GET("/problems", h.ListProblems)
		api.GET("/problems/export", h.ExportCsv)
		api.GET("/problems/:eventid/acknowledges", h.GetAcknowledges)
		api.POST("/problems/:eventid/update", h.SubmitUpdate)
		api.POST("/problems/:eventid/scripts/:name", h.ExecuteScript)

		// Scripts
		api.GET("/scripts", h.GetScripts)
		api.POST("/scripts/refresh", h.RefreshScripts)

		// Update audit trail
		api.GET("/updates", h.ListUpdates)
	}

	r.GET("/ws", ServeWS(hub, logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
