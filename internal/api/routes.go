package api

import (
	"github.com/gin-gonic/gin"

	"github.com/sykell/seo-engine/internal/engine"
	"github.com/sykell/seo-engine/internal/middleware"
	"github.com/sykell/seo-engine/internal/scheduler"
	"github.com/sykell/seo-engine/internal/service"
)

// Services are the collaborators the admin surface exposes
type Services struct {
	Engine    *engine.Engine
	Scheduler *scheduler.Scheduler
	Index     *service.IndexTracker
	Keywords  *service.KeywordTracker
}

// Register mounts the admin endpoints on rg. Authentication is applied by
// the caller.
func Register(rg *gin.RouterGroup, s Services) {
	seo := rg.Group("/seo")
	{
		seo.GET("/dashboard", DashboardHandler(s.Engine))
		seo.GET("/logs", LogsHandler(s.Engine))
		seo.GET("/reports/:period", ReportHandler(s.Engine))

		seo.GET("/scores/:id", GetScoreHandler(s.Engine))
		seo.POST("/scores/:id/analyze", AnalyzeHandler(s.Engine))
		seo.POST("/content/:id/published", PublishedHandler(s.Engine))
		seo.POST("/content/:id/unpublished", UnpublishedHandler(s.Engine))

		seo.POST("/tasks/:cadence", RunTasksHandler(s.Scheduler))

		seo.GET("/index", ListIndexHandler(s.Index))
		seo.POST("/index", SubmitIndexHandler(s.Index))
		seo.POST("/index/resubmit", ResubmitIndexHandler(s.Index))
		seo.POST("/index/performance", PerformanceHandler(s.Index))

		seo.GET("/keywords", ListKeywordsHandler(s.Keywords))
		seo.POST("/keywords", TrackKeywordHandler(s.Keywords))
		seo.DELETE("/keywords", UntrackKeywordHandler(s.Keywords))
	}
}

func getAdmin(c *gin.Context) (string, bool) {
	admin, ok := middleware.GetAdminFromContext(c)
	if !ok {
		return "", false
	}
	return admin.Subject, true
}
