package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/engine"
	"github.com/sykell/seo-engine/internal/report"
	"github.com/sykell/seo-engine/internal/scheduler"
	"github.com/sykell/seo-engine/internal/service"
)

// GetScoreHandler returns the stored snapshot of one content item
func GetScoreHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := eng.GetScore(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

// AnalyzeHandler scores one content item now. The body always carries the
// success flag so that callers can render a failed run.
func AnalyzeHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := eng.Analyze(c.Request.Context(), c.Param("id"))
		if !result.Success {
			c.JSON(statusFor(result.Err()), result)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// PublishedHandler is the CMS publish webhook. It never fails the caller.
func PublishedHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := engine.ValidateContentID(id); err != nil {
			respondError(c, err)
			return
		}
		eng.OnPublish(c.Request.Context(), id)
		c.JSON(http.StatusAccepted, gin.H{"content_id": id, "status": "accepted"})
	}
}

// UnpublishedHandler is the CMS unpublish and delete webhook
func UnpublishedHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := engine.ValidateContentID(id); err != nil {
			respondError(c, err)
			return
		}
		eng.OnUnpublish(c.Request.Context(), id)
		c.JSON(http.StatusAccepted, gin.H{"content_id": id, "status": "accepted"})
	}
}

// DashboardHandler returns the aggregate overview
func DashboardHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := eng.GetDashboardStats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// LogsHandler queries the action log. Supported filters: action, status,
// entity_id, scheduled, since (RFC 3339) and limit.
func LogsHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := service.LogFilter{
			Action:   db.Action(strings.TrimSpace(c.Query("action"))),
			Status:   db.LogStatus(strings.TrimSpace(c.Query("status"))),
			EntityID: strings.TrimSpace(c.Query("entity_id")),
		}

		if v := c.Query("scheduled"); v != "" {
			scheduled, err := strconv.ParseBool(v)
			if err != nil {
				badRequest(c, "Invalid scheduled filter", err)
				return
			}
			filter.Scheduled = &scheduled
		}
		if v := c.Query("since"); v != "" {
			since, err := time.Parse(time.RFC3339, v)
			if err != nil {
				badRequest(c, "Invalid since filter", err)
				return
			}
			filter.Since = since
		}
		if v := c.Query("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil || limit < 1 {
				badRequest(c, "Invalid limit", err)
				return
			}
			filter.Limit = limit
		}

		entries, err := eng.GetRecentLogs(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": entries, "count": len(entries)})
	}
}

// ReportHandler returns the cached report of a period. refresh=true
// generates a new one first.
func ReportHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		period, err := report.ParsePeriod(c.Param("period"))
		if err != nil {
			badRequest(c, "Invalid report period", err)
			return
		}

		if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
			r, err := eng.RefreshReport(c.Request.Context(), period)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, r)
			return
		}

		r, ok := eng.GetLastReport(period)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "No " + string(period) + " report generated yet"})
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

// RunTasksHandler runs a cadence's batch synchronously
func RunTasksHandler(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		cadence, err := scheduler.ParseCadence(c.Param("cadence"))
		if err != nil {
			badRequest(c, "Invalid cadence", err)
			return
		}

		if admin, ok := getAdmin(c); ok {
			log.Printf("%s triggered the %s batch", admin, cadence)
		}

		results := sched.Trigger(c.Request.Context(), cadence)
		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		c.JSON(http.StatusOK, gin.H{"cadence": cadence, "results": results, "failed": failed})
	}
}
