package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/service"
)

// IndexRequest names a public URL, optionally tied to a content item
type IndexRequest struct {
	URL       string `json:"url" binding:"required"`
	ContentID string `json:"content_id"`
}

// SubmitIndexHandler registers a URL and notifies the index submitter
func SubmitIndexHandler(index *service.IndexTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IndexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request format", err)
			return
		}

		record, err := index.Submit(c.Request.Context(), req.URL, req.ContentID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

// ResubmitIndexHandler restarts the index lifecycle of a URL
func ResubmitIndexHandler(index *service.IndexTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IndexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request format", err)
			return
		}

		record, err := index.Resubmit(c.Request.Context(), req.URL)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

// PerformanceHandler measures a tracked URL on demand
func PerformanceHandler(index *service.IndexTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IndexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request format", err)
			return
		}

		record, err := index.CheckPerformance(c.Request.Context(), req.URL)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

// ListIndexHandler lists index records, optionally filtered by status
func ListIndexHandler(index *service.IndexTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
		if err != nil || limit < 1 || limit > 500 {
			limit = 100
		}

		records, err := index.List(c.Request.Context(), db.IndexStatus(c.Query("status")), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": records, "count": len(records)})
	}
}

// TrackKeywordHandler starts tracking a (keyword, target URL) pair
func TrackKeywordHandler(keywords *service.KeywordTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.TrackInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request format", err)
			return
		}

		kw, err := keywords.Track(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, kw)
	}
}

// ListKeywordsHandler lists tracked pairs; all=true includes untracked ones
func ListKeywordsHandler(keywords *service.KeywordTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, _ := strconv.ParseBool(c.Query("all"))

		list, err := keywords.List(c.Request.Context(), !all)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
	}
}

// UntrackKeywordRequest identifies the pair to stop tracking
type UntrackKeywordRequest struct {
	Keyword   string `json:"keyword" binding:"required"`
	TargetURL string `json:"target_url" binding:"required"`
}

// UntrackKeywordHandler stops syncing a pair and keeps its history
func UntrackKeywordHandler(keywords *service.KeywordTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UntrackKeywordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request format", err)
			return
		}

		if err := keywords.Untrack(c.Request.Context(), req.Keyword, req.TargetURL); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
