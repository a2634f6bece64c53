package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/newsroom/internal/dedup"
	"github.com/jonesrussell/newsroom/internal/ingest"
)

type ingestRequest struct {
	Items []ingest.IncomingItem `json:"items" binding:"required"`
}

func (r *Router) ingestBatch(c *gin.Context) {
	workspaceID := c.Param("id")

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "items is required"})
		return
	}

	for _, item := range req.Items {
		if item.SourceURL == "" || item.Headline == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "every item needs a source_url and a headline",
			})
			return
		}
	}

	result, err := r.ingestor.Ingest(c.Request.Context(), workspaceID, req.Items)
	if err != nil {
		handleError(c, err)
		return
	}

	if r.metrics != nil {
		r.metrics.ItemsIngested.
			WithLabelValues(workspaceID, "accepted").
			Add(float64(len(result.Accepted)))
		for _, rej := range result.Rejected {
			outcome := rej.Reason
			if outcome != dedup.ReasonDuplicateURL && outcome != dedup.ReasonNearDuplicate {
				outcome = "rejected"
			}
			r.metrics.ItemsIngested.WithLabelValues(workspaceID, outcome).Inc()
		}
		for _, acc := range result.Accepted {
			if acc.NewGroup {
				r.metrics.GroupsOpened.WithLabelValues(workspaceID).Inc()
			}
		}
		r.metrics.ItemsSwept.WithLabelValues(workspaceID).Add(float64(result.Swept))
	}

	c.JSON(http.StatusOK, result)
}
