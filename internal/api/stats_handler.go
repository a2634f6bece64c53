package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// workspaceStats returns queue depth by item status and draft counts by
// lifecycle state for the editor dashboard.
func (r *Router) workspaceStats(c *gin.Context) {
	workspaceID := c.Param("id")
	ctx := c.Request.Context()

	itemCounts, err := r.news.CountByStatus(ctx, workspaceID)
	if err != nil {
		handleError(c, err)
		return
	}

	draftCounts, err := r.drafts.CountByStatus(ctx, workspaceID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workspace_id": workspaceID,
		"items":        itemCounts,
		"drafts":       draftCounts,
	})
}
