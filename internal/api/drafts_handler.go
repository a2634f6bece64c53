package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/newsroom/internal/lifecycle"
)

type createDraftRequest struct {
	WorkspaceID string `json:"workspace_id" binding:"required"`
	GroupID     string `json:"group_id"`
	NewsID      string `json:"news_id"`
	Language    string `json:"language"`
}

// createDraft generates a draft from either a group or a single item.
func (r *Router) createDraft(c *gin.Context) {
	var req createDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workspace_id is required"})
		return
	}
	if (req.GroupID == "") == (req.NewsID == "") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "exactly one of group_id or news_id is required",
		})
		return
	}

	var result *lifecycle.CreateResult
	var err error
	if req.GroupID != "" {
		result, err = r.machine.CreateFromGroup(c.Request.Context(), req.WorkspaceID, req.GroupID, req.Language)
	} else {
		result, err = r.machine.CreateFromItem(c.Request.Context(), req.WorkspaceID, req.NewsID, req.Language)
	}
	if r.metrics != nil {
		r.metrics.RecordDraftOp("create", err)
	}
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"draft":             result.Draft,
		"title_suggestions": result.TitleSuggestions,
	})
}

func (r *Router) listDrafts(c *gin.Context) {
	drafts, err := r.drafts.List(c.Request.Context(), c.Param("id"), listLimit(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

func (r *Router) getDraft(c *gin.Context) {
	draft, err := r.drafts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

type editDraftRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

func (r *Router) editDraft(c *gin.Context) {
	var req editDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and body are required"})
		return
	}

	draft, err := r.machine.Edit(c.Request.Context(), c.Param("id"), req.Title, req.Body)
	if r.metrics != nil {
		r.metrics.RecordDraftOp("edit", err)
	}
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

func (r *Router) approveDraft(c *gin.Context) {
	draft, err := r.machine.Approve(c.Request.Context(), c.Param("id"))
	if r.metrics != nil {
		r.metrics.RecordDraftOp("approve", err)
	}
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

func (r *Router) publishDraft(c *gin.Context) {
	draft, err := r.machine.Publish(c.Request.Context(), c.Param("id"))
	if r.metrics != nil {
		r.metrics.RecordDraftOp("publish", err)
	}
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

type translateDraftRequest struct {
	Language string `json:"language" binding:"required"`
}

func (r *Router) translateDraft(c *gin.Context) {
	var req translateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "language is required"})
		return
	}

	fork, err := r.machine.Translate(c.Request.Context(), c.Param("id"), req.Language)
	if r.metrics != nil {
		r.metrics.RecordDraftOp("translate", err)
	}
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, fork)
}
