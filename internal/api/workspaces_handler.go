package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jonesrussell/newsroom/internal/logger"
)

type createWorkspaceRequest struct {
	ID   string `json:"id"`
	Name string `json:"name" binding:"required"`
}

func (r *Router) createWorkspace(c *gin.Context) {
	var req createWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	if err := r.workspaces.Ensure(c.Request.Context(), req.ID, req.Name); err != nil {
		handleError(c, err)
		return
	}

	r.logger.Info("Workspace ensured",
		logger.String("workspace_id", req.ID),
		logger.String("name", req.Name),
	)

	c.JSON(http.StatusCreated, gin.H{"id": req.ID, "name": req.Name})
}

func (r *Router) listWorkspaces(c *gin.Context) {
	workspaces, err := r.workspaces.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
}
