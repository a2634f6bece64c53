package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (r *Router) listGroups(c *gin.Context) {
	workspaceID := c.Param("id")

	groups, err := r.groups.List(c.Request.Context(), workspaceID, listLimit(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (r *Router) getGroup(c *gin.Context) {
	group, err := r.groups.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, group)
}

// listGroupFacts returns the extracted fact slots of a group's members,
// the same set the generator is prompted with.
func (r *Router) listGroupFacts(c *gin.Context) {
	groupID := c.Param("id")

	if _, err := r.groups.GetByID(c.Request.Context(), groupID); err != nil {
		handleError(c, err)
		return
	}

	facts, err := r.news.FactsForGroup(c.Request.Context(), groupID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group_id": groupID, "facts": facts})
}
