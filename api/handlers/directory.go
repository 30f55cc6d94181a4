package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shared-board/backend/internal/directory"
	"github.com/shared-board/backend/internal/model"
)

// DirectoryHandler serves the naming layer to remote board servers.
type DirectoryHandler struct {
	naming directory.Directory
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(naming directory.Directory) *DirectoryHandler {
	return &DirectoryHandler{naming: naming}
}

// BoardID handles GET /api/board_id?name= - binds name if needed and returns its id.
func (h *DirectoryHandler) BoardID(c *gin.Context) {
	name := c.Query("name")
	id, err := h.naming.Resolve(c.Request.Context(), name)
	if err != nil {
		sendNamingError(c, err)
		return
	}
	c.JSON(http.StatusOK, directory.Binding{Name: name, ID: id})
}

// Get handles GET /api/boards/:name - returns the id bound to name.
func (h *DirectoryHandler) Get(c *gin.Context) {
	name := c.Param("name")
	id, err := h.naming.Lookup(c.Request.Context(), name)
	if err != nil {
		sendNamingError(c, err)
		return
	}
	c.JSON(http.StatusOK, directory.Binding{Name: name, ID: id})
}

// Delete handles DELETE /internal/delete_board?id= - releases a board's name.
func (h *DirectoryHandler) Delete(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Board ID is required")
		return
	}

	if err := h.naming.Deregister(c.Request.Context(), model.BoardID(id)); err != nil {
		sendNamingError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the naming layer routes on a Gin router.
func (h *DirectoryHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/board_id", h.BoardID)
	r.GET("/api/boards/:name", h.Get)
	r.DELETE("/internal/delete_board", h.Delete)
}
