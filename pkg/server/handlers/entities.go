package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/scenegraph"
	"github.com/soundprediction/scenegraph/pkg/server/dto"
)

// EntityHandler serves the registered entities
type EntityHandler struct {
	reader scenegraph.RegistryReader
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(r scenegraph.RegistryReader) *EntityHandler {
	return &EntityHandler{reader: r}
}

// List handles GET /api/v1/entities
func (h *EntityHandler) List(c *gin.Context) {
	entities, excluded, err := h.reader.Entities(c.Request.Context())
	if err != nil {
		writeError(c, statusFor(err), "Failed to read entities", err)
		return
	}
	c.JSON(http.StatusOK, dto.EntitiesResponse{
		Entities: entities,
		Count:    len(entities),
		Excluded: dto.ErrorStrings(excluded),
	})
}

// Get handles GET /api/v1/entities/:id
func (h *EntityHandler) Get(c *gin.Context) {
	entity, err := h.reader.Entity(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, statusFor(err), "Failed to get entity", err)
		return
	}
	c.JSON(http.StatusOK, entity)
}
