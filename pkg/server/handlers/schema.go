package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/scenegraph"
	"github.com/soundprediction/scenegraph/pkg/server/dto"
)

// SchemaHandler serves the reflected class schema
type SchemaHandler struct {
	provider scenegraph.SchemaProvider
}

// NewSchemaHandler creates a new schema handler
func NewSchemaHandler(p scenegraph.SchemaProvider) *SchemaHandler {
	return &SchemaHandler{provider: p}
}

// Get handles GET /api/v1/schema
func (h *SchemaHandler) Get(c *gin.Context) {
	class := h.provider.Schema()
	c.JSON(http.StatusOK, dto.SchemaResponse{
		Class:      class.Name,
		IRI:        class.IRI,
		Attributes: class.Attributes,
	})
}
