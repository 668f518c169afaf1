package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/soundprediction/scenegraph"
	"github.com/soundprediction/scenegraph/pkg/server/dto"
	"github.com/soundprediction/scenegraph/pkg/types"
)

// ObservationHandler handles observation submission
type ObservationHandler struct {
	processor scenegraph.ObservationProcessor
}

// NewObservationHandler creates a new observation handler
func NewObservationHandler(p scenegraph.ObservationProcessor) *ObservationHandler {
	return &ObservationHandler{processor: p}
}

// Submit handles POST /api/v1/observations
//
// Per-observation failures are reported in the body with status 200. Only a
// failure that aborts the whole batch, such as an unreachable store, maps to
// an error status.
func (h *ObservationHandler) Submit(c *gin.Context) {
	var req dto.SubmitObservationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	ctx := c.Request.Context()
	batchID, ok := ctx.Value(types.ContextKeyBatchID).(string)
	if !ok || batchID == "" {
		batchID = uuid.NewString()
		ctx = context.WithValue(ctx, types.ContextKeyBatchID, batchID)
	}

	result, err := h.processor.Process(ctx, req.Batch())
	if err != nil {
		writeError(c, statusFor(err), "Failed to process observations", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSubmitObservationsResponse(batchID, result))
}
