package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/scenegraph"
	"github.com/soundprediction/scenegraph/pkg/driver"
	"github.com/soundprediction/scenegraph/pkg/server/dto"
	"github.com/soundprediction/scenegraph/pkg/types"
)

// statusFor maps client errors to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scenegraph.ErrEntityNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidID), errors.Is(err, types.ErrEmptyID):
		return http.StatusBadRequest
	case errors.Is(err, driver.ErrStoreUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, status int, summary string, err error) {
	c.JSON(status, dto.NewErrorResponse(status, summary, err))
}
