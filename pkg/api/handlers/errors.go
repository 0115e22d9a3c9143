package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/smarttel/pkg/api/types"
	"github.com/urmzd/smarttel/pkg/seestar"
)

// writeTelescopeError maps a client error onto an HTTP status.
func writeTelescopeError(c *gin.Context, err error) {
	var cmdErr *seestar.CommandError
	switch {
	case errors.Is(err, seestar.ErrNotConnected), errors.Is(err, seestar.ErrStreamEnded):
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error:   "telescope_disconnected",
			Message: err.Error(),
		})
	case errors.Is(err, seestar.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, types.ErrorResponse{
			Error:   "timeout",
			Message: "Request timed out waiting for telescope response",
		})
	case errors.As(err, &cmdErr):
		c.JSON(http.StatusBadGateway, types.ErrorResponse{
			Error:   "command_rejected",
			Message: cmdErr.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "telescope_error",
			Message: err.Error(),
		})
	}
}
