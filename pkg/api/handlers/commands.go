package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/smarttel/pkg/api/types"
	"github.com/urmzd/smarttel/pkg/device"
	"github.com/urmzd/smarttel/pkg/device/schema"
	"github.com/urmzd/smarttel/pkg/seestar"
)

// CommandHandler executes catalog commands on the telescope
type CommandHandler struct {
	controller device.Controller
	validator  *schema.Validator
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(controller device.Controller, validator *schema.Validator) *CommandHandler {
	return &CommandHandler{controller: controller, validator: validator}
}

// Execute handles POST /commands
// @Summary      Execute a command
// @Description  Validates params against the method's schema, sends the command and waits for its response
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        request  body      types.CommandRequest  true  "Method and params"
// @Success      200      {object}  types.CommandResult
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Failure      502      {object}  types.ErrorResponse  "Telescope rejected the command"
// @Failure      503      {object}  types.ErrorResponse  "Telescope disconnected"
// @Failure      504      {object}  types.ErrorResponse  "Request timed out"
// @Failure      500      {object}  types.ErrorResponse  "Telescope error"
// @Router       /commands [post]
func (h *CommandHandler) Execute(c *gin.Context) {
	var req types.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "method is required",
		})
		return
	}

	var params any
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "invalid_request",
				Message: "params must be valid JSON",
			})
			return
		}
	}

	method := seestar.Method(req.Method)
	if err := h.validator.ValidateCommand(method, params); err != nil {
		if errors.Is(err, seestar.ErrUnknownMethod) {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "unknown_method",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.controller.Execute(c.Request.Context(), seestar.NewCommand(method, params))
	if err != nil {
		writeTelescopeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.NewCommandResult(resp))
}

// Methods handles GET /commands
// @Summary      List commands
// @Description  Returns every method in the command catalog with its params schema
// @Tags         commands
// @Produce      json
// @Success      200  {object}  map[string]object
// @Router       /commands [get]
func (h *CommandHandler) Methods(c *gin.Context) {
	out := make(map[string]json.RawMessage)
	for _, m := range seestar.Methods() {
		doc, err := seestar.ParamsSchema(m)
		if err != nil {
			continue
		}
		out[string(m)] = doc
	}
	c.JSON(http.StatusOK, out)
}
