package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ProbeHandler serves the fixed public and protected probe messages.
type ProbeHandler struct{}

func NewProbeHandler() *ProbeHandler {
	return &ProbeHandler{}
}

// Public godoc
//
//	@Summary	Public probe
//	@Tags		probe
//	@Produce	json
//	@Success	200	{object}	messageResponse
//	@Router		/api/public [get]
func (h *ProbeHandler) Public(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "This is a public endpoint"})
}

// Protected godoc
//
//	@Summary	Protected probe
//	@Tags		probe
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	messageResponse
//	@Failure	401	{object}	errorResponse
//	@Router		/api/protected [get]
func (h *ProbeHandler) Protected(c echo.Context) error {
	if _, err := ctxIdentity(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "This is a protected endpoint"})
}
