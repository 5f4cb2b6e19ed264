package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the envelope of every /api/v1 reply.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func dataResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Response{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	})
}

func errorResponse(c echo.Context, status int, msg string) error {
	return c.JSON(status, Response{
		Status:  status,
		Message: http.StatusText(status),
		Error:   msg,
	})
}
