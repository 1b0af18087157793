package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly/internal/application"
	"github.com/attendly/attendly/internal/portal"
	"github.com/attendly/attendly/pkg/response"
)

func ok[T any](c *gin.Context, status int, data T, message string, meta interface{}) {
	resp := response.Success(c, status, data, message, meta)
	c.JSON(resp.Status, resp)
}

func fail(c *gin.Context, status int, message string, err interface{}) {
	resp := response.Error[any](c, status, message, err)
	c.JSON(resp.Status, resp)
}

// portalStatus maps service and portal errors onto API status codes.
func portalStatus(err error) int {
	switch {
	case errors.Is(err, application.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrNoSignature):
		return http.StatusNotFound
	case errors.Is(err, application.ErrNoSharedJar):
		return http.StatusNotFound
	}
	var pe *portal.Error
	if errors.As(err, &pe) {
		return portal.HTTPStatus(err)
	}
	return http.StatusInternalServerError
}
