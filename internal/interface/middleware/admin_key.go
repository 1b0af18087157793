package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly/pkg/response"
)

const adminKeyHeader = "X-Admin-Key"

// AdminKey gates admin routes behind a shared header secret. An unconfigured
// key disables the routes with 501 rather than leaving them open.
func AdminKey(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			resp := response.Error[any](c, http.StatusNotImplemented, "admin key not configured", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		provided := strings.TrimSpace(c.GetHeader(adminKeyHeader))
		if provided == "" {
			resp := response.Error[any](c, http.StatusForbidden, "missing or invalid X-Admin-Key header", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		if provided != expected {
			resp := response.Error[any](c, http.StatusForbidden, "invalid X-Admin-Key", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Next()
	}
}
