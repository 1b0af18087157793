package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/attendly/attendly/internal/application"
)

type AdminHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewAdminHandler(svc *application.UserService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Svc: svc, Logger: logger}
}

// DeleteUser DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("id")
	deleted, err := h.Svc.DeleteAccount(c.Request.Context(), userID)
	if err != nil {
		h.Logger.WithError(err).WithField("user_id", userID).Error("admin user deletion failed")
		fail(c, http.StatusInternalServerError, "failed to delete user", nil)
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, "user not found", nil)
		return
	}
	h.Logger.WithField("user_id", userID).Info("user deleted by admin")
	c.Status(http.StatusNoContent)
}
