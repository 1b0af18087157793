package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/attendly/attendly/internal/application"
	"github.com/attendly/attendly/internal/interface/middleware"
	"github.com/attendly/attendly/internal/portal"
	"github.com/attendly/attendly/pkg/validation"
)

type SignHandler struct {
	Svc    *application.SignService
	Logger *logrus.Logger
}

func NewSignHandler(svc *application.SignService, logger *logrus.Logger) *SignHandler {
	return &SignHandler{Svc: svc, Logger: logger}
}

type signRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1"`
	URL     string   `json:"url" binding:"required,url"`
}

type saveIntraCookiesRequest struct {
	Cookies portal.Jar `json:"cookies" binding:"required"`
}

// Sign POST /api/sign
func (h *SignHandler) Sign(c *gin.Context) {
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	results, err := h.Svc.Sign(c.Request.Context(), application.SignInput{
		UserIDs:     req.UserIDs,
		URL:         req.URL,
		InitiatedBy: c.GetString("userName"),
	})
	switch {
	case errors.Is(err, application.ErrNoSharedJar):
		fail(c, http.StatusNotFound, "no cookies found for today", nil)
		return
	case errors.Is(err, application.ErrUserNotFound):
		fail(c, http.StatusBadRequest, "no users found for the provided ids", nil)
		return
	case err != nil:
		h.Logger.WithError(err).Error("sign batch failed")
		fail(c, http.StatusInternalServerError, "sign batch failed", nil)
		return
	}
	ok(c, http.StatusOK, results, "sign batch finished", nil)
}

// Status GET /api/sign/status
func (h *SignHandler) Status(c *gin.Context) {
	exists, err := h.Svc.HasJarForToday(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to check cookies", nil)
		return
	}
	if !exists {
		fail(c, http.StatusNotFound, "no cookies found for today", nil)
		return
	}
	ok[any](c, http.StatusOK, map[string]any{"cookies": true}, "cookies exist for today", nil)
}

// SaveCookies POST /api/sign/cookies
func (h *SignHandler) SaveCookies(c *gin.Context) {
	var req saveIntraCookiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.SaveJarForToday(c.Request.Context(), req.Cookies); err != nil {
		h.Logger.WithError(err).Error("failed to save shared intra cookies")
		fail(c, http.StatusInternalServerError, "failed to save cookies", nil)
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	h.Logger.WithFields(logrus.Fields{"user_id": uid, "cookies": len(req.Cookies)}).Info("shared intra jar saved")
	ok[any](c, http.StatusOK, map[string]any{"saved": len(req.Cookies)}, "cookies saved", nil)
}
