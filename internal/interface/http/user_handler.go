package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/attendly/attendly/internal/application"
	"github.com/attendly/attendly/internal/domain/entity"
	"github.com/attendly/attendly/internal/interface/middleware"
	"github.com/attendly/attendly/pkg/helpers"
	"github.com/attendly/attendly/pkg/validation"
)

type UserHandler struct {
	Svc     *application.UserService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type updateProfileRequest struct {
	Username    string `json:"username"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type updateJWTRequest struct {
	JWT string `json:"jwt" binding:"required"`
}

type saveSignatureRequest struct {
	Signature string `json:"signature" binding:"required"`
}

func publicUser(u *entity.User) gin.H {
	return gin.H{
		"id":                   u.ID,
		"username":             u.Username,
		"has_intra_jwt":        u.IntraJWT != nil && *u.IntraJWT != "",
		"intra_jwt_expires_at": u.IntraJWTExpiresAt,
	}
}

// Me GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	u, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusNotFound, "user not found", nil)
		return
	}
	ok(c, http.StatusOK, publicUser(u), "profile", nil)
}

// Update PATCH /api/users/me
func (h *UserHandler) Update(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if req.NewPassword != "" && req.OldPassword == "" {
		fail(c, http.StatusBadRequest, "old password is required", nil)
		return
	}

	u, err := h.Svc.UpdateProfile(c.Request.Context(), uid, application.UpdateProfileInput{
		Username:    req.Username,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	switch {
	case errors.Is(err, application.ErrWrongOldPassword):
		fail(c, http.StatusUnauthorized, "old password is incorrect", nil)
		return
	case errors.Is(err, application.ErrUsernameTaken):
		fail(c, http.StatusConflict, "username already exists", nil)
		return
	case errors.Is(err, application.ErrUserNotFound):
		fail(c, http.StatusNotFound, "user not found", nil)
		return
	case err != nil:
		h.Logger.WithError(err).Error("profile update failed")
		fail(c, http.StatusInternalServerError, "failed to update profile", nil)
		return
	}
	ok(c, http.StatusOK, publicUser(u), "profile updated", nil)
}

// List GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list users", nil)
		return
	}
	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, gin.H{"id": users[i].ID, "username": users[i].Username})
	}
	ok(c, http.StatusOK, out, "users", nil)
}

// UpdateIntraJWT POST /api/users/me/update-jwt
func (h *UserHandler) UpdateIntraJWT(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req updateJWTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	err := h.Svc.UpdateIntraJWT(c.Request.Context(), uid, req.JWT)
	switch {
	case errors.Is(err, application.ErrInvalidIntraJWT):
		fail(c, http.StatusBadRequest, "invalid jwt payload", nil)
		return
	case errors.Is(err, application.ErrUserNotFound):
		fail(c, http.StatusNotFound, "user not found", nil)
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, "failed to update jwt", nil)
		return
	}
	ok[any](c, http.StatusOK, map[string]any{"updated": true}, "jwt updated", nil)
}

// AddSignature POST /api/users/me/signatures
func (h *UserHandler) AddSignature(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req saveSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	sig, err := h.Svc.AddSignature(c.Request.Context(), uid, req.Signature)
	switch {
	case errors.Is(err, application.ErrInvalidSignature):
		fail(c, http.StatusBadRequest, "invalid signature format, expected PNG base64 data URL", nil)
		return
	case errors.Is(err, application.ErrUserNotFound):
		fail(c, http.StatusNotFound, "user not found", nil)
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, "failed to save signature", nil)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": sig.ID, "created_at": sig.CreatedAt}, "signature saved", nil)
}

// ListSignatures GET /api/users/me/signatures
func (h *UserHandler) ListSignatures(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	sigs, err := h.Svc.ListSignatures(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list signatures", nil)
		return
	}
	out := make([]gin.H, 0, len(sigs))
	for i := range sigs {
		out = append(out, gin.H{
			"id":             sigs[i].ID,
			"signature_data": sigs[i].SignatureData,
			"created_at":     sigs[i].CreatedAt,
		})
	}
	ok(c, http.StatusOK, out, "signatures", nil)
}

// DeleteSignature DELETE /api/users/me/signatures/:id
func (h *UserHandler) DeleteSignature(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	deleted, err := h.Svc.DeleteSignature(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to delete signature", nil)
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, "signature not found", nil)
		return
	}
	ok[any](c, http.StatusOK, map[string]any{"deleted": true}, "signature deleted", nil)
}

// DeleteAccount DELETE /api/users/me
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	deleted, err := h.Svc.DeleteAccount(c.Request.Context(), uid)
	if err != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Error("account deletion failed")
		fail(c, http.StatusInternalServerError, "failed to delete account", nil)
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, "user not found", nil)
		return
	}
	h.Cookies.Clear(c)
	ok[any](c, http.StatusOK, map[string]any{"deleted": true}, "account deleted", nil)
}
