package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/attendly/attendly/internal/application"
	"github.com/attendly/attendly/internal/interface/middleware"
	"github.com/attendly/attendly/internal/portal"
	"github.com/attendly/attendly/pkg/validation"
)

type EDSquareHandler struct {
	Svc    *application.PortalService
	Logger *logrus.Logger
}

func NewEDSquareHandler(svc *application.PortalService, logger *logrus.Logger) *EDSquareHandler {
	return &EDSquareHandler{Svc: svc, Logger: logger}
}

type validateRequest struct {
	Code            string `json:"code" binding:"required"`
	PlanningEventID string `json:"planning_event_id" binding:"required"`
}

type validateMultiRequest struct {
	UserIDs              []string          `json:"user_ids" binding:"required,min=1"`
	Code                 string            `json:"code"`
	PlanningEventID      string            `json:"planning_event_id"`
	UserCodes            map[string]string `json:"user_codes"`
	UserPlanningEventIDs map[string]string `json:"user_planning_event_ids"`
}

type saveCookiesRequest struct {
	Cookies portal.Jar `json:"cookies" binding:"required"`
}

type portalLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type planningForUsersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1"`
	Date    string   `json:"date" binding:"required"`
}

// Validate POST /api/edsquare/validate
func (h *EDSquareHandler) Validate(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	if err := h.Svc.ValidateCode(c.Request.Context(), uid, req.Code, req.PlanningEventID); err != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Error("code validation failed")
		fail(c, portalStatus(err), err.Error(), nil)
		return
	}
	ok[any](c, http.StatusOK, map[string]any{"validated": true}, "code validated", nil)
}

// ValidateMulti POST /api/edsquare/validate-multi
func (h *EDSquareHandler) ValidateMulti(c *gin.Context) {
	var req validateMultiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if req.Code == "" && len(req.UserCodes) == 0 {
		fail(c, http.StatusBadRequest, "code is required", nil)
		return
	}
	if req.PlanningEventID == "" && len(req.UserPlanningEventIDs) == 0 {
		fail(c, http.StatusBadRequest, "planning_event_id or user_planning_event_ids is required", nil)
		return
	}

	res, err := h.Svc.ValidateMulti(c.Request.Context(), application.MultiValidationInput{
		UserIDs:              req.UserIDs,
		Code:                 req.Code,
		PlanningEventID:      req.PlanningEventID,
		UserCodes:            req.UserCodes,
		UserPlanningEventIDs: req.UserPlanningEventIDs,
		InitiatedBy:          c.GetString("userName"),
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, "batch validation failed", nil)
		return
	}
	ok(c, http.StatusOK, res, "batch validation finished", nil)
}

// SaveCookies POST /api/edsquare/cookies
func (h *EDSquareHandler) SaveCookies(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req saveCookiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.SaveCookies(c.Request.Context(), uid, req.Cookies); err != nil {
		h.Logger.WithError(err).Error("failed to save portal cookies")
		fail(c, http.StatusInternalServerError, "failed to save cookies", nil)
		return
	}
	ok[any](c, http.StatusOK, map[string]any{"saved": len(req.Cookies)}, "cookies saved", nil)
}

// Login POST /api/edsquare/login
func (h *EDSquareHandler) Login(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req portalLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	msg, err := h.Svc.Login(c.Request.Context(), uid, req.Email, req.Password)
	if err != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Error("portal login failed")
		fail(c, portalStatus(err), err.Error(), nil)
		return
	}
	ok[any](c, http.StatusOK, map[string]any{"message": msg}, "portal login successful", nil)
}

// LoginSaved POST /api/edsquare/login-saved
func (h *EDSquareHandler) LoginSaved(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	msg, err := h.Svc.LoginWithSaved(c.Request.Context(), uid)
	if err != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Error("portal login with saved credentials failed")
		fail(c, portalStatus(err), err.Error(), nil)
		return
	}
	ok[any](c, http.StatusOK, map[string]any{"message": msg}, "portal login successful", nil)
}

// Status GET /api/edsquare/status
func (h *EDSquareHandler) Status(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	report, err := h.Svc.Status(c.Request.Context(), uid)
	if err != nil {
		fail(c, portalStatus(err), err.Error(), nil)
		return
	}
	ok(c, http.StatusOK, report, "portal status", nil)
}

// EligibleUsers GET /api/edsquare/eligible-users
func (h *EDSquareHandler) EligibleUsers(c *gin.Context) {
	users, err := h.Svc.EligibleUsers(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list eligible users", nil)
		return
	}
	ok(c, http.StatusOK, gin.H{"users": users}, "eligible users", nil)
}

// PlanningEvents GET /api/edsquare/planning-events?date=YYYY-MM-DD
func (h *EDSquareHandler) PlanningEvents(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	date := time.Now()
	if d := c.Query("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD", nil)
			return
		}
		date = parsed
	}

	events, err := h.Svc.PlanningEvents(c.Request.Context(), uid, date)
	if err != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Error("planning fetch failed")
		fail(c, portalStatus(err), err.Error(), nil)
		return
	}
	if events == nil {
		events = []portal.PlanningEvent{}
	}
	ok(c, http.StatusOK, gin.H{"events": events}, "planning events", nil)
}

// PlanningEventsForUsers POST /api/edsquare/planning-events-for-users
func (h *EDSquareHandler) PlanningEventsForUsers(c *gin.Context) {
	var req planningForUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD", nil)
		return
	}

	out, err := h.Svc.PlanningEventsForUsers(c.Request.Context(), req.UserIDs, date)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to fetch planning", nil)
		return
	}
	ok(c, http.StatusOK, gin.H{"user_events": out}, "planning events per user", nil)
}
