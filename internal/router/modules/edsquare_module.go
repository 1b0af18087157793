package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly/internal/container"
	handlers "github.com/attendly/attendly/internal/interface/http"
	"github.com/attendly/attendly/internal/interface/middleware"
	"github.com/attendly/attendly/pkg/helpers"
)

type EDSquareModule struct {
	Handler *handlers.EDSquareHandler
	JWT     *helpers.JWTManager
}

func NewEDSquareModule(h *handlers.EDSquareHandler, jwt *helpers.JWTManager) *EDSquareModule {
	return &EDSquareModule{Handler: h, JWT: jwt}
}

func (m *EDSquareModule) Register(rg *gin.RouterGroup) {
	// Batch validation hits the upstream portal once per user; keep it tight.
	batchLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByUserID(), middleware.AllowPrivateIP())
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByUserID(), nil)

	auth := rg.Group("/edsquare")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	{
		auth.POST("/validate", m.Handler.Validate)
		auth.POST("/validate-multi", batchLimiter, m.Handler.ValidateMulti)
		auth.POST("/cookies", m.Handler.SaveCookies)
		auth.POST("/login", loginLimiter, m.Handler.Login)
		auth.POST("/login-saved", loginLimiter, m.Handler.LoginSaved)
		auth.GET("/status", m.Handler.Status)
		auth.GET("/eligible-users", m.Handler.EligibleUsers)
		auth.GET("/planning-events", m.Handler.PlanningEvents)
		auth.POST("/planning-events-for-users", m.Handler.PlanningEventsForUsers)
	}
}
