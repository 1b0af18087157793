package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly/internal/container"
	handlers "github.com/attendly/attendly/internal/interface/http"
	"github.com/attendly/attendly/internal/interface/middleware"
	"github.com/attendly/attendly/pkg/helpers"
)

type SignModule struct {
	Handler *handlers.SignHandler
	JWT     *helpers.JWTManager
}

func NewSignModule(h *handlers.SignHandler, jwt *helpers.JWTManager) *SignModule {
	return &SignModule{Handler: h, JWT: jwt}
}

func (m *SignModule) Register(rg *gin.RouterGroup) {
	batchLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByUserID(), middleware.AllowPrivateIP())

	auth := rg.Group("/sign")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	{
		auth.POST("", batchLimiter, m.Handler.Sign)
		auth.GET("/status", m.Handler.Status)
		auth.POST("/cookies", m.Handler.SaveCookies)
	}
}
