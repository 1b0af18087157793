package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly/internal/container"
	handlers "github.com/attendly/attendly/internal/interface/http"
	"github.com/attendly/attendly/internal/interface/middleware"
	"github.com/attendly/attendly/pkg/helpers"
)

type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	{
		auth.GET("/users", m.Handler.List)
		auth.GET("/users/me", m.Handler.Me)
		auth.PATCH("/users/me", m.Handler.Update)
		auth.DELETE("/users/me", m.Handler.DeleteAccount)
		auth.POST("/users/me/update-jwt", m.Handler.UpdateIntraJWT)
		auth.GET("/users/me/signatures", m.Handler.ListSignatures)
		auth.POST("/users/me/signatures", m.Handler.AddSignature)
		auth.DELETE("/users/me/signatures/:id", m.Handler.DeleteSignature)
	}
}
