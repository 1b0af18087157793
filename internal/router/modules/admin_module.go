package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/attendly/attendly/internal/interface/http"
	"github.com/attendly/attendly/internal/interface/middleware"
)

// AdminModule routes bypass JWT auth entirely: the shared header key is the
// only credential.
type AdminModule struct {
	Handler  *handlers.AdminHandler
	AdminKey string
}

func NewAdminModule(h *handlers.AdminHandler, adminKey string) *AdminModule {
	return &AdminModule{Handler: h, AdminKey: adminKey}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AdminKey(m.AdminKey))
	{
		admin.DELETE("/users/:id", m.Handler.DeleteUser)
	}
}
