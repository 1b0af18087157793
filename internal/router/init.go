package router

import (
	"github.com/attendly/attendly/internal/application"
	"github.com/attendly/attendly/internal/container"
	pginfra "github.com/attendly/attendly/internal/infrastructure/postgres"
	handlers "github.com/attendly/attendly/internal/interface/http"
	"github.com/attendly/attendly/internal/router/modules"
)

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	userRepo := pginfra.NewUserRepository(pool)
	sigRepo := pginfra.NewSignatureRepository(pool)
	intraJars := pginfra.NewIntraJarRepository(pool)

	userSvc := application.NewUserService(userRepo, sigRepo, container.GetJWT(), container.GetRedis(), logger, cfg.RegisterKey)

	portalNotifier := application.NewNotifier(cfg.EDSquareWebhookURL, logger)
	portalSvc := application.NewPortalService(container.GetPortal(), userRepo, sigRepo, portalNotifier, logger)

	signNotifier := application.NewNotifier(cfg.SignWebhookURL, logger)
	signSvc := application.NewSignService(userRepo, intraJars, signNotifier, logger, cfg.PortalHTTPTimeout)

	authHandler := handlers.NewAuthHandler(userSvc, logger, cfg.CookieDomain, cfg.CookieSecure)
	userHandler := handlers.NewUserHandler(userSvc, logger, cfg.CookieDomain, cfg.CookieSecure)
	edsquareHandler := handlers.NewEDSquareHandler(portalSvc, logger)
	signHandler := handlers.NewSignHandler(signSvc, logger)
	adminHandler := handlers.NewAdminHandler(userSvc, logger)

	r.Add(modules.NewAuthModule(authHandler, container.GetJWT()))
	r.Add(modules.NewUserModule(userHandler, container.GetJWT()))
	r.Add(modules.NewEDSquareModule(edsquareHandler, container.GetJWT()))
	r.Add(modules.NewSignModule(signHandler, container.GetJWT()))
	r.Add(modules.NewAdminModule(adminHandler, cfg.AdminKey))
}
