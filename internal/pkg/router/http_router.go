package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localhub-app/LocalHub/app/controllers"
	"github.com/localhub-app/LocalHub/internal/pkg/middleware"
	"github.com/localhub-app/LocalHub/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Initialize billing controller (receipt asset store)
	controllers.InitializeBillingController()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
