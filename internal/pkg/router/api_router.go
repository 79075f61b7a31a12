package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/localhub-app/LocalHub/app/controllers"
	"github.com/localhub-app/LocalHub/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "LocalHub API",
		})
	})

	v1 := api.Group("/v1")

	// Price table is public; everything else under /billing needs a session.
	v1.Get("/billing/plans", controllers.HandleListPlans)

	billing := v1.Group("/billing", middleware.RequireAPISessionAuth)
	billing.Get("/subscription", controllers.HandleGetSubscription)
	billing.Post("/card/orders", controllers.HandleCreateCardOrder)
	billing.Post("/card/orders/:orderID/capture", controllers.HandleCaptureCardOrder)
	billing.Post("/onchain/claims", controllers.HandleOnchainClaim)
	billing.Post("/manual/submissions", controllers.HandleManualSubmit)
	billing.Get("/manual/submissions", controllers.HandleMyManualSubmissions)

	admin := v1.Group("/admin/billing", middleware.RequireAdmin)
	admin.Get("/submissions", controllers.HandleAdminListPendingSubmissions)
	admin.Post("/submissions/:submissionID/approve", controllers.HandleAdminApproveSubmission)
	admin.Post("/submissions/:submissionID/reject", controllers.HandleAdminRejectSubmission)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
