package api

import (
	"propledger/internal/api/handlers"
	"propledger/pkg/auth"
	"propledger/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func SetupRouter(
	uploadHandler *handlers.UploadHandler,
	receiptHandler *handlers.ReceiptHandler,
	expenseHandler *handlers.ExpenseHandler,
	wsHandler *handlers.WSHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	uploads := protected.Group("/uploads")
	uploads.Post("/grants", uploadHandler.RequestGrant)
	uploads.Post("/confirm", uploadHandler.ConfirmUpload)

	receipts := protected.Group("/receipts")
	receipts.Get("/unprocessed", receiptHandler.ListUnprocessed)
	receipts.Get("/:id", receiptHandler.Get)
	receipts.Delete("/:id", receiptHandler.Delete)

	expenses := protected.Group("/expenses")
	expenses.Get("/duplicate-check", expenseHandler.CheckDuplicate)
	expenses.Post("", expenseHandler.Create)

	protected.Get("/ws", wsHandler.RequireUpgrade, wsHandler.Serve())

	return app
}
