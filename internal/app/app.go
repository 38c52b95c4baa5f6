package app

import (
	"pdf2html/internal/handlers"
	u "pdf2html/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupApp creates and configures a new Fiber app instance
func SetupApp(cfg u.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		BodyLimit:             cfg.Limits.MaxBodyBytes,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			u.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	RegisterMiddleware(app)
	RegisterRoutes(app, cfg)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts all route handlers to the app
func RegisterRoutes(app *fiber.App, cfg u.Config) {
	app.Get("/health", handlers.HandleHealth)

	svc := handlers.NewPdf2HtmlService(cfg)
	app.Post("/pdf2html", svc.HandleConversion)
}
