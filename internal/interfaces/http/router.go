package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps are the services the API routes need.
type RouterDeps struct {
	Settings     SettingsService
	Certificates CertificateService
	Invoices     InvoiceService
	JWTSecret    string
}

// Router registers the API routes. Everything is JWT-protected; settings
// mutation and certificate issuance additionally require the admin role.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	stores := protected.Group("/stores")
	storeHandler := NewStoreHandler(deps.Settings)
	stores.Get("/", storeHandler.List)
	stores.Get("/:id/settings", storeHandler.GetSettings)
	stores.Put("/:id/settings", RequireRole("admin"), storeHandler.UpdateSettings)

	certHandler := NewCertificateHandler(deps.Certificates)
	stores.Post("/:id/certificate", RequireRole("admin"), certHandler.Generate)
	stores.Post("/:id/certificate/renew", RequireRole("admin"), certHandler.Renew)

	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Invoices)
	invoices.Get("/", invoiceHandler.List)
	invoices.Post("/submit", invoiceHandler.SubmitBatch)
	invoices.Post("/:id/submit", invoiceHandler.Submit)
	invoices.Get("/:id/submission", invoiceHandler.GetSubmission)

	stores.Get("/:id/statistics", invoiceHandler.Statistics)
}
