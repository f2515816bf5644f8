package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ijikeman/stockmanager/internal/transport/rest/middleware"
)

// NewRouter builds the fiber application with all API routes registered.
func NewRouter(ctrl *Controller) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(middleware.Logger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	api := app.Group("/api/v1")

	api.Post("/owners", ctrl.CreateOwner)
	api.Get("/owners", ctrl.ListOwners)
	api.Get("/owners/:id", ctrl.GetOwner)
	api.Post("/owners/:id/buy", ctrl.BuyStock)

	api.Post("/stocks", ctrl.RegisterStock)
	api.Get("/stocks", ctrl.ListStocks)
	api.Get("/stocks/:id", ctrl.GetStock)
	api.Post("/stocks/refresh", ctrl.RefreshQuotes)

	api.Post("/lots/:id/sell", ctrl.SellLot)
	api.Post("/lots/:id/incomes", ctrl.RegisterIncome)
	api.Post("/lots/:id/benefits", ctrl.RegisterBenefit)
	api.Get("/lots/:id/integrity", ctrl.VerifyLotIntegrity)

	api.Get("/holdings", ctrl.ListHoldings)
	api.Get("/profitloss", ctrl.GetProfitLoss)
	api.Get("/profitloss/sales", ctrl.GetClosedSales)
	api.Get("/profitloss/report", ctrl.DownloadProfitLossReport)
	api.Get("/integrity", ctrl.VerifyIntegrity)

	return app
}
