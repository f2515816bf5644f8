package rest

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ijikeman/stockmanager/internal/converter/restConverter"
	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/model/restModel"
	"github.com/ijikeman/stockmanager/internal/service"
	"github.com/ijikeman/stockmanager/internal/transport/rest/middleware"
	"github.com/ijikeman/stockmanager/utils"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type StockManagerService interface {
	CreateOwner(ctx context.Context, name string) (model.Owner, error)
	GetOwner(ctx context.Context, ownerID int64) (model.Owner, error)
	ListOwners(ctx context.Context) ([]model.Owner, error)
	RegisterStock(ctx context.Context, stock model.Stock) (model.Stock, error)
	GetStock(ctx context.Context, stockID int64) (model.Stock, error)
	ListStocks(ctx context.Context) ([]model.Stock, error)
	BuyStock(ctx context.Context, ownerID int64, stockCode string, req model.BuyRequest) (model.StockLot, error)
	SellLot(ctx context.Context, lotID int64, req model.SellRequest) ([]model.SellEvent, error)
	RegisterIncome(ctx context.Context, lotID int64, amount decimal.Decimal, paymentDate time.Time) (model.IncomeRecord, error)
	RegisterBenefit(ctx context.Context, lotID int64, value decimal.Decimal, paymentDate time.Time) (model.BenefitRecord, error)
	ListHoldings(ctx context.Context, ownerID *int64) ([]model.Holding, error)
	ComputeProfitLoss(ctx context.Context, ownerID *int64) (model.ProfitLossSummary, error)
	ClosedSaleBreakdown(ctx context.Context, ownerID *int64) ([]model.SaleRecord, error)
	GenerateProfitLossReport(ctx context.Context, ownerID *int64) (fileBytes []byte, fileName string, err error)
	VerifyLotIntegrity(ctx context.Context, lotID int64) error
	VerifyIntegrity(ctx context.Context) error
	RefreshStockQuotes(ctx context.Context) error
}

type Controller struct {
	stockManagerService StockManagerService
}

func NewController(stockManagerService StockManagerService) *Controller {
	return &Controller{stockManagerService: stockManagerService}
}

func (ctrl *Controller) ctxFromFiber(c *fiber.Ctx) context.Context {
	rqID, _ := c.Locals(middleware.RqIDKey).(string)
	return utils.CreateCtxWithRqID(c.UserContext(), rqID)
}

// respondErr translates service errors into HTTP statuses: unknown
// entities map to 404, duplicates to 409, rejected business input to 422
// and everything unexpected to 500.
func (ctrl *Controller) respondErr(c *fiber.Ctx, err error) error {
	var insufficientErr *service.InsufficientUnitsError
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(restModel.ErrResponse{Error: "not found"})
	case errors.Is(err, service.ErrAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(restModel.ErrResponse{Error: "already exists"})
	case errors.As(err, &insufficientErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(restModel.ErrResponse{Error: insufficientErr.Error()})
	case errors.Is(err, service.ErrInvalidOwnerName), errors.Is(err, service.ErrInvalidQuantity):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(restModel.ErrResponse{Error: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(restModel.ErrResponse{Error: "internal error"})
	}
}

func (ctrl *Controller) badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(restModel.ErrResponse{Error: msg})
}

func idParam(c *fiber.Ctx, name string) (int64, error) {
	return strconv.ParseInt(c.Params(name), 10, 64)
}

// ownerIDQuery reads the optional owner_id query filter.
func ownerIDQuery(c *fiber.Ctx) (*int64, error) {
	raw := c.Query("owner_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse(dateLayout, raw)
}

func (ctrl *Controller) CreateOwner(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	var req restModel.CreateOwnerRequest
	if err := c.BodyParser(&req); err != nil {
		return ctrl.badRequest(c, "invalid request body")
	}

	owner, err := ctrl.stockManagerService.CreateOwner(ctx, req.Name)
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(restConverter.ConvertOwner(owner))
}

func (ctrl *Controller) GetOwner(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	ownerID, err := idParam(c, "id")
	if err != nil {
		return ctrl.badRequest(c, "invalid owner id")
	}

	owner, err := ctrl.stockManagerService.GetOwner(ctx, ownerID)
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.JSON(restConverter.ConvertOwner(owner))
}

func (ctrl *Controller) ListOwners(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	owners, err := ctrl.stockManagerService.ListOwners(ctx)
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.JSON(restConverter.ConvertOwners(owners))
}

func (ctrl *Controller) RegisterStock(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	var req restModel.RegisterStockRequest
	if err := c.BodyParser(&req); err != nil {
		return ctrl.badRequest(c, "invalid request body")
	}
	if req.Code == "" {
		return ctrl.badRequest(c, "code is required")
	}

	stock, err := ctrl.stockManagerService.RegisterStock(ctx, model.Stock{
		Code:        req.Code,
		Name:        req.Name,
		MinimalUnit: req.MinimalUnit,
		Sector:      req.Sector,
	})
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(restConverter.ConvertStock(stock))
}

func (ctrl *Controller) GetStock(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	stockID, err := idParam(c, "id")
	if err != nil {
		return ctrl.badRequest(c, "invalid stock id")
	}

	stock, err := ctrl.stockManagerService.GetStock(ctx, stockID)
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.JSON(restConverter.ConvertStock(stock))
}

func (ctrl *Controller) ListStocks(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	stocks, err := ctrl.stockManagerService.ListStocks(ctx)
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.JSON(restConverter.ConvertStocks(stocks))
}

func (ctrl *Controller) BuyStock(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	ownerID, err := idParam(c, "id")
	if err != nil {
		return ctrl.badRequest(c, "invalid owner id")
	}

	var req restModel.BuyRequest
	if err := c.BodyParser(&req); err != nil {
		return ctrl.badRequest(c, "invalid request body")
	}
	if req.StockCode == "" {
		return ctrl.badRequest(c, "stock_code is required")
	}
	transactionDate, err := parseDate(req.TransactionDate)
	if err != nil {
		return ctrl.badRequest(c, "invalid transaction_date")
	}

	lot, err := ctrl.stockManagerService.BuyStock(ctx, ownerID, req.StockCode, model.BuyRequest{
		Units:           req.Units,
		Price:           req.Price,
		Fee:             req.Fee,
		IsNisa:          req.IsNisa,
		TransactionDate: transactionDate,
	})
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(restConverter.ConvertLot(lot))
}

func (ctrl *Controller) SellLot(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	lotID, err := idParam(c, "id")
	if err != nil {
		return ctrl.badRequest(c, "invalid lot id")
	}

	var req restModel.SellRequest
	if err := c.BodyParser(&req); err != nil {
		return ctrl.badRequest(c, "invalid request body")
	}
	transactionDate, err := parseDate(req.TransactionDate)
	if err != nil {
		return ctrl.badRequest(c, "invalid transaction_date")
	}

	events, err := ctrl.stockManagerService.SellLot(ctx, lotID, model.SellRequest{
		Units:           req.Units,
		Price:           req.Price,
		Fee:             req.Fee,
		TransactionDate: transactionDate,
	})
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(restConverter.ConvertSellEvents(events))
}

func (ctrl *Controller) RegisterIncome(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	lotID, err := idParam(c, "id")
	if err != nil {
		return ctrl.badRequest(c, "invalid lot id")
	}

	var req restModel.HistoryRequest
	if err := c.BodyParser(&req); err != nil {
		return ctrl.badRequest(c, "invalid request body")
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		return ctrl.badRequest(c, "invalid payment_date")
	}

	record, err := ctrl.stockManagerService.RegisterIncome(ctx, lotID, req.Amount, paymentDate)
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(restConverter.ConvertIncomeRecord(record))
}

func (ctrl *Controller) RegisterBenefit(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	lotID, err := idParam(c, "id")
	if err != nil {
		return ctrl.badRequest(c, "invalid lot id")
	}

	var req restModel.HistoryRequest
	if err := c.BodyParser(&req); err != nil {
		return ctrl.badRequest(c, "invalid request body")
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		return ctrl.badRequest(c, "invalid payment_date")
	}

	record, err := ctrl.stockManagerService.RegisterBenefit(ctx, lotID, req.Amount, paymentDate)
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(restConverter.ConvertBenefitRecord(record))
}

func (ctrl *Controller) ListHoldings(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	ownerID, err := ownerIDQuery(c)
	if err != nil {
		return ctrl.badRequest(c, "invalid owner_id")
	}

	holdings, err := ctrl.stockManagerService.ListHoldings(ctx, ownerID)
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.JSON(restConverter.ConvertHoldings(holdings))
}

func (ctrl *Controller) GetProfitLoss(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	ownerID, err := ownerIDQuery(c)
	if err != nil {
		return ctrl.badRequest(c, "invalid owner_id")
	}

	summary, err := ctrl.stockManagerService.ComputeProfitLoss(ctx, ownerID)
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.JSON(restConverter.ConvertProfitLossSummary(summary))
}

func (ctrl *Controller) GetClosedSales(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	ownerID, err := ownerIDQuery(c)
	if err != nil {
		return ctrl.badRequest(c, "invalid owner_id")
	}

	records, err := ctrl.stockManagerService.ClosedSaleBreakdown(ctx, ownerID)
	if err != nil {
		return ctrl.respondErr(c, err)
	}
	return c.JSON(restConverter.ConvertSaleRecords(records))
}

func (ctrl *Controller) DownloadProfitLossReport(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	ownerID, err := ownerIDQuery(c)
	if err != nil {
		return ctrl.badRequest(c, "invalid owner_id")
	}

	fileBytes, fileName, err := ctrl.stockManagerService.GenerateProfitLossReport(ctx, ownerID)
	if err != nil {
		return ctrl.respondErr(c, err)
	}

	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return c.Send(fileBytes)
}

func (ctrl *Controller) VerifyLotIntegrity(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	lotID, err := idParam(c, "id")
	if err != nil {
		return ctrl.badRequest(c, "invalid lot id")
	}

	if err := ctrl.stockManagerService.VerifyLotIntegrity(ctx, lotID); err != nil {
		if errors.Is(err, service.ErrInvariantViolation) {
			return c.Status(fiber.StatusConflict).JSON(restModel.ErrResponse{Error: err.Error()})
		}
		return ctrl.respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ctrl *Controller) VerifyIntegrity(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)

	if err := ctrl.stockManagerService.VerifyIntegrity(ctx); err != nil {
		if errors.Is(err, service.ErrInvariantViolation) {
			return c.Status(fiber.StatusConflict).JSON(restModel.ErrResponse{Error: err.Error()})
		}
		return ctrl.respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ctrl *Controller) RefreshQuotes(c *fiber.Ctx) error {
	ctx := ctrl.ctxFromFiber(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	if err := ctrl.stockManagerService.RefreshStockQuotes(ctx); err != nil {
		slog.Error("got error from stockManagerService.RefreshStockQuotes", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return ctrl.respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
