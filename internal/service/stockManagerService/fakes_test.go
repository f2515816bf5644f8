package stockManagerService

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ijikeman/stockmanager/data/repository"
	"github.com/ijikeman/stockmanager/internal/externalApi"
	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/model/quoteModel"
	"github.com/shopspring/decimal"
)

// fakeRepo is an in-memory Repository. WithinTransaction snapshots the
// whole state up front and restores it when the callback fails, matching
// the all-or-nothing behavior of the real implementation.
type fakeRepo struct {
	owners   map[int64]model.Owner
	stocks   map[int64]model.Stock
	lots     map[int64]model.StockLot
	buys     map[int64]model.BuyEvent
	sells    map[int64]model.SellEvent
	incomes  map[int64]model.IncomeRecord
	benefits map[int64]model.BenefitRecord
	nextID   int64

	failCreateSellEventAfter int // fail the n+1-th CreateSellEvent when > 0
	sellEventsCreated        int

	missNextLotLookup bool // next FindLotByOwnerAndStock misses, as if another tx commits the lot in between
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		owners:   map[int64]model.Owner{},
		stocks:   map[int64]model.Stock{},
		lots:     map[int64]model.StockLot{},
		buys:     map[int64]model.BuyEvent{},
		sells:    map[int64]model.SellEvent{},
		incomes:  map[int64]model.IncomeRecord{},
		benefits: map[int64]model.BenefitRecord{},
	}
}

func (r *fakeRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func cloneMap[V any](src map[int64]V) map[int64]V {
	dst := make(map[int64]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	owners := cloneMap(r.owners)
	stocks := cloneMap(r.stocks)
	lots := cloneMap(r.lots)
	buys := cloneMap(r.buys)
	sells := cloneMap(r.sells)
	incomes := cloneMap(r.incomes)
	benefits := cloneMap(r.benefits)
	nextID := r.nextID

	if err := fn(ctx); err != nil {
		r.owners, r.stocks, r.lots = owners, stocks, lots
		r.buys, r.sells = buys, sells
		r.incomes, r.benefits = incomes, benefits
		r.nextID = nextID
		return err
	}
	return nil
}

func (r *fakeRepo) CreateOwner(_ context.Context, name string) (int64, error) {
	for _, o := range r.owners {
		if o.Name == name {
			return 0, repository.ErrAlreadyExists
		}
	}
	id := r.id()
	r.owners[id] = model.Owner{ID: id, Name: name}
	return id, nil
}

func (r *fakeRepo) GetOwner(_ context.Context, ownerID int64) (model.Owner, error) {
	owner, ok := r.owners[ownerID]
	if !ok {
		return model.Owner{}, repository.ErrNotFound
	}
	return owner, nil
}

func (r *fakeRepo) ListOwners(_ context.Context) ([]model.Owner, error) {
	owners := make([]model.Owner, 0, len(r.owners))
	for _, o := range r.owners {
		owners = append(owners, o)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].ID < owners[j].ID })
	return owners, nil
}

func (r *fakeRepo) CreateStock(_ context.Context, stock model.Stock) (int64, error) {
	for _, s := range r.stocks {
		if s.Code == stock.Code {
			return 0, repository.ErrAlreadyExists
		}
	}
	id := r.id()
	stock.ID = id
	r.stocks[id] = stock
	return id, nil
}

func (r *fakeRepo) GetStock(_ context.Context, stockID int64) (model.Stock, error) {
	stock, ok := r.stocks[stockID]
	if !ok {
		return model.Stock{}, repository.ErrNotFound
	}
	return stock, nil
}

func (r *fakeRepo) GetStockByCode(_ context.Context, code string) (model.Stock, error) {
	for _, s := range r.stocks {
		if s.Code == code {
			return s, nil
		}
	}
	return model.Stock{}, repository.ErrNotFound
}

func (r *fakeRepo) ListStocks(_ context.Context) ([]model.Stock, error) {
	stocks := make([]model.Stock, 0, len(r.stocks))
	for _, s := range r.stocks {
		stocks = append(stocks, s)
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].ID < stocks[j].ID })
	return stocks, nil
}

func (r *fakeRepo) UpdateStockQuote(_ context.Context, stockID int64, price decimal.Decimal, dividend *decimal.Decimal, earningsDate *time.Time) error {
	stock, ok := r.stocks[stockID]
	if !ok {
		return repository.ErrNotFound
	}
	stock.CurrentPrice = price
	if dividend != nil {
		stock.Dividend = *dividend
	}
	if earningsDate != nil {
		stock.EarningsDate = earningsDate
	}
	r.stocks[stockID] = stock
	return nil
}

func (r *fakeRepo) CreateLot(_ context.Context, ownerID, stockID int64, openUnits int) (int64, error) {
	for _, lot := range r.lots {
		if lot.OwnerID == ownerID && lot.StockID == stockID {
			return 0, repository.ErrAlreadyExists
		}
	}
	id := r.id()
	r.lots[id] = model.StockLot{ID: id, OwnerID: ownerID, StockID: stockID, OpenUnits: openUnits}
	return id, nil
}

func (r *fakeRepo) GetLot(_ context.Context, lotID int64) (model.StockLot, error) {
	lot, ok := r.lots[lotID]
	if !ok {
		return model.StockLot{}, repository.ErrNotFound
	}
	return lot, nil
}

func (r *fakeRepo) GetLotForUpdate(ctx context.Context, lotID int64) (model.StockLot, error) {
	return r.GetLot(ctx, lotID)
}

func (r *fakeRepo) FindLotByOwnerAndStock(_ context.Context, ownerID, stockID int64) (model.StockLot, error) {
	if r.missNextLotLookup {
		r.missNextLotLookup = false
		return model.StockLot{}, repository.ErrNotFound
	}
	for _, lot := range r.lots {
		if lot.OwnerID == ownerID && lot.StockID == stockID {
			return lot, nil
		}
	}
	return model.StockLot{}, repository.ErrNotFound
}

func (r *fakeRepo) UpdateLotUnits(_ context.Context, lotID int64, openUnits int) error {
	lot, ok := r.lots[lotID]
	if !ok {
		return repository.ErrNotFound
	}
	lot.OpenUnits = openUnits
	r.lots[lotID] = lot
	return nil
}

func (r *fakeRepo) ListLotDetails(_ context.Context, ownerID *int64, openOnly bool) ([]model.Holding, error) {
	holdings := []model.Holding{}
	for _, lot := range r.lots {
		if ownerID != nil && lot.OwnerID != *ownerID {
			continue
		}
		if openOnly && lot.OpenUnits == 0 {
			continue
		}
		holdings = append(holdings, model.Holding{
			Lot:   lot,
			Owner: r.owners[lot.OwnerID],
			Stock: r.stocks[lot.StockID],
		})
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Lot.ID < holdings[j].Lot.ID })
	return holdings, nil
}

func (r *fakeRepo) CreateBuyEvent(_ context.Context, event model.BuyEvent) (int64, error) {
	id := r.id()
	event.ID = id
	r.buys[id] = event
	return id, nil
}

func (r *fakeRepo) FindBuyEventsByLot(_ context.Context, lotID int64) ([]model.BuyEvent, error) {
	events := []model.BuyEvent{}
	for _, b := range r.buys {
		if b.StockLotID == lotID {
			events = append(events, b)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].TransactionDate.Equal(events[j].TransactionDate) {
			return events[i].ID < events[j].ID
		}
		return events[i].TransactionDate.Before(events[j].TransactionDate)
	})
	return events, nil
}

func (r *fakeRepo) FindBuyPositionsByLot(ctx context.Context, lotID int64) ([]model.BuyPosition, error) {
	buys, _ := r.FindBuyEventsByLot(ctx, lotID)
	positions := make([]model.BuyPosition, 0, len(buys))
	for _, b := range buys {
		sold := 0
		for _, s := range r.sells {
			if s.BuyEventID == b.ID {
				sold += s.Units
			}
		}
		positions = append(positions, model.BuyPosition{BuyEvent: b, Remaining: b.Units - sold})
	}
	return positions, nil
}

func (r *fakeRepo) CreateSellEvent(_ context.Context, event model.SellEvent) (int64, error) {
	if r.failCreateSellEventAfter > 0 && r.sellEventsCreated >= r.failCreateSellEventAfter {
		return 0, errors.New("storage failure")
	}
	id := r.id()
	event.ID = id
	r.sells[id] = event
	r.sellEventsCreated++
	return id, nil
}

func (r *fakeRepo) FindSellEventsByBuyEvent(_ context.Context, buyEventID int64) ([]model.SellEvent, error) {
	events := []model.SellEvent{}
	for _, s := range r.sells {
		if s.BuyEventID == buyEventID {
			events = append(events, s)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (r *fakeRepo) ListSaleDetails(_ context.Context, ownerID *int64) ([]model.SaleDetail, error) {
	sales := []model.SaleDetail{}
	for _, s := range r.sells {
		buy := r.buys[s.BuyEventID]
		lot := r.lots[buy.StockLotID]
		if ownerID != nil && lot.OwnerID != *ownerID {
			continue
		}
		stock := r.stocks[lot.StockID]
		sales = append(sales, model.SaleDetail{
			SellEvent:   s,
			BuyPrice:    buy.Price,
			BuyFee:      buy.Fee,
			IsNisa:      buy.IsNisa,
			StockLotID:  lot.ID,
			OwnerID:     lot.OwnerID,
			OwnerName:   r.owners[lot.OwnerID].Name,
			StockCode:   stock.Code,
			StockName:   stock.Name,
			MinimalUnit: stock.MinimalUnit,
		})
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].SellEvent.ID < sales[j].SellEvent.ID })
	return sales, nil
}

func (r *fakeRepo) CreateIncomeRecord(_ context.Context, record model.IncomeRecord) (int64, error) {
	id := r.id()
	record.ID = id
	r.incomes[id] = record
	return id, nil
}

func (r *fakeRepo) CreateBenefitRecord(_ context.Context, record model.BenefitRecord) (int64, error) {
	id := r.id()
	record.ID = id
	r.benefits[id] = record
	return id, nil
}

func (r *fakeRepo) FindIncomeByLot(_ context.Context, lotID int64) ([]model.IncomeRecord, error) {
	records := []model.IncomeRecord{}
	for _, rec := range r.incomes {
		if id, ok := rec.Owner.LotID(); ok && id == lotID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (r *fakeRepo) FindIncomeBySale(_ context.Context, sellEventID int64) ([]model.IncomeRecord, error) {
	records := []model.IncomeRecord{}
	for _, rec := range r.incomes {
		if id, ok := rec.Owner.SellEventID(); ok && id == sellEventID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (r *fakeRepo) FindBenefitByLot(_ context.Context, lotID int64) ([]model.BenefitRecord, error) {
	records := []model.BenefitRecord{}
	for _, rec := range r.benefits {
		if id, ok := rec.Owner.LotID(); ok && id == lotID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (r *fakeRepo) FindBenefitBySale(_ context.Context, sellEventID int64) ([]model.BenefitRecord, error) {
	records := []model.BenefitRecord{}
	for _, rec := range r.benefits {
		if id, ok := rec.Owner.SellEventID(); ok && id == sellEventID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// fakeCache remembers quotes per code.
type fakeCache struct {
	quotes map[string]quoteModel.StockQuote
}

func newFakeCache() *fakeCache {
	return &fakeCache{quotes: map[string]quoteModel.StockQuote{}}
}

func (c *fakeCache) GetQuote(_ context.Context, code string) (quoteModel.StockQuote, error) {
	quote, ok := c.quotes[code]
	if !ok {
		return quoteModel.StockQuote{}, errors.New("cache miss")
	}
	return quote, nil
}

func (c *fakeCache) SetQuote(_ context.Context, code string, quote quoteModel.StockQuote) error {
	c.quotes[code] = quote
	return nil
}

// fakeFinanceApi serves canned quotes and names per code; unknown codes
// get externalApi.ErrNotFound.
type fakeFinanceApi struct {
	quotes map[string]quoteModel.StockQuote
	names  map[string]string
	err    error
}

func newFakeFinanceApi() *fakeFinanceApi {
	return &fakeFinanceApi{
		quotes: map[string]quoteModel.StockQuote{},
		names:  map[string]string{},
	}
}

func (a *fakeFinanceApi) GetQuote(_ context.Context, code string) (quoteModel.StockQuote, error) {
	if a.err != nil {
		return quoteModel.StockQuote{}, a.err
	}
	quote, ok := a.quotes[code]
	if !ok {
		return quoteModel.StockQuote{}, externalApi.ErrNotFound
	}
	return quote, nil
}

func (a *fakeFinanceApi) GetStockName(_ context.Context, code string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	name, ok := a.names[code]
	if !ok {
		return "", externalApi.ErrNotFound
	}
	return name, nil
}

type fakeReportGenerator struct {
	lastReport model.ProfitLossReport
}

func (g *fakeReportGenerator) GenerateProfitLossReport(_ context.Context, report model.ProfitLossReport) ([]byte, string, error) {
	g.lastReport = report
	return []byte("xlsx"), "report.xlsx", nil
}
