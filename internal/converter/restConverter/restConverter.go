// Package restConverter maps domain models to the REST API's JSON shapes.
package restConverter

import (
	"time"

	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/model/restModel"
)

const dateLayout = "2006-01-02"

func ConvertOwner(owner model.Owner) restModel.OwnerResponse {
	return restModel.OwnerResponse{ID: owner.ID, Name: owner.Name}
}

func ConvertOwners(owners []model.Owner) []restModel.OwnerResponse {
	res := make([]restModel.OwnerResponse, 0, len(owners))
	for _, o := range owners {
		res = append(res, ConvertOwner(o))
	}
	return res
}

func ConvertStock(stock model.Stock) restModel.StockResponse {
	return restModel.StockResponse{
		ID:           stock.ID,
		Code:         stock.Code,
		Name:         stock.Name,
		CurrentPrice: stock.CurrentPrice,
		Dividend:     stock.Dividend,
		MinimalUnit:  stock.MinimalUnit,
		EarningsDate: formatDate(stock.EarningsDate),
		Sector:       stock.Sector,
	}
}

func ConvertStocks(stocks []model.Stock) []restModel.StockResponse {
	res := make([]restModel.StockResponse, 0, len(stocks))
	for _, s := range stocks {
		res = append(res, ConvertStock(s))
	}
	return res
}

func ConvertLot(lot model.StockLot) restModel.LotResponse {
	return restModel.LotResponse{
		ID:        lot.ID,
		OwnerID:   lot.OwnerID,
		StockID:   lot.StockID,
		OpenUnits: lot.OpenUnits,
	}
}

func ConvertSellEvents(events []model.SellEvent) []restModel.SellEventResponse {
	res := make([]restModel.SellEventResponse, 0, len(events))
	for _, e := range events {
		res = append(res, restModel.SellEventResponse{
			ID:              e.ID,
			BuyEventID:      e.BuyEventID,
			Units:           e.Units,
			Price:           e.Price,
			Fee:             e.Fee,
			TransactionDate: e.TransactionDate.Format(dateLayout),
		})
	}
	return res
}

func ConvertIncomeRecord(record model.IncomeRecord) restModel.HistoryResponse {
	lotID, _ := record.Owner.LotID()
	return restModel.HistoryResponse{
		ID:          record.ID,
		LotID:       lotID,
		Amount:      record.Amount,
		PaymentDate: record.PaymentDate.Format(dateLayout),
	}
}

func ConvertBenefitRecord(record model.BenefitRecord) restModel.HistoryResponse {
	lotID, _ := record.Owner.LotID()
	return restModel.HistoryResponse{
		ID:          record.ID,
		LotID:       lotID,
		Amount:      record.Value,
		PaymentDate: record.PaymentDate.Format(dateLayout),
	}
}

func ConvertHoldings(holdings []model.Holding) []restModel.HoldingResponse {
	res := make([]restModel.HoldingResponse, 0, len(holdings))
	for _, h := range holdings {
		res = append(res, restModel.HoldingResponse{
			LotID:        h.Lot.ID,
			OwnerID:      h.Owner.ID,
			OwnerName:    h.Owner.Name,
			StockCode:    h.Stock.Code,
			StockName:    h.Stock.Name,
			OpenUnits:    h.Lot.OpenUnits,
			AveragePrice: h.AveragePrice,
			PurchaseDate: formatDate(h.PurchaseDate),
			IsNisa:       h.IsNisa,
		})
	}
	return res
}

func ConvertProfitLossSummary(summary model.ProfitLossSummary) restModel.ProfitLossSummaryResponse {
	return restModel.ProfitLossSummaryResponse{
		Realized:   summary.Realized,
		Unrealized: summary.Unrealized,
		Income:     summary.Income,
		Total:      summary.Total,
	}
}

func ConvertSaleRecords(records []model.SaleRecord) []restModel.SaleRecordResponse {
	res := make([]restModel.SaleRecordResponse, 0, len(records))
	for _, r := range records {
		res = append(res, restModel.SaleRecordResponse{
			SellEventID:     r.SellEvent.ID,
			OwnerID:         r.OwnerID,
			OwnerName:       r.OwnerName,
			StockCode:       r.StockCode,
			StockName:       r.StockName,
			Units:           r.SellEvent.Units,
			BuyPrice:        r.BuyPrice,
			SellPrice:       r.SellEvent.Price,
			IsNisa:          r.IsNisa,
			RealizedPL:      r.RealizedPL,
			IncomeTotal:     r.IncomeTotal,
			BenefitTotal:    r.BenefitTotal,
			TransactionDate: r.TransactionDate.Format(dateLayout),
		})
	}
	return res
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
