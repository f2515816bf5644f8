package dbConverter

import (
	"fmt"

	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/model/dbModel"
)

func ConvertOwner(dbOwner dbModel.Owner) model.Owner {
	return model.Owner{
		ID:   dbOwner.OwnerID,
		Name: dbOwner.Name,
	}
}

func ConvertStock(dbStock dbModel.Stock) model.Stock {
	return model.Stock{
		ID:           dbStock.StockID,
		Code:         dbStock.Code,
		Name:         dbStock.Name,
		CurrentPrice: dbStock.CurrentPrice,
		Dividend:     dbStock.Dividend,
		MinimalUnit:  dbStock.MinimalUnit,
		EarningsDate: dbStock.EarningsDate,
		Sector:       dbStock.Sector,
	}
}

func ConvertStockLot(dbLot dbModel.StockLot) model.StockLot {
	return model.StockLot{
		ID:        dbLot.StockLotID,
		OwnerID:   dbLot.OwnerID,
		StockID:   dbLot.StockID,
		OpenUnits: dbLot.OpenUnits,
	}
}

func ConvertBuyEvent(dbEvent dbModel.BuyEvent) model.BuyEvent {
	return model.BuyEvent{
		ID:              dbEvent.BuyEventID,
		StockLotID:      dbEvent.StockLotID,
		Units:           dbEvent.Units,
		Price:           dbEvent.Price,
		Fee:             dbEvent.Fee,
		IsNisa:          dbEvent.IsNisa,
		TransactionDate: dbEvent.TransactionDate,
	}
}

func ConvertBuyPosition(dbPos dbModel.BuyPosition) model.BuyPosition {
	return model.BuyPosition{
		BuyEvent:  ConvertBuyEvent(dbPos.BuyEvent),
		Remaining: dbPos.Units - dbPos.SoldUnits,
	}
}

func ConvertSellEvent(dbEvent dbModel.SellEvent) model.SellEvent {
	return model.SellEvent{
		ID:              dbEvent.SellEventID,
		BuyEventID:      dbEvent.BuyEventID,
		Units:           dbEvent.Units,
		Price:           dbEvent.Price,
		Fee:             dbEvent.Fee,
		TransactionDate: dbEvent.TransactionDate,
	}
}

func ConvertLotDetail(dbLot dbModel.LotDetail) model.Holding {
	return model.Holding{
		Lot: model.StockLot{
			ID:        dbLot.StockLotID,
			OwnerID:   dbLot.OwnerID,
			StockID:   dbLot.StockID,
			OpenUnits: dbLot.OpenUnits,
		},
		Owner: model.Owner{
			ID:   dbLot.OwnerID,
			Name: dbLot.OwnerName,
		},
		Stock: model.Stock{
			ID:           dbLot.StockID,
			Code:         dbLot.StockCode,
			Name:         dbLot.StockName,
			CurrentPrice: dbLot.CurrentPrice,
			Dividend:     dbLot.Dividend,
			MinimalUnit:  dbLot.MinimalUnit,
			EarningsDate: dbLot.EarningsDate,
			Sector:       dbLot.Sector,
		},
	}
}

func ConvertSaleDetail(dbSale dbModel.SaleDetail) model.SaleDetail {
	return model.SaleDetail{
		SellEvent: model.SellEvent{
			ID:              dbSale.SellEventID,
			BuyEventID:      dbSale.BuyEventID,
			Units:           dbSale.Units,
			Price:           dbSale.Price,
			Fee:             dbSale.Fee,
			TransactionDate: dbSale.TransactionDate,
		},
		BuyPrice:    dbSale.BuyPrice,
		BuyFee:      dbSale.BuyFee,
		IsNisa:      dbSale.IsNisa,
		StockLotID:  dbSale.StockLotID,
		OwnerID:     dbSale.OwnerID,
		OwnerName:   dbSale.OwnerName,
		StockCode:   dbSale.StockCode,
		StockName:   dbSale.StockName,
		MinimalUnit: dbSale.MinimalUnit,
	}
}

func convertRecordOwner(stockLotID, sellEventID *int64) (model.RecordOwner, error) {
	switch {
	case stockLotID != nil && sellEventID == nil:
		return model.LotOwner(*stockLotID), nil
	case stockLotID == nil && sellEventID != nil:
		return model.SaleOwner(*sellEventID), nil
	default:
		return model.RecordOwner{}, fmt.Errorf("record must reference exactly one of stock_lot_id or sell_event_id")
	}
}

func ConvertIncomeRecord(dbRecord dbModel.IncomeRecord) (model.IncomeRecord, error) {
	owner, err := convertRecordOwner(dbRecord.StockLotID, dbRecord.SellEventID)
	if err != nil {
		return model.IncomeRecord{}, fmt.Errorf("income record %d: %w", dbRecord.IncomeID, err)
	}
	return model.IncomeRecord{
		ID:          dbRecord.IncomeID,
		Owner:       owner,
		Amount:      dbRecord.Amount,
		PaymentDate: dbRecord.PaymentDate,
	}, nil
}

func ConvertBenefitRecord(dbRecord dbModel.BenefitRecord) (model.BenefitRecord, error) {
	owner, err := convertRecordOwner(dbRecord.StockLotID, dbRecord.SellEventID)
	if err != nil {
		return model.BenefitRecord{}, fmt.Errorf("benefit record %d: %w", dbRecord.BenefitID, err)
	}
	return model.BenefitRecord{
		ID:          dbRecord.BenefitID,
		Owner:       owner,
		Value:       dbRecord.Value,
		PaymentDate: dbRecord.PaymentDate,
	}, nil
}
