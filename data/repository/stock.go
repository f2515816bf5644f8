package repository

import (
	"context"
	"time"

	"github.com/ijikeman/stockmanager/internal/converter/dbConverter"
	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/model/dbModel"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func (r *Postgres) CreateStock(ctx context.Context, stock model.Stock) (stockID int64, err error) {
	defer logOp(ctx, "Postgres.CreateStock", &err)()

	query := `
		INSERT INTO stocks(code, name, current_price, dividend, minimal_unit, earnings_date, sector)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		RETURNING stock_id
	`

	err = r.q(ctx).QueryRowxContext(
		ctx,
		query,
		stock.Code,
		stock.Name,
		stock.CurrentPrice,
		stock.Dividend,
		stock.MinimalUnit,
		stock.EarningsDate,
		stock.Sector,
	).Scan(&stockID)
	if err != nil {
		return 0, convertErr(err)
	}

	return stockID, nil
}

func (r *Postgres) GetStock(ctx context.Context, stockID int64) (stock model.Stock, err error) {
	defer logOp(ctx, "Postgres.GetStock", &err)()

	query := `
		SELECT stock_id, code, name, current_price, dividend, minimal_unit, earnings_date, sector
		FROM stocks
		WHERE stock_id = $1
	`

	dbStock := dbModel.Stock{}
	err = sqlx.GetContext(ctx, r.q(ctx), &dbStock, query, stockID)
	if err != nil {
		return model.Stock{}, convertErr(err)
	}

	return dbConverter.ConvertStock(dbStock), nil
}

func (r *Postgres) GetStockByCode(ctx context.Context, code string) (stock model.Stock, err error) {
	defer logOp(ctx, "Postgres.GetStockByCode", &err)()

	query := `
		SELECT stock_id, code, name, current_price, dividend, minimal_unit, earnings_date, sector
		FROM stocks
		WHERE code = $1
	`

	dbStock := dbModel.Stock{}
	err = sqlx.GetContext(ctx, r.q(ctx), &dbStock, query, code)
	if err != nil {
		return model.Stock{}, convertErr(err)
	}

	return dbConverter.ConvertStock(dbStock), nil
}

func (r *Postgres) ListStocks(ctx context.Context) (stocks []model.Stock, err error) {
	defer logOp(ctx, "Postgres.ListStocks", &err)()

	query := `
		SELECT stock_id, code, name, current_price, dividend, minimal_unit, earnings_date, sector
		FROM stocks
		ORDER BY code
	`

	dbStocks := []dbModel.Stock{}
	err = sqlx.SelectContext(ctx, r.q(ctx), &dbStocks, query)
	if err != nil {
		return nil, convertErr(err)
	}

	stocks = make([]model.Stock, 0, len(dbStocks))
	for _, dbStock := range dbStocks {
		stocks = append(stocks, dbConverter.ConvertStock(dbStock))
	}

	return stocks, nil
}

// UpdateStockQuote refreshes the externally sourced fields. Nil dividend or
// earnings date leaves the stored value untouched.
func (r *Postgres) UpdateStockQuote(ctx context.Context, stockID int64, price decimal.Decimal, dividend *decimal.Decimal, earningsDate *time.Time) (err error) {
	defer logOp(ctx, "Postgres.UpdateStockQuote", &err)()

	query := `
		UPDATE stocks
		SET
			current_price = $1,
			dividend = COALESCE($2, dividend),
			earnings_date = COALESCE($3, earnings_date)
		WHERE stock_id = $4
	`

	res, err := r.q(ctx).ExecContext(ctx, query, price, dividend, earningsDate, stockID)
	if err != nil {
		return convertErr(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
