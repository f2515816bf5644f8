package repository

import (
	"context"

	"github.com/ijikeman/stockmanager/internal/converter/dbConverter"
	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/model/dbModel"
	"github.com/jmoiron/sqlx"
)

func (r *Postgres) CreateLot(ctx context.Context, ownerID, stockID int64, openUnits int) (lotID int64, err error) {
	defer logOp(ctx, "Postgres.CreateLot", &err)()

	query := `INSERT INTO stock_lots(owner_id, stock_id, open_units) VALUES($1, $2, $3) RETURNING stock_lot_id`

	err = r.q(ctx).QueryRowxContext(ctx, query, ownerID, stockID, openUnits).Scan(&lotID)
	if err != nil {
		return 0, convertErr(err)
	}

	return lotID, nil
}

func (r *Postgres) GetLot(ctx context.Context, lotID int64) (lot model.StockLot, err error) {
	defer logOp(ctx, "Postgres.GetLot", &err)()

	query := `SELECT stock_lot_id, owner_id, stock_id, open_units FROM stock_lots WHERE stock_lot_id = $1`

	dbLot := dbModel.StockLot{}
	err = sqlx.GetContext(ctx, r.q(ctx), &dbLot, query, lotID)
	if err != nil {
		return model.StockLot{}, convertErr(err)
	}

	return dbConverter.ConvertStockLot(dbLot), nil
}

// GetLotForUpdate locks the lot row for the rest of the transaction, so
// concurrent sells against one lot serialize.
func (r *Postgres) GetLotForUpdate(ctx context.Context, lotID int64) (lot model.StockLot, err error) {
	defer logOp(ctx, "Postgres.GetLotForUpdate", &err)()

	query := `SELECT stock_lot_id, owner_id, stock_id, open_units FROM stock_lots WHERE stock_lot_id = $1 FOR UPDATE`

	dbLot := dbModel.StockLot{}
	err = sqlx.GetContext(ctx, r.q(ctx), &dbLot, query, lotID)
	if err != nil {
		return model.StockLot{}, convertErr(err)
	}

	return dbConverter.ConvertStockLot(dbLot), nil
}

func (r *Postgres) FindLotByOwnerAndStock(ctx context.Context, ownerID, stockID int64) (lot model.StockLot, err error) {
	defer logOp(ctx, "Postgres.FindLotByOwnerAndStock", &err)()

	query := `SELECT stock_lot_id, owner_id, stock_id, open_units FROM stock_lots WHERE owner_id = $1 AND stock_id = $2`

	dbLot := dbModel.StockLot{}
	err = sqlx.GetContext(ctx, r.q(ctx), &dbLot, query, ownerID, stockID)
	if err != nil {
		return model.StockLot{}, convertErr(err)
	}

	return dbConverter.ConvertStockLot(dbLot), nil
}

func (r *Postgres) UpdateLotUnits(ctx context.Context, lotID int64, openUnits int) (err error) {
	defer logOp(ctx, "Postgres.UpdateLotUnits", &err)()

	query := `UPDATE stock_lots SET open_units = $1 WHERE stock_lot_id = $2`

	res, err := r.q(ctx).ExecContext(ctx, query, openUnits, lotID)
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

// ListLotDetails returns lots joined with owner and stock. ownerID narrows
// to one owner; openOnly skips lots already sold down to zero units.
func (r *Postgres) ListLotDetails(ctx context.Context, ownerID *int64, openOnly bool) (holdings []model.Holding, err error) {
	defer logOp(ctx, "Postgres.ListLotDetails", &err)()

	query := `
		SELECT
			l.stock_lot_id, l.open_units,
			o.owner_id, o.name AS owner_name,
			s.stock_id, s.code AS stock_code, s.name AS stock_name,
			s.current_price, s.dividend, s.minimal_unit, s.earnings_date, s.sector
		FROM stock_lots l
		JOIN owners o USING(owner_id)
		JOIN stocks s USING(stock_id)
		WHERE ($1::bigint IS NULL OR l.owner_id = $1)
		AND (NOT $2::boolean OR l.open_units > 0)
		ORDER BY l.stock_lot_id
	`

	dbLots := []dbModel.LotDetail{}
	err = sqlx.SelectContext(ctx, r.q(ctx), &dbLots, query, ownerID, openOnly)
	if err != nil {
		return nil, convertErr(err)
	}

	holdings = make([]model.Holding, 0, len(dbLots))
	for _, dbLot := range dbLots {
		holdings = append(holdings, dbConverter.ConvertLotDetail(dbLot))
	}

	return holdings, nil
}
