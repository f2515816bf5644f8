package repository

import (
	"context"

	"github.com/ijikeman/stockmanager/internal/converter/dbConverter"
	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/model/dbModel"
	"github.com/jmoiron/sqlx"
)

func (r *Postgres) CreateBuyEvent(ctx context.Context, event model.BuyEvent) (buyEventID int64, err error) {
	defer logOp(ctx, "Postgres.CreateBuyEvent", &err)()

	query := `
		INSERT INTO buy_events(stock_lot_id, units, price, fee, is_nisa, transaction_date)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING buy_event_id
	`

	err = r.q(ctx).QueryRowxContext(
		ctx,
		query,
		event.StockLotID,
		event.Units,
		event.Price,
		event.Fee,
		event.IsNisa,
		event.TransactionDate,
	).Scan(&buyEventID)
	if err != nil {
		return 0, convertErr(err)
	}

	return buyEventID, nil
}

// FindBuyPositionsByLot returns the lot's buy events oldest first, each
// with the units not yet consumed by sell events. The id tiebreak keeps
// the walk deterministic for same-day purchases.
func (r *Postgres) FindBuyPositionsByLot(ctx context.Context, lotID int64) (positions []model.BuyPosition, err error) {
	defer logOp(ctx, "Postgres.FindBuyPositionsByLot", &err)()

	query := `
		SELECT
			b.buy_event_id, b.stock_lot_id, b.units, b.price, b.fee, b.is_nisa, b.transaction_date,
			COALESCE(SUM(se.units), 0) AS sold_units
		FROM buy_events b
		LEFT JOIN sell_events se USING(buy_event_id)
		WHERE b.stock_lot_id = $1
		GROUP BY b.buy_event_id
		ORDER BY b.transaction_date, b.buy_event_id
	`

	dbPositions := []dbModel.BuyPosition{}
	err = sqlx.SelectContext(ctx, r.q(ctx), &dbPositions, query, lotID)
	if err != nil {
		return nil, convertErr(err)
	}

	positions = make([]model.BuyPosition, 0, len(dbPositions))
	for _, dbPos := range dbPositions {
		positions = append(positions, dbConverter.ConvertBuyPosition(dbPos))
	}

	return positions, nil
}

func (r *Postgres) FindBuyEventsByLot(ctx context.Context, lotID int64) (events []model.BuyEvent, err error) {
	defer logOp(ctx, "Postgres.FindBuyEventsByLot", &err)()

	query := `
		SELECT buy_event_id, stock_lot_id, units, price, fee, is_nisa, transaction_date
		FROM buy_events
		WHERE stock_lot_id = $1
		ORDER BY transaction_date, buy_event_id
	`

	dbEvents := []dbModel.BuyEvent{}
	err = sqlx.SelectContext(ctx, r.q(ctx), &dbEvents, query, lotID)
	if err != nil {
		return nil, convertErr(err)
	}

	events = make([]model.BuyEvent, 0, len(dbEvents))
	for _, dbEvent := range dbEvents {
		events = append(events, dbConverter.ConvertBuyEvent(dbEvent))
	}

	return events, nil
}

func (r *Postgres) CreateSellEvent(ctx context.Context, event model.SellEvent) (sellEventID int64, err error) {
	defer logOp(ctx, "Postgres.CreateSellEvent", &err)()

	query := `
		INSERT INTO sell_events(buy_event_id, units, price, fee, transaction_date)
		VALUES($1, $2, $3, $4, $5)
		RETURNING sell_event_id
	`

	err = r.q(ctx).QueryRowxContext(
		ctx,
		query,
		event.BuyEventID,
		event.Units,
		event.Price,
		event.Fee,
		event.TransactionDate,
	).Scan(&sellEventID)
	if err != nil {
		return 0, convertErr(err)
	}

	return sellEventID, nil
}

func (r *Postgres) FindSellEventsByBuyEvent(ctx context.Context, buyEventID int64) (events []model.SellEvent, err error) {
	defer logOp(ctx, "Postgres.FindSellEventsByBuyEvent", &err)()

	query := `
		SELECT sell_event_id, buy_event_id, units, price, fee, transaction_date
		FROM sell_events
		WHERE buy_event_id = $1
		ORDER BY transaction_date, sell_event_id
	`

	dbEvents := []dbModel.SellEvent{}
	err = sqlx.SelectContext(ctx, r.q(ctx), &dbEvents, query, buyEventID)
	if err != nil {
		return nil, convertErr(err)
	}

	events = make([]model.SellEvent, 0, len(dbEvents))
	for _, dbEvent := range dbEvents {
		events = append(events, dbConverter.ConvertSellEvent(dbEvent))
	}

	return events, nil
}

// ListSaleDetails returns every sell event joined with its buy event, lot,
// owner and stock, optionally narrowed to one owner.
func (r *Postgres) ListSaleDetails(ctx context.Context, ownerID *int64) (sales []model.SaleDetail, err error) {
	defer logOp(ctx, "Postgres.ListSaleDetails", &err)()

	query := `
		SELECT
			se.sell_event_id, se.buy_event_id, se.units, se.price, se.fee, se.transaction_date,
			b.price AS buy_price, b.fee AS buy_fee, b.is_nisa,
			l.stock_lot_id,
			o.owner_id, o.name AS owner_name,
			s.code AS stock_code, s.name AS stock_name, s.minimal_unit
		FROM sell_events se
		JOIN buy_events b USING(buy_event_id)
		JOIN stock_lots l ON l.stock_lot_id = b.stock_lot_id
		JOIN owners o USING(owner_id)
		JOIN stocks s ON s.stock_id = l.stock_id
		WHERE ($1::bigint IS NULL OR o.owner_id = $1)
		ORDER BY se.transaction_date, se.sell_event_id
	`

	dbSales := []dbModel.SaleDetail{}
	err = sqlx.SelectContext(ctx, r.q(ctx), &dbSales, query, ownerID)
	if err != nil {
		return nil, convertErr(err)
	}

	sales = make([]model.SaleDetail, 0, len(dbSales))
	for _, dbSale := range dbSales {
		sales = append(sales, dbConverter.ConvertSaleDetail(dbSale))
	}

	return sales, nil
}
