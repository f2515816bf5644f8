package repository

import (
	"context"
	"errors"

	"github.com/ijikeman/stockmanager/internal/converter/dbConverter"
	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/model/dbModel"
	"github.com/jmoiron/sqlx"
)

func ownerColumns(owner model.RecordOwner) (stockLotID, sellEventID *int64, err error) {
	if lotID, ok := owner.LotID(); ok {
		return &lotID, nil, nil
	}
	if saleID, ok := owner.SellEventID(); ok {
		return nil, &saleID, nil
	}
	return nil, nil, errors.New("record owner is not set")
}

func (r *Postgres) CreateIncomeRecord(ctx context.Context, record model.IncomeRecord) (incomeID int64, err error) {
	defer logOp(ctx, "Postgres.CreateIncomeRecord", &err)()

	stockLotID, sellEventID, err := ownerColumns(record.Owner)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO income_records(stock_lot_id, sell_event_id, amount, payment_date)
		VALUES($1, $2, $3, $4)
		RETURNING income_id
	`

	err = r.q(ctx).QueryRowxContext(ctx, query, stockLotID, sellEventID, record.Amount, record.PaymentDate).Scan(&incomeID)
	if err != nil {
		return 0, convertErr(err)
	}

	return incomeID, nil
}

func (r *Postgres) CreateBenefitRecord(ctx context.Context, record model.BenefitRecord) (benefitID int64, err error) {
	defer logOp(ctx, "Postgres.CreateBenefitRecord", &err)()

	stockLotID, sellEventID, err := ownerColumns(record.Owner)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO benefit_records(stock_lot_id, sell_event_id, value, payment_date)
		VALUES($1, $2, $3, $4)
		RETURNING benefit_id
	`

	err = r.q(ctx).QueryRowxContext(ctx, query, stockLotID, sellEventID, record.Value, record.PaymentDate).Scan(&benefitID)
	if err != nil {
		return 0, convertErr(err)
	}

	return benefitID, nil
}

func (r *Postgres) findIncome(ctx context.Context, query string, arg int64) ([]model.IncomeRecord, error) {
	dbRecords := []dbModel.IncomeRecord{}
	err := sqlx.SelectContext(ctx, r.q(ctx), &dbRecords, query, arg)
	if err != nil {
		return nil, convertErr(err)
	}

	records := make([]model.IncomeRecord, 0, len(dbRecords))
	for _, dbRecord := range dbRecords {
		record, err := dbConverter.ConvertIncomeRecord(dbRecord)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

func (r *Postgres) FindIncomeByLot(ctx context.Context, lotID int64) (records []model.IncomeRecord, err error) {
	defer logOp(ctx, "Postgres.FindIncomeByLot", &err)()

	query := `
		SELECT income_id, stock_lot_id, sell_event_id, amount, payment_date
		FROM income_records
		WHERE stock_lot_id = $1
		ORDER BY payment_date, income_id
	`

	return r.findIncome(ctx, query, lotID)
}

func (r *Postgres) FindIncomeBySale(ctx context.Context, sellEventID int64) (records []model.IncomeRecord, err error) {
	defer logOp(ctx, "Postgres.FindIncomeBySale", &err)()

	query := `
		SELECT income_id, stock_lot_id, sell_event_id, amount, payment_date
		FROM income_records
		WHERE sell_event_id = $1
		ORDER BY payment_date, income_id
	`

	return r.findIncome(ctx, query, sellEventID)
}

func (r *Postgres) findBenefit(ctx context.Context, query string, arg int64) ([]model.BenefitRecord, error) {
	dbRecords := []dbModel.BenefitRecord{}
	err := sqlx.SelectContext(ctx, r.q(ctx), &dbRecords, query, arg)
	if err != nil {
		return nil, convertErr(err)
	}

	records := make([]model.BenefitRecord, 0, len(dbRecords))
	for _, dbRecord := range dbRecords {
		record, err := dbConverter.ConvertBenefitRecord(dbRecord)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

func (r *Postgres) FindBenefitByLot(ctx context.Context, lotID int64) (records []model.BenefitRecord, err error) {
	defer logOp(ctx, "Postgres.FindBenefitByLot", &err)()

	query := `
		SELECT benefit_id, stock_lot_id, sell_event_id, value, payment_date
		FROM benefit_records
		WHERE stock_lot_id = $1
		ORDER BY payment_date, benefit_id
	`

	return r.findBenefit(ctx, query, lotID)
}

func (r *Postgres) FindBenefitBySale(ctx context.Context, sellEventID int64) (records []model.BenefitRecord, err error) {
	defer logOp(ctx, "Postgres.FindBenefitBySale", &err)()

	query := `
		SELECT benefit_id, stock_lot_id, sell_event_id, value, payment_date
		FROM benefit_records
		WHERE sell_event_id = $1
		ORDER BY payment_date, benefit_id
	`

	return r.findBenefit(ctx, query, sellEventID)
}
