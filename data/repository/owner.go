package repository

import (
	"context"

	"github.com/ijikeman/stockmanager/internal/converter/dbConverter"
	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/model/dbModel"
	"github.com/jmoiron/sqlx"
)

func (r *Postgres) CreateOwner(ctx context.Context, name string) (ownerID int64, err error) {
	defer logOp(ctx, "Postgres.CreateOwner", &err)()

	query := `INSERT INTO owners(name) VALUES($1) RETURNING owner_id`

	err = r.q(ctx).QueryRowxContext(ctx, query, name).Scan(&ownerID)
	if err != nil {
		return 0, convertErr(err)
	}

	return ownerID, nil
}

func (r *Postgres) GetOwner(ctx context.Context, ownerID int64) (owner model.Owner, err error) {
	defer logOp(ctx, "Postgres.GetOwner", &err)()

	query := `SELECT owner_id, name FROM owners WHERE owner_id = $1`

	dbOwner := dbModel.Owner{}
	err = sqlx.GetContext(ctx, r.q(ctx), &dbOwner, query, ownerID)
	if err != nil {
		return model.Owner{}, convertErr(err)
	}

	return dbConverter.ConvertOwner(dbOwner), nil
}

func (r *Postgres) ListOwners(ctx context.Context) (owners []model.Owner, err error) {
	defer logOp(ctx, "Postgres.ListOwners", &err)()

	query := `SELECT owner_id, name FROM owners ORDER BY owner_id`

	dbOwners := []dbModel.Owner{}
	err = sqlx.SelectContext(ctx, r.q(ctx), &dbOwners, query)
	if err != nil {
		return nil, convertErr(err)
	}

	owners = make([]model.Owner, 0, len(dbOwners))
	for _, dbOwner := range dbOwners {
		owners = append(owners, dbConverter.ConvertOwner(dbOwner))
	}

	return owners, nil
}
