package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ijikeman/stockmanager/config"
	"github.com/ijikeman/stockmanager/utils"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
)

type Postgres struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewPostgres(cfg *config.Config, db *sqlx.DB) *Postgres {
	return &Postgres{db: db, cfg: cfg}
}

type txKey struct{}

// q returns the active transaction when the context carries one, the pool
// otherwise. Every query in this package goes through it so repository
// calls made inside WithinTransaction share that transaction.
func (r *Postgres) q(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return r.db
}

// WithinTransaction runs fn inside one postgres transaction. The
// transaction is carried in the context; nested calls reuse the open one.
func (r *Postgres) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.WithinTransaction"

	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		slog.Error("BeginTxx failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", rbErr.Error()))
			}
			return
		}
		if err = tx.Commit(); err != nil {
			slog.Error("commit failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

// convertErr maps driver-level failures onto the repository sentinels.
func convertErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return ErrAlreadyExists
	}
	return err
}

func logOp(ctx context.Context, op string, err *error) func() {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug(fmt.Sprintf("%s start", op), slog.String("rqID", rqID), slog.String("op", op))
	return func() {
		if *err != nil {
			slog.Error(fmt.Sprintf("%s failed", op), slog.String("rqID", rqID), slog.String("op", op), slog.String("err", (*err).Error()))
		} else {
			slog.Debug(fmt.Sprintf("%s completed", op), slog.String("rqID", rqID), slog.String("op", op))
		}
	}
}
