package stockManagerService

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ijikeman/stockmanager/internal/externalApi"
	"github.com/ijikeman/stockmanager/utils"
)

// RefreshStockQuotes pulls a fresh quote for every registered stock,
// persists it and warms the cache. Failures on individual stocks are
// logged and skipped so one delisted code does not starve the rest.
func (s *StockManagerService) RefreshStockQuotes(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.RefreshStockQuotes"

	slog.Debug("RefreshStockQuotes start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshStockQuotes finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	stocks, err := s.repo.ListStocks(ctx)
	if err != nil {
		slog.Error("got error from repo.ListStocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	refreshed := 0
	for _, stock := range stocks {
		quote, err := s.financeApi.GetQuote(ctx, stock.Code)
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, context.Canceled) {
				return err
			}
			if errors.Is(err, externalApi.ErrNotFound) {
				level = slog.LevelInfo
			}
			slog.Log(ctx, level, "skipping quote refresh for stock", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", stock.Code), slog.String("err", err.Error()))
			continue
		}
		if quote.Price == nil {
			slog.Warn("quote has no price", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", stock.Code))
			continue
		}

		if err := s.repo.UpdateStockQuote(ctx, stock.ID, *quote.Price, quote.Dividend, quote.EarningsDate); err != nil {
			slog.Error("got error from repo.UpdateStockQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", stock.Code), slog.String("err", err.Error()))
			continue
		}
		if err := s.cache.SetQuote(ctx, stock.Code, quote); err != nil {
			slog.Warn("failed to cache quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", stock.Code), slog.String("err", err.Error()))
		}
		refreshed++
	}

	slog.Info("quote refresh done", slog.String("rqID", rqID), slog.String("op", op), slog.Int("total", len(stocks)), slog.Int("refreshed", refreshed))
	return nil
}
