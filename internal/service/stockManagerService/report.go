package stockManagerService

import (
	"context"
	"log/slog"

	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/utils"
)

// GenerateProfitLossReport builds the full profit and loss picture
// (summary, per-lot holdings, per-sale breakdown) and renders it as an
// xlsx workbook.
func (s *StockManagerService) GenerateProfitLossReport(ctx context.Context, ownerID *int64) (fileBytes []byte, fileName string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.GenerateProfitLossReport"

	slog.Debug("GenerateProfitLossReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GenerateProfitLossReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	summary, err := s.ComputeProfitLoss(ctx, ownerID)
	if err != nil {
		return nil, "", err
	}

	holdings, err := s.lotProfitLosses(ctx, ownerID)
	if err != nil {
		return nil, "", err
	}

	sales, err := s.ClosedSaleBreakdown(ctx, ownerID)
	if err != nil {
		return nil, "", err
	}

	fileBytes, fileName, err = s.reportGen.GenerateProfitLossReport(ctx, model.ProfitLossReport{
		Summary:  summary,
		Holdings: holdings,
		Sales:    sales,
	})
	if err != nil {
		slog.Error("got error from reportGen.GenerateProfitLossReport", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	return fileBytes, fileName, nil
}
