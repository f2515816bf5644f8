package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/utils"
	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02"

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) GenerateProfitLossReport(ctx context.Context, report model.ProfitLossReport) (fileBytes []byte, fileName string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.GenerateProfitLossReport"

	slog.Debug("GenerateProfitLossReport start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillSummarySheet(f, report.Summary); err != nil {
		return nil, "", err
	}
	if err := g.fillHoldingsSheet(f, report.Holdings); err != nil {
		return nil, "", err
	}
	if err := g.fillSalesSheet(f, report.Sales); err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("GenerateProfitLossReport completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), fmt.Sprintf("profit_loss_%s.xlsx", time.Now().Format("20060102")), nil
}

func (g *XLSXGenerator) headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) fillSummarySheet(f *excelize.File, summary model.ProfitLossSummary) error {
	sheetName := "Summary"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "B1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Profit / Loss (after tax)")

	styleID, err := g.headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "realized")
	_ = f.SetCellValue(sheetName, "B2", summary.Realized.InexactFloat64())
	_ = f.SetCellStr(sheetName, "A3", "unrealized")
	_ = f.SetCellValue(sheetName, "B3", summary.Unrealized.InexactFloat64())
	_ = f.SetCellStr(sheetName, "A4", "income")
	_ = f.SetCellValue(sheetName, "B4", summary.Income.InexactFloat64())
	_ = f.SetCellStr(sheetName, "A5", "total")
	_ = f.SetCellValue(sheetName, "B5", summary.Total.InexactFloat64())

	return nil
}

func (g *XLSXGenerator) fillHoldingsSheet(f *excelize.File, holdings []model.LotProfitLoss) error {
	sheetName := "Holdings"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "J1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Open lots")

	styleID, err := g.headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "owner")
	_ = f.SetCellStr(sheetName, "B2", "code")
	_ = f.SetCellStr(sheetName, "C2", "name")
	_ = f.SetCellStr(sheetName, "D2", "units")
	_ = f.SetCellStr(sheetName, "E2", "cost basis")
	_ = f.SetCellStr(sheetName, "F2", "current price")
	_ = f.SetCellStr(sheetName, "G2", "NISA")
	_ = f.SetCellStr(sheetName, "H2", "unrealized P/L")
	_ = f.SetCellStr(sheetName, "I2", "income")
	_ = f.SetCellStr(sheetName, "J2", "benefit")

	for i, lot := range holdings {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), lot.OwnerName)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), lot.StockCode)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), lot.StockName)
		_ = f.SetCellInt(sheetName, fmt.Sprintf("D%d", row), int64(lot.OpenUnits))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), lot.CostBasis.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), lot.CurrentPrice.InexactFloat64())
		_ = f.SetCellBool(sheetName, fmt.Sprintf("G%d", row), lot.IsNisa)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), lot.UnrealizedPL.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), lot.IncomeTotal.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), lot.BenefitTotal.InexactFloat64())
	}

	return nil
}

func (g *XLSXGenerator) fillSalesSheet(f *excelize.File, sales []model.SaleRecord) error {
	sheetName := "Closed Sales"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "K1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Closed sales")

	styleID, err := g.headerStyle(f, "#f9cb9c")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "owner")
	_ = f.SetCellStr(sheetName, "B2", "code")
	_ = f.SetCellStr(sheetName, "C2", "name")
	_ = f.SetCellStr(sheetName, "D2", "units")
	_ = f.SetCellStr(sheetName, "E2", "buy price")
	_ = f.SetCellStr(sheetName, "F2", "sell price")
	_ = f.SetCellStr(sheetName, "G2", "NISA")
	_ = f.SetCellStr(sheetName, "H2", "realized P/L")
	_ = f.SetCellStr(sheetName, "I2", "income")
	_ = f.SetCellStr(sheetName, "J2", "benefit")
	_ = f.SetCellStr(sheetName, "K2", "date")

	for i, sale := range sales {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), sale.OwnerName)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), sale.StockCode)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), sale.StockName)
		_ = f.SetCellInt(sheetName, fmt.Sprintf("D%d", row), int64(sale.SellEvent.Units))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), sale.BuyPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), sale.SellEvent.Price.InexactFloat64())
		_ = f.SetCellBool(sheetName, fmt.Sprintf("G%d", row), sale.IsNisa)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), sale.RealizedPL.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), sale.IncomeTotal.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), sale.BenefitTotal.InexactFloat64())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("K%d", row), sale.TransactionDate.Format(dateLayout))
	}

	return nil
}
