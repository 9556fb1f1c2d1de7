// Package xlsx renders ledger exports as Excel workbooks.
package xlsx

import (
	"fmt"
	"io"

	"github.com/imranbb88/chalet-manager/internal/domain"

	"github.com/xuri/excelize/v2"
)

// Sheet names, in workbook order.
const (
	SheetSummary  = "Summary"
	SheetMonthly  = "Monthly"
	SheetIncome   = "Income"
	SheetExpenses = "Expenses"
)

// Ledger is the content of one export.
type Ledger struct {
	Range    domain.DateRange
	Summary  *domain.SummaryData
	Income   []domain.Record
	Expenses []domain.Record
}

var recordHeader = []any{"Date", "Category", "Description", "Amount"}

// WriteLedger writes l as an XLSX workbook to w.
func WriteLedger(w io.Writer, l Ledger) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetMonthly, SheetIncome, SheetExpenses} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	summary := l.Summary
	if summary == nil {
		summary = domain.EmptySummary()
	}

	rows := [][]any{
		{"Period", l.Range.Start.String(), l.Range.End.String()},
		{"Total income", summary.TotalIncome.InexactFloat64()},
		{"Total expenses", summary.TotalExpenses.InexactFloat64()},
		{"Net profit", summary.NetProfit.InexactFloat64()},
	}
	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}
	if err := f.SetColStyle(SheetSummary, "A", bold); err != nil {
		return err
	}

	monthly := [][]any{{"Month", "Income", "Expenses", "Net"}}
	for _, b := range summary.MonthlyData {
		monthly = append(monthly, []any{
			b.Month,
			b.Income.InexactFloat64(),
			b.Expenses.InexactFloat64(),
			b.Income.Sub(b.Expenses).InexactFloat64(),
		})
	}
	if err := writeTable(f, SheetMonthly, monthly, bold); err != nil {
		return err
	}

	for sheet, recs := range map[string][]domain.Record{SheetIncome: l.Income, SheetExpenses: l.Expenses} {
		table := [][]any{recordHeader}
		for _, rec := range recs {
			table = append(table, []any{rec.Date.String(), rec.Category, rec.Description, rec.Amount.InexactFloat64()})
		}
		if err := writeTable(f, sheet, table, bold); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "C", "C", 40); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeTable(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	return f.SetRowStyle(sheet, 1, 1, headerStyle)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
