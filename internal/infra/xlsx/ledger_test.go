package xlsx_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/infra/xlsx"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestWriteLedger(t *testing.T) {
	r := domain.DateRange{Start: domain.NewDate(2024, time.January, 1), End: domain.NewDate(2024, time.January, 31)}
	income := []domain.Record{{Date: domain.NewDate(2024, time.January, 5), Amount: decimal.NewFromInt(1000), Description: "Week stay", Category: "RENTAL"}}
	expenses := []domain.Record{{Date: domain.NewDate(2024, time.January, 10), Amount: decimal.NewFromInt(400), Description: "Plumbing", Category: "MAINTENANCE"}}
	summary := &domain.SummaryData{
		TotalIncome:   decimal.NewFromInt(1000),
		TotalExpenses: decimal.NewFromInt(400),
		NetProfit:     decimal.NewFromInt(600),
		MonthlyData:   []domain.MonthBucket{{Month: "2024-01", Income: decimal.NewFromInt(1000), Expenses: decimal.NewFromInt(400)}},
	}

	var buf bytes.Buffer
	if err := xlsx.WriteLedger(&buf, xlsx.Ledger{Range: r, Summary: summary, Income: income, Expenses: expenses}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{xlsx.SheetSummary, xlsx.SheetMonthly, xlsx.SheetIncome, xlsx.SheetExpenses}
	if len(sheets) != len(want) {
		t.Fatalf("expected sheets %v, got %v", want, sheets)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Errorf("sheet %d: expected %s, got %s", i, want[i], sheets[i])
		}
	}

	if v, _ := f.GetCellValue(xlsx.SheetSummary, "B4"); v != "600" {
		t.Errorf("expected net profit 600, got %q", v)
	}
	if v, _ := f.GetCellValue(xlsx.SheetMonthly, "D2"); v != "600" {
		t.Errorf("expected monthly net 600, got %q", v)
	}

	rows, err := f.GetRows(xlsx.SheetExpenses)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if rows[1][0] != "2024-01-10" || rows[1][1] != "MAINTENANCE" || rows[1][3] != "400" {
		t.Errorf("unexpected expense row %v", rows[1])
	}
}

func TestWriteLedger_EmptyLedger(t *testing.T) {
	r := domain.DateRange{Start: domain.NewDate(2024, time.January, 1), End: domain.NewDate(2024, time.January, 1)}

	var buf bytes.Buffer
	if err := xlsx.WriteLedger(&buf, xlsx.Ledger{Range: r}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	rows, _ := f.GetRows(xlsx.SheetIncome)
	if len(rows) != 1 {
		t.Errorf("expected header only, got %d rows", len(rows))
	}
}
