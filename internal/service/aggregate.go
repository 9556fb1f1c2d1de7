package service

import (
	"sort"

	"github.com/imranbb88/chalet-manager/internal/domain"

	"github.com/shopspring/decimal"
)

// RecentLimit caps the recent-activity feed.
const RecentLimit = 10

// AggregateResult is the summary plus the records that matched no month
// bucket. Dropped records still count towards the totals.
type AggregateResult struct {
	Summary         *domain.SummaryData
	DroppedIncome   int
	DroppedExpenses int
}

// Aggregate turns the fetched income and expense records into the
// dashboard summary for r. It never looks at the store: callers must only
// invoke it once both collections have been fetched.
func Aggregate(income []domain.Income, expenses []domain.Expense, r domain.DateRange) AggregateResult {
	s := &domain.SummaryData{
		TotalIncome:   sum(income),
		TotalExpenses: sum(expenses),
	}
	s.NetProfit = s.TotalIncome.Sub(s.TotalExpenses)
	s.RecentTransactions = recent(income, expenses, RecentLimit)

	months := r.Months()
	index := make(map[string]int, len(months))
	buckets := make([]domain.MonthBucket, len(months))
	for i, key := range months {
		index[key] = i
		buckets[i] = domain.MonthBucket{Month: key, Income: decimal.Zero, Expenses: decimal.Zero}
	}

	res := AggregateResult{Summary: s}
	for _, rec := range income {
		i, ok := index[rec.Date.MonthKey()]
		if !ok {
			res.DroppedIncome++
			continue
		}
		buckets[i].Income = buckets[i].Income.Add(rec.Amount)
	}
	for _, rec := range expenses {
		i, ok := index[rec.Date.MonthKey()]
		if !ok {
			res.DroppedExpenses++
			continue
		}
		buckets[i].Expenses = buckets[i].Expenses.Add(rec.Amount)
	}

	sort.SliceStable(buckets, func(a, b int) bool { return buckets[a].Month < buckets[b].Month })
	s.MonthlyData = buckets
	return res
}

func sum(records []domain.Record) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(rec.Amount)
	}
	return total
}

// recent tags, merges and sorts both collections newest first, keeping
// the first limit entries.
func recent(income []domain.Income, expenses []domain.Expense, limit int) []domain.Transaction {
	all := make([]domain.Transaction, 0, len(income)+len(expenses))
	for _, rec := range income {
		all = append(all, domain.Transaction{Record: rec, Kind: domain.KindIncome})
	}
	for _, rec := range expenses {
		all = append(all, domain.Transaction{Record: rec, Kind: domain.KindExpense})
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].Date.After(all[b].Date) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}
