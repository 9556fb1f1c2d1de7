// Package domain defines the core business entities for Chalet Manager.
// These models are independent of the backing store and represent the
// canonical data structures used throughout the service.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Kinds & categories
// ============================================================

// Kind tags a record as income or expense.
type Kind string

const (
	KindIncome  Kind = "INCOME"
	KindExpense Kind = "EXPENSE"
)

// Collection returns the name of the table holding records of this kind.
func (k Kind) Collection() string {
	if k == KindExpense {
		return "expenses"
	}
	return "income"
}

// ParseKind accepts "income"/"expense(s)" in any case.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INCOME":
		return KindIncome, true
	case "EXPENSE", "EXPENSES":
		return KindExpense, true
	}
	return "", false
}

var incomeCategories = []string{"RENTAL", "SERVICES", "OTHER"}

var expenseCategories = []string{"MAINTENANCE", "UTILITIES", "SUPPLIES", "CLEANING", "INSURANCE", "OTHER"}

// Categories returns the valid categories for the kind.
func (k Kind) Categories() []string {
	if k == KindExpense {
		return append([]string(nil), expenseCategories...)
	}
	return append([]string(nil), incomeCategories...)
}

// NormalizeCategory upper-cases the category and maps the legacy
// SERVICE income category to SERVICES. Returns false when the category
// is not valid for the kind.
func NormalizeCategory(k Kind, category string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(category))
	if k == KindIncome && c == "SERVICE" {
		c = "SERVICES"
	}
	for _, valid := range k.Categories() {
		if c == valid {
			return c, true
		}
	}
	return c, false
}

// ============================================================
// Records
// ============================================================

// Record is a persisted income or expense row. Both collections share
// the same shape; only the category set differs.
type Record struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	Date        Date            `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
}

// Income is a row of the income collection.
type Income = Record

// Expense is a row of the expenses collection.
type Expense = Record

// Transaction is a record tagged with its kind. Derived, never stored.
type Transaction struct {
	Record
	Kind Kind `json:"kind"`
}

// RecordInput is the entry form payload for a new record.
type RecordInput struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"max=500"`
	Category    string `json:"category" validate:"required"`
}

// ============================================================
// Reporting
// ============================================================

// MonthBucket holds the totals of one calendar month.
type MonthBucket struct {
	Month    string          `json:"month"` // YYYY-MM
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// SummaryData is the derived dashboard summary. Recomputed on every fetch.
type SummaryData struct {
	TotalIncome        decimal.Decimal `json:"totalIncome"`
	TotalExpenses      decimal.Decimal `json:"totalExpenses"`
	NetProfit          decimal.Decimal `json:"netProfit"`
	RecentTransactions []Transaction   `json:"recentTransactions"`
	MonthlyData        []MonthBucket   `json:"monthlyData"`
}

// EmptySummary returns an all-zero summary with no buckets.
func EmptySummary() *SummaryData {
	return &SummaryData{
		TotalIncome:        decimal.Zero,
		TotalExpenses:      decimal.Zero,
		NetProfit:          decimal.Zero,
		RecentTransactions: []Transaction{},
		MonthlyData:        []MonthBucket{},
	}
}

// DashboardView is what the dashboard route renders.
type DashboardView struct {
	Range   DateRange    `json:"range"`
	Summary *SummaryData `json:"summary"`
	Stale   bool         `json:"stale"`
	Warning string       `json:"warning,omitempty"`
}

// LedgerView is what the income and expenses routes render.
type LedgerView struct {
	Kind       Kind            `json:"kind"`
	Range      DateRange       `json:"range"`
	Records    []Record        `json:"records"`
	Total      decimal.Decimal `json:"total"`
	Categories []string        `json:"categories"`
}

// ============================================================
// Auth
// ============================================================

// Credentials is the login/signup form payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Session is an authenticated session issued by the auth provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
}

// SuccessResponse is a generic message payload.
type SuccessResponse struct {
	Message string `json:"message"`
}

// SampleDataRequest configures bulk sample-data generation.
type SampleDataRequest struct {
	Months   int `json:"months"`
	PerMonth int `json:"perMonth"`
}

// SampleDataResponse reports what was generated.
type SampleDataResponse struct {
	Income   int `json:"income"`
	Expenses int `json:"expenses"`
}
