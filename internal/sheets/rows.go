// Package sheets lays out monthly reports as spreadsheet rows.
package sheets

import (
	"finledger/internal/core"
)

// Row sections.
const (
	SectionSummary = "summary"
	SectionIncome  = "income"
	SectionExpense = "expense"
)

// Header names the columns written by ReportRows.
var Header = []any{"Month", "User", "Section", "Category", "Income", "Expense", "Balance", "Transactions"}

// ReportRows returns one summary row followed by one row per category,
// income categories first. Amounts are fixed to two decimals so the sheet
// parses them as numbers.
func ReportRows(u core.User, r core.MonthlyReport) [][]any {
	month := core.YearMonth{Year: r.Year, Month: r.Month}.String()
	rows := make([][]any, 0, 1+len(r.IncomeByCategory)+len(r.ExpenseByCategory))
	rows = append(rows, []any{
		month, u.Username, SectionSummary, "",
		r.TotalIncome.Display(), r.TotalExpense.Display(), r.Balance.Display(), len(r.Transactions),
	})
	for _, c := range r.IncomeByCategory {
		rows = append(rows, []any{month, u.Username, SectionIncome, c.Name, c.Amount.Display(), "", "", ""})
	}
	for _, c := range r.ExpenseByCategory {
		rows = append(rows, []any{month, u.Username, SectionExpense, c.Name, "", c.Amount.Display(), "", ""})
	}
	return rows
}
