package tools

import (
	"strings"
	"time"
)

// Summary is the summary.today result payload.
type Summary struct {
	Date         string             `json:"date"`
	Transactions int                `json:"transactions"`
	TotalSpent   float64            `json:"total_spent"`
	Categories   map[string]float64 `json:"categories"`
	DailyBudget  float64            `json:"daily_budget,omitempty"`
	Variance     float64            `json:"variance,omitempty"`
	Status       string             `json:"status,omitempty"`
}

// buildSummary aggregates today's normalised spend, excluding credits, and
// compares it against an optional daily budget.
func buildSummary(txs []NormalisedTransaction, now time.Time, budget float64) Summary {
	today := now.Format("2006-01-02")

	s := Summary{
		Date:       today,
		Categories: map[string]float64{},
	}

	for _, t := range txs {
		if t.Date != today || t.Amount >= 0 {
			continue
		}
		spent := -t.Amount
		s.Transactions++
		s.TotalSpent += spent
		s.Categories[t.Category] += spent
	}

	if budget > 0 {
		s.DailyBudget = budget
		s.Variance = budget - s.TotalSpent
		if s.TotalSpent > budget {
			s.Status = "over"
		} else {
			s.Status = "under"
		}
	}

	return s
}

// Projection is the projection.month result payload.
type Projection struct {
	Month            string  `json:"month"`
	CurrentSpend     float64 `json:"current_spend"`
	ProjectedSpend   float64 `json:"projected_spend"`
	Budget           float64 `json:"budget,omitempty"`
	Variance         float64 `json:"variance,omitempty"`
	Pace             string  `json:"pace,omitempty"`
	DaysRemaining    int     `json:"days_remaining"`
	Percentage       float64 `json:"percentage,omitempty"`
	MonthEndBalance  float64 `json:"month_end_balance,omitempty"`
}

// buildProjection extrapolates month-end spend from spend-to-date, using
// the actual number of days in the current month rather than a fixed
// constant.
func buildProjection(txs []NormalisedTransaction, now time.Time, budget, startingBalance float64, haveStartingBalance bool) Projection {
	monthStr := now.Format("2006-01")
	daysInMonth := daysInMonth(now)
	dayOfMonth := now.Day()

	var spend float64
	for _, t := range txs {
		if t.Amount >= 0 {
			continue
		}
		if !strings.HasPrefix(t.Date, monthStr) {
			continue
		}
		spend += -t.Amount
	}

	divisor := dayOfMonth
	if divisor < 1 {
		divisor = 1
	}
	projected := spend * float64(daysInMonth) / float64(divisor)

	p := Projection{
		Month:          monthStr,
		CurrentSpend:   spend,
		ProjectedSpend: projected,
		DaysRemaining:  daysInMonth - dayOfMonth,
	}

	if budget > 0 {
		p.Budget = budget
		p.Variance = budget - projected
		p.Percentage = projected / budget * 100
		if projected > budget {
			p.Pace = "over"
		} else {
			p.Pace = "under"
		}
	}

	if haveStartingBalance {
		p.MonthEndBalance = startingBalance - projected
	}

	return p
}

func daysInMonth(t time.Time) int {
	firstOfNextMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	lastOfMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}
