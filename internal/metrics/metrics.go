// Package metrics derives the raw underwriting signals from the bureau
// document and the normalized ledger. Every function is pure.
package metrics

import (
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/opensource-finance/underwrite/internal/domain"
	"github.com/opensource-finance/underwrite/internal/ledger"
	"github.com/opensource-finance/underwrite/internal/patterns"
)

// Year is the 365.25-day year used for every tenure and recency figure.
const Year = time.Duration(365.25 * 24 * float64(time.Hour))

const (
	monthSpan         = 30 * 24 * time.Hour
	housingGapDays    = 35
	minFallbackMonths = 2
	wasteShare        = 0.2
	simpleIncomeMonth = 24
)

var (
	lateFeePattern  = regexp.MustCompile(`(?i)late fee`)
	majorPattern    = regexp.MustCompile(`(?i)charge[- ]off|repossession|bankruptcy`)
	salaryPattern   = regexp.MustCompile(`(?i)salary`)
	discretionaries = map[string]bool{"travel": true, "shops": true, "entertainment": true}
)

// CreditScore is the highest numeric offer score, or 0 when none is numeric.
func CreditScore(prefi *domain.Prefi) float64 {
	if prefi == nil {
		return 0
	}
	best, found := 0.0, false
	for _, o := range prefi.Offers {
		if !o.Score.Valid {
			continue
		}
		if !found || o.Score.Value > best {
			best, found = o.Score.Value, true
		}
	}
	return best
}

// DTI is the bureau debt-to-income ratio, or 0.
func DTI(prefi *domain.Prefi) float64 {
	return prefi.DebtToIncome()
}

// IsLateEvent reports a bank fee or a late-fee merchant.
func IsLateEvent(tx *domain.Transaction) bool {
	return tx.HasCategory("bank fees") || lateFeePattern.MatchString(tx.MerchantName)
}

// IsMajorEvent reports a charge-off, repossession or bankruptcy.
func IsMajorEvent(tx *domain.Transaction) bool {
	return majorPattern.MatchString(tx.OriginalDescription)
}

// Delinquency scans every transaction for late and major events. A fee that is
// also a major event is two events: it counts twice toward the two-year count.
// Undated events still set the major flag but take no part in recency or the
// two-year count.
func Delinquency(l *ledger.Ledger, asOf time.Time) domain.DelinquencyInfo {
	info := domain.DelinquencyInfo{YearsSinceLastLate: math.Inf(1)}
	windowStart := asOf.Add(-2 * Year)

	var last time.Time
	for i := range l.Transactions {
		tx := &l.Transactions[i]

		events := 0
		if IsLateEvent(tx) {
			events++
		}
		if IsMajorEvent(tx) {
			info.HasMajorDelinquency = true
			events++
		}
		if events == 0 || !tx.HasDate() {
			continue
		}

		if last.IsZero() || tx.Date.After(last) {
			last = tx.Date
		}
		if !tx.Date.Before(windowStart) {
			info.LateCountLast2Years += events
		}
	}

	if !last.IsZero() {
		info.YearsSinceLastLate = float64(asOf.Sub(last)) / float64(Year)
	}
	info.MultipleRecentLates = info.LateCountLast2Years > 2
	info.OneMajorDelinquency = info.HasMajorDelinquency

	return info
}

// IsPayroll reports a payroll category or a salary detail.
func IsPayroll(tx *domain.Transaction) bool {
	return tx.HasCategory("payroll") || salaryPattern.MatchString(tx.DetailedCategory)
}

// EmploymentYears is the span between the first and last dated payroll
// deposit, or 0 with fewer than two.
func EmploymentYears(l *ledger.Ledger) float64 {
	var first, last time.Time
	n := 0
	for i := range l.Transactions {
		tx := &l.Transactions[i]
		if !IsPayroll(tx) || !tx.HasDate() {
			continue
		}
		if n == 0 || tx.Date.Before(first) {
			first = tx.Date
		}
		if n == 0 || tx.Date.After(last) {
			last = tx.Date
		}
		n++
	}
	if n < 2 {
		return 0
	}
	return float64(last.Sub(first)) / float64(Year)
}

// SelfEmployed reports income-classified credit activity outside payroll.
func SelfEmployed(l *ledger.Ledger) bool {
	for i := range l.Transactions {
		tx := &l.Transactions[i]
		if tx.PrimaryCategory == "income" && !tx.HasCategory("payroll") {
			return true
		}
	}
	return false
}

// Retired reports declared retirement assets with no income activity.
func Retired(prefi *domain.Prefi, l *ledger.Ledger) bool {
	if prefi.RetirementAssets() <= 0 {
		return false
	}
	for i := range l.Transactions {
		if l.Transactions[i].PrimaryCategory == "income" {
			return false
		}
	}
	return true
}

// Housing counts rent and mortgage payments and the gaps of more than 35
// days between consecutive dated ones.
func Housing(l *ledger.Ledger) domain.HousingStability {
	var h domain.HousingStability
	var dates []time.Time
	for i := range l.Transactions {
		tx := &l.Transactions[i]
		if !tx.HasCategory("rent") && !tx.HasCategory("mortgage") {
			continue
		}
		h.Payments++
		if tx.HasDate() {
			dates = append(dates, tx.Date)
		}
	}

	sort.Slice(dates, func(a, b int) bool { return dates[a].Before(dates[b]) })
	for i := 1; i < len(dates); i++ {
		if dates[i].Sub(dates[i-1]).Hours()/24 > housingGapDays {
			h.Gaps++
		}
	}
	return h
}

// AverageMonthlyIncome prefers recurring patterns scaled to a month. Without
// any, it falls back to total income over the covered months once at least
// two months of history exist. Otherwise 0.
func AverageMonthlyIncome(l *ledger.Ledger) float64 {
	if len(l.Dates) < 2 {
		return 0
	}

	if total := patterns.MonthlyTotal(patterns.IdentifyRecurringPatterns(l.Income)); total > 0 {
		return total
	}

	months := float64(l.Dates[len(l.Dates)-1].Sub(l.Dates[0])) / float64(monthSpan)
	if months >= minFallbackMonths {
		return l.TotalIncome() / months
	}
	return 0
}

// DeclaredMonthlyIncome is the declared annual income over twelve.
func DeclaredMonthlyIncome(prefi *domain.Prefi) float64 {
	return prefi.DeclaredAnnualIncome() / 12
}

// MonthlyIncome is the larger of the heuristic and declared monthly income.
func MonthlyIncome(heuristic float64, prefi *domain.Prefi) float64 {
	return math.Max(heuristic, DeclaredMonthlyIncome(prefi))
}

// SimpleMonthlyIncome spreads all income over 24 months.
func SimpleMonthlyIncome(l *ledger.Ledger) float64 {
	return l.TotalIncome() / simpleIncomeMonth
}

// SpendingRatio is the discretionary share of outflow by amount, 0 without
// outflows.
func SpendingRatio(l *ledger.Ledger) float64 {
	total, disc := 0.0, 0.0
	for i := range l.Transactions {
		tx := &l.Transactions[i]
		if tx.Amount <= 0 {
			continue
		}
		total += tx.Amount
		if discretionaries[tx.PrimaryCategory] {
			disc += tx.Amount
		}
	}
	if total == 0 {
		return 0
	}
	return disc / total
}

// WasteCount counts outflows above a fifth of monthly income; 0 when income
// is unknown.
func WasteCount(l *ledger.Ledger, monthlyIncome float64) int {
	if monthlyIncome <= 0 {
		return 0
	}
	threshold := monthlyIncome * wasteShare
	n := 0
	for i := range l.Transactions {
		if amt := l.Transactions[i].Amount; amt > 0 && amt > threshold {
			n++
		}
	}
	return n
}
