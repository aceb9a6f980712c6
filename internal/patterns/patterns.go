// Package patterns detects recurring income streams.
package patterns

import (
	"math"
	"sort"
	"time"

	"github.com/opensource-finance/underwrite/internal/domain"
)

const (
	bucketWidth = 10.0
	maxCV       = 0.25
	minAccepted = 3
	day         = 24 * time.Hour
)

// IdentifyRecurringPatterns buckets income by amount rounded to the nearest
// ten and classifies each bucket of two or more dated transactions by its
// average day gap. A bucket is kept when its gaps are regular or it has at
// least three members. Buckets are reported in order of first appearance.
func IdentifyRecurringPatterns(income []domain.IncomeTransaction) []domain.RecurringPattern {
	out := []domain.RecurringPattern{}
	if len(income) < 2 {
		return out
	}

	var order []float64
	buckets := make(map[float64][]domain.IncomeTransaction)
	for _, in := range income {
		if in.Date.IsZero() {
			continue
		}
		key := Bucket(in.Amount)
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], in)
	}

	for _, key := range order {
		group := buckets[key]
		if len(group) < 2 {
			continue
		}

		gaps := Intervals(group)
		avg := mean(gaps)
		cv := math.Inf(1)
		if avg != 0 {
			cv = stddev(gaps, avg) / avg
		}

		if cv < maxCV || len(group) >= minAccepted {
			out = append(out, domain.RecurringPattern{
				Frequency:     Classify(avg),
				AverageAmount: averageAmount(group),
			})
		}
	}

	return out
}

// Bucket rounds an amount to the nearest multiple of ten; halves round up.
func Bucket(amount float64) float64 {
	return math.Floor(amount/bucketWidth+0.5) * bucketWidth
}

// Intervals sorts a group by date and returns the consecutive gaps in whole
// days.
func Intervals(group []domain.IncomeTransaction) []float64 {
	dates := make([]time.Time, len(group))
	for i, in := range group {
		dates[i] = in.Date
	}
	sort.Slice(dates, func(a, b int) bool { return dates[a].Before(dates[b]) })

	gaps := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, math.Floor(dates[i].Sub(dates[i-1]).Hours()/24+0.5))
	}
	return gaps
}

// Classify maps an average gap in days to a frequency. Semimonthly is tested
// before biweekly so the overlapping 12..16 range resolves to semimonthly.
func Classify(avgDays float64) domain.Frequency {
	switch {
	case avgDays >= 25 && avgDays <= 35:
		return domain.FrequencyMonthly
	case avgDays >= 12 && avgDays <= 16:
		return domain.FrequencySemimonthly
	case avgDays >= 10 && avgDays <= 18:
		return domain.FrequencyBiweekly
	case avgDays >= 5 && avgDays <= 9:
		return domain.FrequencyWeekly
	}
	return domain.FrequencyIrregular
}

// Multiplier is the number of occurrences of a frequency per month.
func Multiplier(f domain.Frequency) float64 {
	switch f {
	case domain.FrequencyWeekly:
		return 4.33
	case domain.FrequencyBiweekly:
		return 2.17
	case domain.FrequencySemimonthly:
		return 2
	}
	return 1
}

// MonthlyTotal sums each pattern's average amount scaled to a month.
func MonthlyTotal(patterns []domain.RecurringPattern) float64 {
	total := 0.0
	for _, p := range patterns {
		total += p.AverageAmount * Multiplier(p.Frequency)
	}
	return total
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// stddev is the population standard deviation; zero for fewer than two values.
func stddev(v []float64, m float64) float64 {
	if len(v) <= 1 {
		return 0
	}
	sq := 0.0
	for _, x := range v {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(v)))
}

func averageAmount(group []domain.IncomeTransaction) float64 {
	sum := 0.0
	for _, in := range group {
		sum += in.Amount
	}
	return sum / float64(len(group))
}
