package scoring

import (
	"context"
	"math"
	"time"

	"github.com/opensource-finance/underwrite/internal/domain"
	"github.com/opensource-finance/underwrite/internal/ledger"
	"github.com/opensource-finance/underwrite/internal/metrics"
)

// GetCreditScore returns the highest numeric bureau offer score, or 0.
func (s *Scorer) GetCreditScore(ctx context.Context, prefi *domain.Prefi) float64 {
	return s.creditScore(ctx, newDocs(prefi, nil))
}

// ScoreCreditScore maps the credit score through the credit ladder.
func (s *Scorer) ScoreCreditScore(ctx context.Context, prefi *domain.Prefi) int {
	d := newDocs(prefi, nil)
	return s.evaluate(ctx, "scoreCreditScore", domain.LadderCredit, d.prefiKey, func() domain.Signals {
		return domain.Signals{CreditScore: s.creditScore(ctx, d)}
	})
}

// ScoreDTI maps the bureau debt-to-income ratio through the DTI ladder.
func (s *Scorer) ScoreDTI(ctx context.Context, prefi *domain.Prefi) int {
	d := newDocs(prefi, nil)
	return s.evaluate(ctx, "scoreDTI", domain.LadderDTI, d.prefiKey, func() domain.Signals {
		return domain.Signals{DTI: metrics.DTI(d.prefi)}
	})
}

// GetDelinquencyInfo summarizes late and major events as of today.
func (s *Scorer) GetDelinquencyInfo(ctx context.Context, plaid *domain.Plaid) domain.DelinquencyInfo {
	return s.delinquency(ctx, newDocs(nil, plaid), s.asOf())
}

// IdentifyRecurringPatterns detects recurring income patterns.
func (s *Scorer) IdentifyRecurringPatterns(ctx context.Context, plaid *domain.Plaid) []domain.RecurringPattern {
	return s.patterns(ctx, newDocs(nil, plaid))
}

// ComputeAverageMonthlyIncome returns the heuristic monthly income.
func (s *Scorer) ComputeAverageMonthlyIncome(ctx context.Context, plaid *domain.Plaid) float64 {
	return s.averageMonthlyIncome(ctx, newDocs(nil, plaid))
}

// GetDebitsAndTotal returns every outflow largest first with the total.
func (s *Scorer) GetDebitsAndTotal(ctx context.Context, plaid *domain.Plaid) domain.DebitReport {
	d := newDocs(nil, plaid)
	return memoize(ctx, s, "getDebitsAndTotal", d.plaidKey, func() domain.DebitReport {
		return ledger.DebitsAndTotal(d.plaid)
	})
}

// GetAccountTransactionLog returns the income view of every account.
func (s *Scorer) GetAccountTransactionLog(ctx context.Context, plaid *domain.Plaid) map[string]domain.AccountIncomeLog {
	d := newDocs(nil, plaid)
	return memoize(ctx, s, "getAccountTransactionLog", d.plaidKey, func() map[string]domain.AccountIncomeLog {
		return ledger.AccountTransactionLog(d.plaid)
	})
}

// ScoreIncome maps the larger of heuristic and declared monthly income.
func (s *Scorer) ScoreIncome(ctx context.Context, prefi *domain.Prefi, plaid *domain.Plaid) int {
	d := newDocs(prefi, plaid)
	return s.evaluate(ctx, "scoreIncome", domain.LadderIncome, contentKey(d.prefiKey, d.plaidKey), func() domain.Signals {
		return domain.Signals{
			MonthlyIncome: metrics.MonthlyIncome(s.averageMonthlyIncome(ctx, d), d.prefi),
		}
	})
}

// ScoreEmploymentHistory maps payroll tenure, self-employment and retirement.
func (s *Scorer) ScoreEmploymentHistory(ctx context.Context, prefi *domain.Prefi, plaid *domain.Plaid) int {
	d := newDocs(prefi, plaid)
	return s.evaluate(ctx, "scoreEmploymentHistory", domain.LadderEmployment, contentKey(d.prefiKey, d.plaidKey), func() domain.Signals {
		return domain.Signals{
			EmploymentYears: s.employmentYears(ctx, d),
			SelfEmployed:    s.selfEmployed(ctx, d),
			Retired:         s.retired(ctx, d),
		}
	})
}

// ScoreAdverseHistory maps the delinquency summary.
func (s *Scorer) ScoreAdverseHistory(ctx context.Context, plaid *domain.Plaid) int {
	d := newDocs(nil, plaid)
	asOf := s.asOf()
	return s.evaluate(ctx, "scoreAdverseHistory", domain.LadderAdverse, dayKey(d.plaidKey, asOf), func() domain.Signals {
		return delinquencySignals(s.delinquency(ctx, d, asOf))
	})
}

// ScoreHousingStatus maps rent and mortgage regularity.
func (s *Scorer) ScoreHousingStatus(ctx context.Context, plaid *domain.Plaid) int {
	d := newDocs(nil, plaid)
	return s.evaluate(ctx, "scoreHousingStatus", domain.LadderHousing, d.plaidKey, func() domain.Signals {
		h := s.housing(ctx, d)
		return domain.Signals{
			YearsSinceLastLate: math.Inf(1),
			HousingPayments:    int64(h.Payments),
			HousingGaps:        int64(h.Gaps),
		}
	})
}

// ScoreSpendingBehavior maps the discretionary share of outflow.
func (s *Scorer) ScoreSpendingBehavior(ctx context.Context, plaid *domain.Plaid) int {
	d := newDocs(nil, plaid)
	return s.evaluate(ctx, "scoreSpendingBehavior", domain.LadderSpending, d.plaidKey, func() domain.Signals {
		return domain.Signals{SpendingRatio: s.spendingRatio(ctx, d)}
	})
}

// ScoreRepaymentBehavior maps the late events of the last two years.
func (s *Scorer) ScoreRepaymentBehavior(ctx context.Context, plaid *domain.Plaid) int {
	d := newDocs(nil, plaid)
	asOf := s.asOf()
	return s.evaluate(ctx, "scoreRepaymentBehavior", domain.LadderRepayment, dayKey(d.plaidKey, asOf), func() domain.Signals {
		return delinquencySignals(s.delinquency(ctx, d, asOf))
	})
}

// ScoreBehavioralIndicators maps the outflows above a fifth of the heuristic
// monthly income.
func (s *Scorer) ScoreBehavioralIndicators(ctx context.Context, plaid *domain.Plaid) int {
	d := newDocs(nil, plaid)
	return s.evaluate(ctx, "scoreBehavioralIndicators", domain.LadderBehavioral, d.plaidKey, func() domain.Signals {
		return domain.Signals{WasteCount: int64(s.wasteCount(ctx, d))}
	})
}

func delinquencySignals(info domain.DelinquencyInfo) domain.Signals {
	return domain.Signals{
		YearsSinceLastLate:  info.YearsSinceLastLate,
		HasMajorDelinquency: info.HasMajorDelinquency,
		LateCountLast2Years: int64(info.LateCountLast2Years),
		MultipleRecentLates: info.MultipleRecentLates,
		OneMajorDelinquency: info.OneMajorDelinquency,
	}
}

func dayKey(key string, asOf time.Time) string {
	return contentKey(key, asOf.Format(time.DateOnly))
}
