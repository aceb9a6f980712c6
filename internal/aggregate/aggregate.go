// Package aggregate combines ladder sub-scores into the core, bayesian and
// total scores and assembles the auditable result payload.
package aggregate

import (
	"math"

	"github.com/opensource-finance/underwrite/internal/domain"
)

// Input contains every raw metric and sub-score needed for a result.
type Input struct {
	Prefi *domain.Prefi

	CreditScore     float64
	DTI             float64
	Delinquency     domain.DelinquencyInfo
	EmploymentYears float64
	SelfEmployed    bool
	Retired         bool
	Housing         domain.HousingStability
	SpendingRatio   float64
	WasteCount      int

	HeuristicMonthlyIncome float64
	MonthlyIncome          float64
	SimpleMonthlyIncome    float64
	Patterns               []domain.RecurringPattern

	SubScores []domain.SubScore
}

// Signals returns the ladder inputs for the metrics in the input.
func (in *Input) Signals() domain.Signals {
	return domain.Signals{
		CreditScore:         in.CreditScore,
		DTI:                 in.DTI,
		YearsSinceLastLate:  in.Delinquency.YearsSinceLastLate,
		HasMajorDelinquency: in.Delinquency.HasMajorDelinquency,
		LateCountLast2Years: int64(in.Delinquency.LateCountLast2Years),
		MultipleRecentLates: in.Delinquency.MultipleRecentLates,
		OneMajorDelinquency: in.Delinquency.OneMajorDelinquency,
		EmploymentYears:     in.EmploymentYears,
		SelfEmployed:        in.SelfEmployed,
		Retired:             in.Retired,
		HousingPayments:     int64(in.Housing.Payments),
		HousingGaps:         int64(in.Housing.Gaps),
		MonthlyIncome:       in.MonthlyIncome,
		SpendingRatio:       in.SpendingRatio,
		WasteCount:          int64(in.WasteCount),
	}
}

// Totals holds the grouped sums of a set of sub-scores.
type Totals struct {
	Core     int
	Bayesian int
	Total    int
}

// Sum groups sub-scores by ladder group. Sub-scores of unknown groups are
// ignored.
func Sum(subs []domain.SubScore) Totals {
	var t Totals
	for _, s := range subs {
		switch s.Group {
		case domain.GroupCore:
			t.Core += s.Score
		case domain.GroupBayesian:
			t.Bayesian += s.Score
		}
	}
	t.Total = t.Core + t.Bayesian
	return t
}

// Process builds the result for one document pair. It has no side effects.
func Process(in *Input) *domain.ScoreResult {
	totals := Sum(in.SubScores)

	details := domain.Details{
		RawCreditScore:      in.CreditScore,
		DTI:                 in.DTI,
		EmploymentYears:     in.EmploymentYears,
		LateCountLast2Years: in.Delinquency.LateCountLast2Years,
		HasMajorDelinquency: in.Delinquency.HasMajorDelinquency,
		SelfEmployed:        in.SelfEmployed,
		Retired:             in.Retired,
		HousingPayments:     in.Housing.Payments,
		HousingGaps:         in.Housing.Gaps,
		SpendingRatio:       in.SpendingRatio,
		WasteCount:          in.WasteCount,

		MonthlyIncome:          in.MonthlyIncome,
		StaticAnnual:           in.Prefi.DeclaredAnnualIncome(),
		HeuristicMonthlyIncome: in.HeuristicMonthlyIncome,
		Patterns:               in.Patterns,
	}
	if details.Patterns == nil {
		details.Patterns = []domain.RecurringPattern{}
	}
	if years := in.Delinquency.YearsSinceLastLate; !math.IsInf(years, 0) && !math.IsNaN(years) {
		details.YearsSinceLastLate = &years
	}

	for _, s := range in.SubScores {
		if field := subScoreField(&details, s.LadderID); field != nil {
			*field = s.Score
		}
	}

	return &domain.ScoreResult{
		CoreScore:           totals.Core,
		BayesianScore:       totals.Bayesian,
		TotalScore:          totals.Total,
		SimpleMonthlyIncome: in.SimpleMonthlyIncome,
		Name:                in.Prefi.FullName(),
		Emails:              in.Prefi.EmailList(),
		Phones:              in.Prefi.PhoneList(),
		Details:             details,
	}
}

func subScoreField(d *domain.Details, ladderID string) *int {
	switch ladderID {
	case domain.LadderCredit:
		return &d.CreditScore
	case domain.LadderIncome:
		return &d.IncomeScore
	case domain.LadderEmployment:
		return &d.EmploymentScore
	case domain.LadderDTI:
		return &d.DTIScore
	case domain.LadderAdverse:
		return &d.AdverseScore
	case domain.LadderHousing:
		return &d.HousingScore
	case domain.LadderSpending:
		return &d.SpendingScore
	case domain.LadderRepayment:
		return &d.RepaymentScore
	case domain.LadderBehavioral:
		return &d.BehavioralScore
	}
	return nil
}
