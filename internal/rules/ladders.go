package rules

import "github.com/opensource-finance/underwrite/internal/domain"

// LadderOrder is the fixed order of the sub-scores: six core, three bayesian.
var LadderOrder = []string{
	domain.LadderCredit,
	domain.LadderIncome,
	domain.LadderEmployment,
	domain.LadderDTI,
	domain.LadderAdverse,
	domain.LadderHousing,
	domain.LadderSpending,
	domain.LadderRepayment,
	domain.LadderBehavioral,
}

// DefaultLadders returns the built-in threshold ladders. Each condition is
// tested in the written order and the first match wins.
func DefaultLadders() []*domain.LadderConfig {
	return []*domain.LadderConfig{
		{
			ID:          domain.LadderCredit,
			Name:        "Credit score",
			Description: "Highest bureau offer score",
			Version:     "1.0.0",
			Group:       domain.GroupCore,
			Expression: `credit_score >= 800.0 ? 5 :
				credit_score >= 720.0 ? 4 :
				credit_score >= 650.0 ? 3 :
				credit_score >= 600.0 ? 2 : 1`,
			Enabled: true,
		},
		{
			ID:          domain.LadderIncome,
			Name:        "Income",
			Description: "Larger of heuristic and declared monthly income",
			Version:     "1.0.0",
			Group:       domain.GroupCore,
			Expression: `monthly_income >= 100000.0 / 12.0 ? 5 :
				monthly_income >= 75000.0 / 12.0 ? 4 :
				monthly_income >= 50000.0 / 12.0 ? 3 :
				monthly_income >= 35000.0 / 12.0 ? 2 : 1`,
			Enabled: true,
		},
		{
			ID:          domain.LadderEmployment,
			Name:        "Employment history",
			Description: "Payroll tenure, then self-employment, then retirement",
			Version:     "1.0.0",
			Group:       domain.GroupCore,
			Expression: `employment_years >= 4.0 ? 5 :
				employment_years >= 1.0 ? 4 :
				self_employed ? 3 :
				retired ? 2 : 1`,
			Enabled: true,
		},
		{
			ID:          domain.LadderDTI,
			Name:        "Debt to income",
			Description: "Bureau debt-to-income ratio",
			Version:     "1.0.0",
			Group:       domain.GroupCore,
			Expression: `dti < 0.15 ? 5 :
				dti < 0.20 ? 4 :
				dti <= 0.35 ? 3 :
				dti <= 0.45 ? 2 : 1`,
			Enabled: true,
		},
		{
			ID:          domain.LadderAdverse,
			Name:        "Adverse history",
			Description: "Recency of late events and major delinquencies",
			Version:     "1.0.0",
			Group:       domain.GroupCore,
			Expression: `years_since_last_late >= 5.0 && !has_major_delinquency ? 5 :
				!has_major_delinquency && years_since_last_late >= 2.0 ? 4 :
				late_count_last_2y <= 2 ? 3 :
				multiple_recent_lates || one_major_delinquency ? 2 : 1`,
			Enabled: true,
		},
		{
			ID:          domain.LadderHousing,
			Name:        "Housing stability",
			Description: "Gaps of more than 35 days between rent or mortgage payments",
			Version:     "1.0.0",
			Group:       domain.GroupCore,
			Expression: `housing_payments == 0 ? 3 :
				housing_gaps == 0 ? 5 :
				housing_gaps == 1 ? 3 : 1`,
			Enabled: true,
		},
		{
			ID:          domain.LadderSpending,
			Name:        "Spending behavior",
			Description: "Discretionary share of outflow",
			Version:     "1.0.0",
			Group:       domain.GroupBayesian,
			Expression: `spending_ratio < 0.2 ? 5 :
				spending_ratio < 0.4 ? 4 :
				spending_ratio < 0.6 ? 3 :
				spending_ratio < 0.8 ? 2 : 1`,
			Enabled: true,
		},
		{
			ID:          domain.LadderRepayment,
			Name:        "Repayment behavior",
			Description: "Late events in the last two years",
			Version:     "1.0.0",
			Group:       domain.GroupBayesian,
			Expression: `late_count_last_2y == 0 ? 5 :
				late_count_last_2y <= 2 ? 4 :
				late_count_last_2y <= 4 ? 3 :
				late_count_last_2y <= 6 ? 2 : 1`,
			Enabled: true,
		},
		{
			ID:          domain.LadderBehavioral,
			Name:        "Behavioral indicators",
			Description: "Outflows above a fifth of monthly income",
			Version:     "1.0.0",
			Group:       domain.GroupBayesian,
			Expression: `waste_count == 0 ? 5 :
				waste_count <= 2 ? 3 : 1`,
			Enabled: true,
		},
	}
}
