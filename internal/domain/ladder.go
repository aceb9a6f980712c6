package domain

// LadderConfig defines one sub-score mapper as a CEL expression that
// evaluates to an int. Results outside 1..5 are clamped.
type LadderConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Group       string `json:"group"` // "core" or "bayesian"

	// CEL expression over the signal variables
	Expression string `json:"expression"`

	Enabled bool `json:"enabled"`
}

// Ladder groups.
const (
	GroupCore     = "core"
	GroupBayesian = "bayesian"
)

// Ladder identifiers.
const (
	LadderCredit     = "credit"
	LadderIncome     = "income"
	LadderEmployment = "employment"
	LadderDTI        = "dti"
	LadderAdverse    = "adverse"
	LadderHousing    = "housing"
	LadderSpending   = "spending"
	LadderRepayment  = "repayment"
	LadderBehavioral = "behavioral"
)

// Sub-score bounds.
const (
	MinSubScore = 1
	MaxSubScore = 5
)

// Signals are the raw metrics a ladder can read. Field names map to CEL
// variables in the rule engine.
type Signals struct {
	CreditScore         float64 `json:"credit_score"`
	DTI                 float64 `json:"dti"`
	YearsSinceLastLate  float64 `json:"years_since_last_late"`
	HasMajorDelinquency bool    `json:"has_major_delinquency"`
	LateCountLast2Years int64   `json:"late_count_last_2y"`
	MultipleRecentLates bool    `json:"multiple_recent_lates"`
	OneMajorDelinquency bool    `json:"one_major_delinquency"`
	EmploymentYears     float64 `json:"employment_years"`
	SelfEmployed        bool    `json:"self_employed"`
	Retired             bool    `json:"retired"`
	HousingPayments     int64   `json:"housing_payments"`
	HousingGaps         int64   `json:"housing_gaps"`
	MonthlyIncome       float64 `json:"monthly_income"`
	SpendingRatio       float64 `json:"spending_ratio"`
	WasteCount          int64   `json:"waste_count"`
}

// SubScore is the outcome of one ladder.
type SubScore struct {
	LadderID string `json:"ladderId"`
	Group    string `json:"group"`
	Score    int    `json:"score"`

	// Fallback is set when evaluation failed and the conservative
	// MinSubScore was used instead.
	Fallback bool `json:"fallback,omitempty"`
}
