package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Frequency is the recurrence class of an income pattern.
type Frequency string

const (
	FrequencyWeekly      Frequency = "weekly"
	FrequencyBiweekly    Frequency = "biweekly"
	FrequencySemimonthly Frequency = "semimonthly"
	FrequencyMonthly     Frequency = "monthly"
	FrequencyIrregular   Frequency = "irregular"
)

// RecurringPattern is one accepted amount bucket of income transactions.
type RecurringPattern struct {
	Frequency     Frequency `json:"frequency"`
	AverageAmount float64   `json:"averageAmount"`
}

// DelinquencyInfo summarizes late and major adverse events.
// YearsSinceLastLate is +Inf when no dated late event exists.
type DelinquencyInfo struct {
	YearsSinceLastLate  float64 `json:"yearsSinceLastLate"`
	HasMajorDelinquency bool    `json:"hasMajorDelinquency"`
	LateCountLast2Years int     `json:"lateCountLast2Years"`
	MultipleRecentLates bool    `json:"multipleRecentLates"`
	OneMajorDelinquency bool    `json:"oneMajorDelinquency"`
}

type delinquencyJSON struct {
	YearsSinceLastLate  *float64 `json:"yearsSinceLastLate"`
	HasMajorDelinquency bool     `json:"hasMajorDelinquency"`
	LateCountLast2Years int      `json:"lateCountLast2Years"`
	MultipleRecentLates bool     `json:"multipleRecentLates"`
	OneMajorDelinquency bool     `json:"oneMajorDelinquency"`
}

// MarshalJSON encodes an infinite YearsSinceLastLate as null.
func (d DelinquencyInfo) MarshalJSON() ([]byte, error) {
	out := delinquencyJSON{
		HasMajorDelinquency: d.HasMajorDelinquency,
		LateCountLast2Years: d.LateCountLast2Years,
		MultipleRecentLates: d.MultipleRecentLates,
		OneMajorDelinquency: d.OneMajorDelinquency,
	}
	if !math.IsInf(d.YearsSinceLastLate, 0) && !math.IsNaN(d.YearsSinceLastLate) {
		years := d.YearsSinceLastLate
		out.YearsSinceLastLate = &years
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null YearsSinceLastLate as +Inf.
func (d *DelinquencyInfo) UnmarshalJSON(data []byte) error {
	var in delinquencyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*d = DelinquencyInfo{
		YearsSinceLastLate:  math.Inf(1),
		HasMajorDelinquency: in.HasMajorDelinquency,
		LateCountLast2Years: in.LateCountLast2Years,
		MultipleRecentLates: in.MultipleRecentLates,
		OneMajorDelinquency: in.OneMajorDelinquency,
	}
	if in.YearsSinceLastLate != nil {
		d.YearsSinceLastLate = *in.YearsSinceLastLate
	}
	return nil
}

// HousingStability counts rent/mortgage payments and the gaps of more than
// 35 days between consecutive ones.
type HousingStability struct {
	Payments int `json:"payments"`
	Gaps     int `json:"gaps"`
}

// Details exposes every raw metric and sub-score behind a ScoreResult.
type Details struct {
	RawCreditScore      float64  `json:"rawCreditScore"`
	DTI                 float64  `json:"dti"`
	EmploymentYears     float64  `json:"employmentYears"`
	LateCountLast2Years int      `json:"lateCountLast2Years"`
	HasMajorDelinquency bool     `json:"hasMajorDelinquency"`
	YearsSinceLastLate  *float64 `json:"yearsSinceLastLate"`
	SelfEmployed        bool     `json:"selfEmployed"`
	Retired             bool     `json:"retired"`
	HousingPayments     int      `json:"housingPayments"`
	HousingGaps         int      `json:"housingGaps"`
	SpendingRatio       float64  `json:"spendingRatio"`
	WasteCount          int      `json:"wasteCount"`

	CreditScore     int `json:"creditScore"`
	IncomeScore     int `json:"incomeScore"`
	EmploymentScore int `json:"employmentScore"`
	DTIScore        int `json:"dtiScore"`
	AdverseScore    int `json:"adverseScore"`
	HousingScore    int `json:"housingScore"`
	SpendingScore   int `json:"spendingScore"`
	RepaymentScore  int `json:"repaymentScore"`
	BehavioralScore int `json:"behavioralScore"`

	MonthlyIncome          float64            `json:"monthlyIncome"`
	StaticAnnual           float64            `json:"staticAnnual"`
	HeuristicMonthlyIncome float64            `json:"heuristicMonthlyIncome"`
	Patterns               []RecurringPattern `json:"patterns"`
}

// ScoreResult is the output of one scoring call.
type ScoreResult struct {
	CoreScore           int     `json:"coreScore"`
	BayesianScore       int     `json:"bayesianScore"`
	TotalScore          int     `json:"totalScore"`
	SimpleMonthlyIncome float64 `json:"simpleMonthlyIncome"`
	Name                string  `json:"name"`
	Emails              []any   `json:"emails"`
	Phones              []any   `json:"phones"`
	Details             Details `json:"details"`
}

// HistoryRecord is a persisted ScoreResult.
type HistoryRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ScoreResult
}

// ScoreRequest is the pair of documents submitted for scoring.
type ScoreRequest struct {
	Prefi *Prefi `json:"prefi"`
	Plaid *Plaid `json:"plaid"`
}
