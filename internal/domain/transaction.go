package domain

import (
	"time"
)

// Transaction is a normalized transaction. Amount keeps the source sign
// convention: positive is an outflow, negative an inflow.
type Transaction struct {
	Date                time.Time `json:"date"`
	Amount              float64   `json:"amount"`
	Category            []string  `json:"category"` // lowercased
	PrimaryCategory     string    `json:"primaryCategory"`
	DetailedCategory    string    `json:"detailedCategory"`
	MerchantName        string    `json:"merchantName"`
	Name                string    `json:"name"`
	OriginalDescription string    `json:"originalDescription"`
	AccountID           string    `json:"accountId"`
}

// HasDate reports whether the source date parsed. Transactions without a
// usable date are excluded from every interval computation.
func (t *Transaction) HasDate() bool {
	return !t.Date.IsZero()
}

// HasCategory reports whether the lowercased category set contains c.
func (t *Transaction) HasCategory(c string) bool {
	for _, have := range t.Category {
		if have == c {
			return true
		}
	}
	return false
}

// Description returns the first non-empty of name, original description and
// merchant name, or "Unknown".
func (t *Transaction) Description() string {
	switch {
	case t.Name != "":
		return t.Name
	case t.OriginalDescription != "":
		return t.OriginalDescription
	case t.MerchantName != "":
		return t.MerchantName
	}
	return "Unknown"
}

// Account is a normalized account.
type Account struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Transactions []Transaction `json:"transactions"`
}

// IncomeTransaction is an entry of the per-account income log.
// Amount is always the absolute value of the source amount.
type IncomeTransaction struct {
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
}

// AccountIncomeLog is the income view of one account.
type AccountIncomeLog struct {
	Name               string              `json:"name"`
	IncomeTransactions []IncomeTransaction `json:"income_transactions"`
}

// Debit is one row of the debit report.
type Debit struct {
	Date        time.Time `json:"date"`
	Account     string    `json:"account"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
}

// DebitReport lists outflows largest first with their total.
type DebitReport struct {
	AllDebits   []Debit `json:"allDebits"`
	TotalDebits float64 `json:"totalDebits"`
}
