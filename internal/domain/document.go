package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Prefi is the credit/identity-bureau document. Every field is optional;
// absent values read as empty or zero through the accessor methods.
type Prefi struct {
	Offers         []Offer         `json:"Offers,omitempty"`
	DataEnhance    *DataEnhance    `json:"DataEnhance,omitempty"`
	DataPerfection *DataPerfection `json:"DataPerfection,omitempty"`
}

// Offer is a single bureau offer. Score may arrive as a number or a numeric string.
type Offer struct {
	Score Number `json:"Score"`
}

// DataEnhance holds derived bureau ratios.
type DataEnhance struct {
	DebtToIncome Number `json:"DebtToIncome"`
}

// DataPerfection holds identity and declared financial data.
type DataPerfection struct {
	Name   *PersonName `json:"Name,omitempty"`
	Emails []any       `json:"Emails,omitempty"`
	Phones []any       `json:"Phones,omitempty"`
	Income *Income     `json:"Income,omitempty"`
	Assets *Assets     `json:"Assets,omitempty"`
}

// PersonName is the applicant name block.
type PersonName struct {
	Full string `json:"Full"`
}

// Income is the declared income block. Personal is an annual figure.
type Income struct {
	Personal Number `json:"Personal"`
}

// Assets is the declared assets block.
type Assets struct {
	Retirement Number `json:"Retirement"`
}

// HasBureauSignal reports whether any recognizable bureau section is present.
func (p *Prefi) HasBureauSignal() bool {
	return p != nil && (p.Offers != nil || p.DataEnhance != nil || p.DataPerfection != nil)
}

// DebtToIncome returns DataEnhance.DebtToIncome or 0.
func (p *Prefi) DebtToIncome() float64 {
	if p == nil || p.DataEnhance == nil {
		return 0
	}
	return p.DataEnhance.DebtToIncome.Float()
}

// DeclaredAnnualIncome returns DataPerfection.Income.Personal or 0.
func (p *Prefi) DeclaredAnnualIncome() float64 {
	if p == nil || p.DataPerfection == nil || p.DataPerfection.Income == nil {
		return 0
	}
	return p.DataPerfection.Income.Personal.Float()
}

// RetirementAssets returns DataPerfection.Assets.Retirement or 0.
func (p *Prefi) RetirementAssets() float64 {
	if p == nil || p.DataPerfection == nil || p.DataPerfection.Assets == nil {
		return 0
	}
	return p.DataPerfection.Assets.Retirement.Float()
}

// FullName returns DataPerfection.Name.Full or "".
func (p *Prefi) FullName() string {
	if p == nil || p.DataPerfection == nil || p.DataPerfection.Name == nil {
		return ""
	}
	return p.DataPerfection.Name.Full
}

// EmailList returns the declared emails, never nil.
func (p *Prefi) EmailList() []any {
	if p == nil || p.DataPerfection == nil || p.DataPerfection.Emails == nil {
		return []any{}
	}
	return p.DataPerfection.Emails
}

// PhoneList returns the declared phones, never nil.
func (p *Prefi) PhoneList() []any {
	if p == nil || p.DataPerfection == nil || p.DataPerfection.Phones == nil {
		return []any{}
	}
	return p.DataPerfection.Phones
}

// Plaid is the bank-aggregator document. Items live either under
// report.items or at the top level.
type Plaid struct {
	Report *PlaidReport `json:"report,omitempty"`
	Items  []PlaidItem  `json:"items,omitempty"`
}

// PlaidReport wraps items in asset-report shaped documents.
type PlaidReport struct {
	Items []PlaidItem `json:"items,omitempty"`
}

// PlaidItem is one institution link.
type PlaidItem struct {
	Accounts []PlaidAccount `json:"accounts,omitempty"`
}

// PlaidAccount is one account with its raw transactions.
type PlaidAccount struct {
	AccountID    string             `json:"account_id,omitempty"`
	ID           string             `json:"id,omitempty"`
	Name         string             `json:"name,omitempty"`
	OfficialName string             `json:"official_name,omitempty"`
	Mask         string             `json:"mask,omitempty"`
	Transactions []PlaidTransaction `json:"transactions,omitempty"`
}

// PlaidTransaction is a raw transaction. Positive amounts are outflows.
type PlaidTransaction struct {
	Date                string          `json:"date,omitempty"`
	Amount              Number          `json:"amount"`
	Category            []string        `json:"category,omitempty"`
	CreditCategory      *CreditCategory `json:"credit_category,omitempty"`
	MerchantName        string          `json:"merchant_name,omitempty"`
	Name                string          `json:"name,omitempty"`
	OriginalDescription string          `json:"original_description,omitempty"`
}

// CreditCategory is the aggregator's credit classification.
type CreditCategory struct {
	Primary  string `json:"primary,omitempty"`
	Detailed string `json:"detailed,omitempty"`
}

// ItemList returns report.items when a report carries an items array,
// otherwise the top-level items, never nil.
func (p *Plaid) ItemList() []PlaidItem {
	if p == nil {
		return []PlaidItem{}
	}
	if p.Report != nil && p.Report.Items != nil {
		return p.Report.Items
	}
	if p.Items != nil {
		return p.Items
	}
	return []PlaidItem{}
}

// HasItems reports whether the document carries a non-empty items array.
func (p *Plaid) HasItems() bool {
	return len(p.ItemList()) > 0
}

// Number is a lenient numeric field. It accepts JSON numbers and numeric
// strings; anything else (null, objects, garbage strings) decodes as invalid
// instead of failing the whole document.
type Number struct {
	Value float64
	Valid bool
}

// NewNumber returns a valid Number.
func NewNumber(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Float returns the value, or 0 when invalid.
func (n Number) Float() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

// UnmarshalJSON never fails.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			*n = NewNumber(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*n = NewNumber(v)
	}
	return nil
}

// MarshalJSON writes the number, or null when invalid.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
