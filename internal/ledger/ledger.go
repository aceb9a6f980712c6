// Package ledger flattens bank-aggregator documents into normalized
// transactions and derives the per-account views built on them.
package ledger

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/underwrite/internal/domain"
)

var incomeDetailPattern = regexp.MustCompile(`(?i)salary|income`)

// Ledger is the normalized form of one aggregator document.
type Ledger struct {
	// Accounts in traversal order; each keeps its source transaction order.
	Accounts []domain.Account

	// Transactions across all accounts in traversal order.
	Transactions []domain.Transaction

	// Income holds every income-classified transaction with absolute amounts.
	Income []domain.IncomeTransaction

	// Dates holds every parsable transaction date, ascending.
	Dates []time.Time

	// IncomeLog is the per-account income view keyed by account id.
	IncomeLog map[string]domain.AccountIncomeLog
}

// Normalize flattens every item, account and transaction of a document.
// Missing levels are treated as empty.
func Normalize(plaid *domain.Plaid) *Ledger {
	l := &Ledger{
		Accounts:     []domain.Account{},
		Transactions: []domain.Transaction{},
		Income:       []domain.IncomeTransaction{},
		Dates:        []time.Time{},
		IncomeLog:    make(map[string]domain.AccountIncomeLog),
	}

	for i, item := range plaid.ItemList() {
		for j, raw := range item.Accounts {
			acct := domain.Account{
				ID:           AccountID(raw, i, j),
				Transactions: make([]domain.Transaction, 0, len(raw.Transactions)),
			}
			acct.Name = accountName(raw, acct.ID)

			incomeLog := domain.AccountIncomeLog{
				Name:               acct.Name,
				IncomeTransactions: []domain.IncomeTransaction{},
			}

			for _, rawTx := range raw.Transactions {
				tx := normalizeTransaction(rawTx, acct.ID)
				acct.Transactions = append(acct.Transactions, tx)
				l.Transactions = append(l.Transactions, tx)

				if tx.HasDate() {
					l.Dates = append(l.Dates, tx.Date)
				}

				if IsIncome(&tx) {
					in := domain.IncomeTransaction{
						Date:        tx.Date,
						Amount:      abs(tx.Amount),
						Description: tx.Description(),
					}
					incomeLog.IncomeTransactions = append(incomeLog.IncomeTransactions, in)
					l.Income = append(l.Income, in)
				}
			}

			// A repeated account id replaces the earlier log.
			l.IncomeLog[acct.ID] = incomeLog
			l.Accounts = append(l.Accounts, acct)
		}
	}

	sort.Slice(l.Dates, func(a, b int) bool { return l.Dates[a].Before(l.Dates[b]) })

	return l
}

// IsIncome reports whether a transaction is an inflow or is categorized as
// income or payroll.
func IsIncome(tx *domain.Transaction) bool {
	return tx.Amount < 0 ||
		tx.HasCategory("income") ||
		tx.HasCategory("payroll") ||
		incomeDetailPattern.MatchString(tx.DetailedCategory)
}

// TotalIncome sums every income amount.
func (l *Ledger) TotalIncome() float64 {
	total := 0.0
	for _, in := range l.Income {
		total += in.Amount
	}
	return total
}

// AccountTransactionLog returns the per-account income view of a document.
func AccountTransactionLog(plaid *domain.Plaid) map[string]domain.AccountIncomeLog {
	return Normalize(plaid).IncomeLog
}

// AccountID returns the source id, falling back to a position-derived id so
// repeated normalizations of the same document agree.
func AccountID(raw domain.PlaidAccount, item, account int) string {
	switch {
	case raw.AccountID != "":
		return raw.AccountID
	case raw.ID != "":
		return raw.ID
	}
	return "Account-" + strconv.Itoa(item) + "-" + strconv.Itoa(account)
}

func accountName(raw domain.PlaidAccount, fallback string) string {
	switch {
	case raw.Name != "":
		return raw.Name
	case raw.OfficialName != "":
		return raw.OfficialName
	case raw.Mask != "":
		return raw.Mask
	}
	return fallback
}

func normalizeTransaction(raw domain.PlaidTransaction, accountID string) domain.Transaction {
	tx := domain.Transaction{
		Amount:              raw.Amount.Float(),
		Category:            make([]string, 0, len(raw.Category)),
		MerchantName:        raw.MerchantName,
		Name:                raw.Name,
		OriginalDescription: raw.OriginalDescription,
		AccountID:           accountID,
	}
	if date, ok := ParseDate(raw.Date); ok {
		tx.Date = date
	}
	for _, c := range raw.Category {
		tx.Category = append(tx.Category, strings.ToLower(c))
	}
	if raw.CreditCategory != nil {
		tx.PrimaryCategory = strings.ToLower(raw.CreditCategory.Primary)
		tx.DetailedCategory = raw.CreditCategory.Detailed
	}
	return tx
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate parses the date formats aggregators emit. Zone-less values are
// read as UTC. The boolean is false for empty or unparsable input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
