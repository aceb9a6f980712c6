package ledger

import (
	"sort"

	"github.com/opensource-finance/underwrite/internal/domain"
	"github.com/shopspring/decimal"
)

const unknownAccount = "Unknown Account"

// DebitsAndTotal lists every outflow (positive amount), largest first, with
// their total. Equal amounts keep traversal order.
func DebitsAndTotal(plaid *domain.Plaid) domain.DebitReport {
	report := domain.DebitReport{AllDebits: []domain.Debit{}}
	total := decimal.Zero

	for _, item := range plaid.ItemList() {
		for _, raw := range item.Accounts {
			name := accountName(raw, unknownAccount)

			for _, rawTx := range raw.Transactions {
				tx := normalizeTransaction(rawTx, "")
				if tx.Amount <= 0 {
					continue
				}

				report.AllDebits = append(report.AllDebits, domain.Debit{
					Date:        tx.Date,
					Account:     name,
					Description: tx.Description(),
					Amount:      tx.Amount,
				})
				total = total.Add(decimal.NewFromFloat(tx.Amount))
			}
		}
	}

	sort.SliceStable(report.AllDebits, func(i, j int) bool {
		return report.AllDebits[i].Amount > report.AllDebits[j].Amount
	})

	report.TotalDebits = total.InexactFloat64()
	return report
}
