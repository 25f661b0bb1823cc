package kardex

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ReplayBalances rewrites the running balance of every transaction by walking
// the product's full history in canonical order and returns the rows whose
// stored balance changed. Balances are derived state: replaying from zero is
// what lets an out-of-order insert or a retroactive edit ripple forward
// correctly. O(n) per call, which is fine at the per-product volumes this
// ledger sees; a high-volume deployment would recompute only the suffix from
// the edited row onward.
//
// The slice is sorted and mutated in place.
func ReplayBalances(txs []Transaction) []Transaction {
	SortCanonical(txs)

	running := decimal.Zero
	var changed []Transaction
	for i := range txs {
		if txs[i].EntryQty != nil {
			running = running.Add(*txs[i].EntryQty)
		}
		if txs[i].ExitQty != nil {
			running = running.Sub(*txs[i].ExitQty)
		}
		if !txs[i].Balance.Equal(running) {
			txs[i].Balance = running
			changed = append(changed, txs[i])
		}
	}
	return changed
}

// SortCanonical orders transactions by (created_at, id) ascending. The id
// tie-break makes the order total even when rows are created within the same
// clock tick.
func SortCanonical(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].ID < txs[j].ID
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
}
