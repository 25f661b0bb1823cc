package kardex

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func entryTx(id int64, created time.Time, qty string) Transaction {
	q := dec(qty)
	d := created
	return Transaction{ID: id, ProductID: 1, EntryDate: &d, EntryQty: &q, CreatedAt: created}
}

func exitTx(id int64, created time.Time, qty string) Transaction {
	q := dec(qty)
	d := created
	return Transaction{ID: id, ProductID: 1, ExitDate: &d, ExitQty: &q, CreatedAt: created}
}

func TestReplayBalancesRunningTotal(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	txs := []Transaction{
		entryTx(1, base, "100"),
		exitTx(2, base.Add(time.Hour), "70"),
	}

	changed := ReplayBalances(txs)

	if len(changed) != 2 {
		t.Fatalf("changed = %d rows, want 2", len(changed))
	}
	if !txs[0].Balance.Equal(dec("100")) || !txs[1].Balance.Equal(dec("30")) {
		t.Fatalf("balances = %s, %s, want 100, 30", txs[0].Balance, txs[1].Balance)
	}
}

func TestReplayBalancesBackdatedInsertRipplesForward(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{ID: 2, ProductID: 1, EntryQty: ptr(dec("100")), Balance: dec("100"), CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, ProductID: 1, ExitQty: ptr(dec("30")), Balance: dec("70"), CreatedAt: base.Add(3 * time.Hour)},
		// Row created later but timestamped before the others.
		{ID: 9, ProductID: 1, EntryQty: ptr(dec("20")), CreatedAt: base},
	}

	changed := ReplayBalances(txs)

	if len(changed) != 3 {
		t.Fatalf("changed = %d rows, want 3", len(changed))
	}
	wants := []string{"20", "120", "90"}
	for i, want := range wants {
		if !txs[i].Balance.Equal(dec(want)) {
			t.Fatalf("balance[%d] = %s, want %s", i, txs[i].Balance, want)
		}
	}
	if txs[0].ID != 9 {
		t.Fatalf("first row after sort = %d, want 9", txs[0].ID)
	}
}

func TestReplayBalancesIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	txs := []Transaction{
		entryTx(1, base, "50"),
		exitTx(2, base.Add(time.Minute), "20"),
	}

	ReplayBalances(txs)
	changed := ReplayBalances(txs)

	if len(changed) != 0 {
		t.Fatalf("second replay changed %d rows, want 0", len(changed))
	}
}

func TestSortCanonicalTieBreaksOnID(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	txs := []Transaction{
		entryTx(7, at, "1"),
		entryTx(5, at, "1"),
	}

	SortCanonical(txs)

	if txs[0].ID != 5 || txs[1].ID != 7 {
		t.Fatalf("order = %d, %d, want 5, 7", txs[0].ID, txs[1].ID)
	}
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }
