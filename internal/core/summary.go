package core

import "sort"

// CategoryAmount represents an amount aggregated by category id.
type CategoryAmount struct {
	CategoryID int64
	Currency   string
	Amount     Money
}

// LedgerSummary is a compact summary of committed transactions over a date range.
type LedgerSummary struct {
	From       Date
	To         Date
	Count      int
	Totals     map[string]Money // by currency
	ByCategory []CategoryAmount
}

// Summarize aggregates committed transactions per currency and per category.
// Amounts in different currencies are never added together.
func Summarize(from, to Date, txs []CommittedTransaction) LedgerSummary {
	s := LedgerSummary{From: from, To: to, Count: len(txs), Totals: map[string]Money{}}
	type key struct {
		cat int64
		cur string
	}
	byCat := map[key]int64{}
	for _, tx := range txs {
		t := s.Totals[tx.Currency]
		t.Cents += tx.Amount.Cents
		s.Totals[tx.Currency] = t
		byCat[key{tx.CategoryID, tx.Currency}] += tx.Amount.Cents
	}
	for k, cents := range byCat {
		s.ByCategory = append(s.ByCategory, CategoryAmount{CategoryID: k.cat, Currency: k.cur, Amount: Money{Cents: cents}})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if s.ByCategory[i].CategoryID != s.ByCategory[j].CategoryID {
			return s.ByCategory[i].CategoryID < s.ByCategory[j].CategoryID
		}
		return s.ByCategory[i].Currency < s.ByCategory[j].Currency
	})
	return s
}
