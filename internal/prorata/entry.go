package prorata

import (
	"sort"
	"time"

	"github.com/ledgerline/prorata/internal/ledger"
	"github.com/ledgerline/prorata/internal/shared"
)

type entryGroupKey struct {
	accountID int64
	subFrom   time.Time
	subTo     time.Time
}

// BuildEntryLines aggregates the allocation lines into the balanced
// debit/credit line set of the adjustment entry. Per line the signed amount
// is the prorata VAT amount when set, else the negated counterpart amount;
// groups are summed per (account, sub-period), rounded, and emitted ordered
// by ascending account code so the output is deterministic and auditable.
// A positive rounded total books as credit, anything else as debit.
func BuildEntryLines(lines []AllocationLine, currencyRounding float64) ([]ledger.EntryLine, error) {
	if len(lines) == 0 {
		return nil, ErrNoAllocationLines
	}

	sums := make(map[entryGroupKey]float64)
	codes := make(map[entryGroupKey]string)
	for _, line := range lines {
		var amt float64
		switch {
		case line.ProrataVatAmount != 0:
			amt = line.ProrataVatAmount
		case line.CounterpartAmount != 0:
			amt = -line.CounterpartAmount
		default:
			continue
		}
		key := entryGroupKey{accountID: line.AccountID, subFrom: line.SubPeriodFrom, subTo: line.SubPeriodTo}
		sums[key] += amt
		codes[key] = line.AccountCode
	}

	keys := make([]entryGroupKey, 0, len(sums))
	for key := range sums {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if codes[a] != codes[b] {
			return codes[a] < codes[b]
		}
		return a.subFrom.Before(b.subFrom)
	})

	out := make([]ledger.EntryLine, 0, len(keys))
	for _, key := range keys {
		amount := shared.Round(sums[key], currencyRounding)
		line := ledger.EntryLine{AccountID: key.accountID, AccountCode: codes[key]}
		if shared.Compare(amount, 0, currencyRounding) > 0 {
			line.Credit = amount
		} else {
			line.Debit = -amount
		}
		out = append(out, line)
	}
	return out, nil
}
