package prorata

import (
	"fmt"

	"github.com/ledgerline/prorata/internal/ledger"
	"github.com/ledgerline/prorata/internal/shared"
)

// accountTypeOther is the expense account type eligible for counterpart
// adjustments.
const accountTypeOther = "other"

// VatLine is a deductible-VAT line with its rounded pro-rata reduction.
type VatLine struct {
	MoveLineID    int64
	AccountID     int64
	AccountCode   string
	Balance       float64
	ProrataAmount float64
}

// ExpenseLine is a weighted expense line awaiting its counterpart share.
type ExpenseLine struct {
	MoveLineID  int64
	AccountID   int64
	AccountCode string
	Balance     float64
	VatRate     float64
	Weight      float64
}

// MovePartition splits one move into the three buckets the allocator
// consumes. Bucket slices preserve move-line order; the allocator's
// last-line remainder rule depends on it.
type MovePartition struct {
	MoveID                int64
	MoveRef               string
	Vat                   []VatLine
	OtherTax              []ExpenseLine
	OtherNoTax            []ExpenseLine
	TotalVat              float64
	TotalWeightOtherTax   float64
	TotalWeightOtherNoTax float64
}

// PartitionInput carries the classified configuration a partition run needs.
type PartitionInput struct {
	DeductibleAccounts map[int64]string
	AccountTypes       map[int64]string
	TaxRates           map[int64]float64
	// RemainingFraction is (100 - used_perct) / 100: the non-deductible
	// share to strip from each VAT line.
	RemainingFraction float64
	CurrencyRounding  float64
}

// PartitionMoves buckets each move's non-zero-balance lines. TotalVat
// accumulates the rounded per-line amounts, not the raw products, so the
// total to redistribute is itself an exactly representable currency amount.
// Only moves with at least one VAT line are returned.
func PartitionMoves(moves []ledger.Move, in PartitionInput) ([]MovePartition, error) {
	var out []MovePartition
	for _, move := range moves {
		part := MovePartition{MoveID: move.ID, MoveRef: move.Ref}
		for _, line := range move.Lines {
			if shared.IsZero(line.Balance, in.CurrencyRounding) {
				continue
			}
			if code, ok := in.DeductibleAccounts[line.AccountID]; ok {
				prorata := shared.Round(in.RemainingFraction*line.Balance, in.CurrencyRounding)
				part.Vat = append(part.Vat, VatLine{
					MoveLineID:    line.ID,
					AccountID:     line.AccountID,
					AccountCode:   code,
					Balance:       line.Balance,
					ProrataAmount: prorata,
				})
				part.TotalVat += prorata
				continue
			}
			if in.AccountTypes[line.AccountID] != accountTypeOther {
				continue
			}
			if rate, ok := firstTaxRate(line.TaxIDs, in.TaxRates); ok {
				weight := rate * line.Balance
				part.OtherTax = append(part.OtherTax, ExpenseLine{
					MoveLineID:  line.ID,
					AccountID:   line.AccountID,
					AccountCode: line.AccountCode,
					Balance:     line.Balance,
					VatRate:     rate,
					Weight:      weight,
				})
				part.TotalWeightOtherTax += weight
				continue
			}
			// No qualifying tax link: rate pinned at 100 so the line
			// weighs its full balance.
			weight := 100 * line.Balance
			part.OtherNoTax = append(part.OtherNoTax, ExpenseLine{
				MoveLineID:  line.ID,
				AccountID:   line.AccountID,
				AccountCode: line.AccountCode,
				Balance:     line.Balance,
				VatRate:     100,
				Weight:      weight,
			})
			part.TotalWeightOtherNoTax += weight
		}
		if len(part.Vat) > 0 && len(part.OtherTax) == 0 && len(part.OtherNoTax) == 0 {
			return nil, fmt.Errorf("%w: move %q (id %d) belongs in another journal",
				ErrMoveWithoutExpense, move.Ref, move.ID)
		}
		if len(part.Vat) > 0 {
			out = append(out, part)
		}
	}
	return out, nil
}

// firstTaxRate resolves the line's first linked tax against the rate map.
func firstTaxRate(taxIDs []int64, rates map[int64]float64) (float64, bool) {
	if len(taxIDs) == 0 {
		return 0, false
	}
	rate, ok := rates[taxIDs[0]]
	return rate, ok
}
