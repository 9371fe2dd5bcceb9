package prorata

import (
	"fmt"

	"github.com/ledgerline/prorata/internal/shared"
)

// Allocate distributes a move's rounded VAT total across its expense bucket
// and emits the allocation lines for both buckets. The tax-linked bucket is
// preferred; the no-tax bucket only serves when the former has zero weight.
//
// Lines are processed in bucket order (move-line insertion order). Each line
// receives round(total_vat * weight / total_weight) except the last, which
// receives round(vat_left): the running remainder, so the allocated sum
// equals the rounded total exactly whatever rounding error accumulated
// before it. The order is a policy choice, pinned by tests.
func Allocate(part MovePartition, currencyRounding float64) ([]AllocationLine, error) {
	var bucket []ExpenseLine
	var totalWeight float64
	switch {
	case len(part.OtherTax) > 0 && !shared.IsZero(part.TotalWeightOtherTax, currencyRounding):
		bucket = part.OtherTax
		totalWeight = part.TotalWeightOtherTax
	case len(part.OtherNoTax) > 0 && !shared.IsZero(part.TotalWeightOtherNoTax, currencyRounding):
		bucket = part.OtherNoTax
		totalWeight = part.TotalWeightOtherNoTax
	default:
		return nil, fmt.Errorf("%w: move %q (id %d, vat total %s)",
			ErrZeroWeight, part.MoveRef, part.MoveID, shared.FormatAmount(part.TotalVat))
	}

	lines := make([]AllocationLine, 0, len(bucket)+len(part.Vat))
	vatLeft := part.TotalVat
	for i, exp := range bucket {
		var amt float64
		if i == len(bucket)-1 {
			amt = shared.Round(vatLeft, currencyRounding)
		} else {
			amt = shared.Round(part.TotalVat*exp.Weight/totalWeight, currencyRounding)
		}
		vatLeft -= amt
		lines = append(lines, AllocationLine{
			MoveLineID:        exp.MoveLineID,
			MoveID:            part.MoveID,
			AccountID:         exp.AccountID,
			AccountCode:       exp.AccountCode,
			OriginalAmount:    exp.Balance,
			CounterpartAmount: amt,
			VatRate:           exp.VatRate,
		})
	}
	for _, vat := range part.Vat {
		lines = append(lines, AllocationLine{
			MoveLineID:       vat.MoveLineID,
			MoveID:           part.MoveID,
			AccountID:        vat.AccountID,
			AccountCode:      vat.AccountCode,
			OriginalAmount:   vat.Balance,
			ProrataVatAmount: vat.ProrataAmount,
		})
	}
	return lines, nil
}
