package prorata

import (
	"github.com/ledgerline/prorata/internal/ledger"
	"github.com/ledgerline/prorata/internal/shared"
)

// RatioResult carries the reduced ratio and the aggregate rows it was
// computed from, ready to persist as the period's audit trail.
type RatioResult struct {
	Ratio    float64
	Retained []ledger.SubjectAggregate
}

// ReduceRatio filters the aggregate rows and reduces them to the VAT-subject
// percentage. Rows whose debit and credit are both zero at currency
// precision contribute nothing and are dropped. A zero total yields ratio 0.
func ReduceRatio(rows []ledger.SubjectAggregate, currencyRounding float64, ratioPrecision int) RatioResult {
	var total, vatSubjectTotal float64
	retained := make([]ledger.SubjectAggregate, 0, len(rows))
	for _, row := range rows {
		if shared.IsZero(row.Debit, currencyRounding) && shared.IsZero(row.Credit, currencyRounding) {
			continue
		}
		total += row.Balance
		if row.VatSubject == ledger.VatSubjectYes {
			vatSubjectTotal += row.Balance
		}
		retained = append(retained, row)
	}

	var perct float64
	if total != 0 {
		perct = 100 * vatSubjectTotal / total
	}
	return RatioResult{
		Ratio:    shared.RoundDigits(perct, ratioPrecision),
		Retained: retained,
	}
}
