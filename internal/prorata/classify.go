package prorata

import (
	"fmt"
	"strings"

	"github.com/ledgerline/prorata/internal/ledger"
	"github.com/ledgerline/prorata/internal/shared"
)

// taxRatePrecision is the decimal precision at which tax rates are compared.
const taxRatePrecision = 4

// ClassifyDeductibleAccounts derives the deductible input-VAT account set
// from the purchase tax configuration. Pure function of the snapshot: a tax
// qualifies when it is a positive percent tax and not reverse-charge; its
// single 100% "tax" repartition line names the deductible account, whose
// code must start with one of the company's deductible prefixes.
func ClassifyDeductibleAccounts(taxes []ledger.Tax, prefixes []string) (map[int64]string, error) {
	accounts := make(map[int64]string)
	for _, tax := range taxes {
		if !qualifiesForClassification(tax) {
			continue
		}
		var matched []ledger.RepartitionLine
		for _, rl := range tax.RepartitionLines {
			if rl.Type == "tax" && rl.FactorPercent == 100 && rl.AccountID != 0 {
				matched = append(matched, rl)
			}
		}
		if len(matched) != 1 {
			return nil, fmt.Errorf("%w: tax %q has %d candidate lines",
				ErrAmbiguousTaxMapping, tax.Name, len(matched))
		}
		code := matched[0].AccountCode
		if !hasDeductiblePrefix(code, prefixes) {
			return nil, fmt.Errorf("%w: tax %q points at account %s",
				ErrMisclassifiedAccount, tax.Name, code)
		}
		accounts[matched[0].AccountID] = code
	}
	if len(accounts) == 0 {
		return nil, ErrNoDeductibleAccounts
	}
	return accounts, nil
}

// TaxRates maps percent purchase taxes to their rates. Zero-rate taxes
// carry no weight and are excluded.
func TaxRates(taxes []ledger.Tax) map[int64]float64 {
	rates := make(map[int64]float64)
	for _, tax := range taxes {
		if tax.TypeTaxUse != "purchase" || tax.AmountType != "percent" {
			continue
		}
		if shared.IsZeroDigits(tax.Amount, taxRatePrecision) {
			continue
		}
		rates[tax.ID] = shared.RoundDigits(tax.Amount, taxRatePrecision)
	}
	return rates
}

func qualifiesForClassification(tax ledger.Tax) bool {
	return tax.TypeTaxUse == "purchase" &&
		tax.AmountType == "percent" &&
		tax.Amount > 0 &&
		!tax.ReverseCharge
}

func hasDeductiblePrefix(code string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}
