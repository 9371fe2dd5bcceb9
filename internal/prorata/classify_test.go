package prorata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/prorata/internal/ledger"
)

var frPrefixes = []string{"44562", "44566"}

func purchaseTax(id int64, name string, rate float64, lines ...ledger.RepartitionLine) ledger.Tax {
	return ledger.Tax{
		ID:               id,
		Name:             name,
		TypeTaxUse:       "purchase",
		AmountType:       "percent",
		Amount:           rate,
		RepartitionLines: lines,
	}
}

func taxLine(accountID int64, code string, factor float64) ledger.RepartitionLine {
	return ledger.RepartitionLine{Type: "tax", FactorPercent: factor, AccountID: accountID, AccountCode: code}
}

func TestClassifyDeductibleAccounts(t *testing.T) {
	taxes := []ledger.Tax{
		purchaseTax(1, "TVA 20%", 20, taxLine(101, "445661", 100)),
		purchaseTax(2, "TVA 5,5%", 5.5, taxLine(102, "445662", 100)),
		// Sale taxes are not looked at, whatever they point to.
		{ID: 3, Name: "TVA collectée", TypeTaxUse: "sale", AmountType: "percent", Amount: 20,
			RepartitionLines: []ledger.RepartitionLine{taxLine(900, "445710", 100)}},
	}
	accounts, err := ClassifyDeductibleAccounts(taxes, frPrefixes)
	require.NoError(t, err)
	require.Equal(t, map[int64]string{101: "445661", 102: "445662"}, accounts)
}

func TestClassifySkipsReverseChargeAndZeroRate(t *testing.T) {
	taxes := []ledger.Tax{
		purchaseTax(1, "TVA 20%", 20, taxLine(101, "445661", 100)),
		{ID: 2, Name: "TVA intracom", TypeTaxUse: "purchase", AmountType: "percent", Amount: 20,
			ReverseCharge: true, RepartitionLines: []ledger.RepartitionLine{taxLine(200, "445201", 100)}},
		purchaseTax(3, "TVA 0%", 0, taxLine(300, "445663", 100)),
	}
	accounts, err := ClassifyDeductibleAccounts(taxes, frPrefixes)
	require.NoError(t, err)
	require.Equal(t, map[int64]string{101: "445661"}, accounts)
}

func TestClassifyAmbiguousMapping(t *testing.T) {
	taxes := []ledger.Tax{
		purchaseTax(1, "TVA 20%", 20,
			taxLine(101, "445661", 100),
			taxLine(102, "445662", 100)),
	}
	_, err := ClassifyDeductibleAccounts(taxes, frPrefixes)
	require.ErrorIs(t, err, ErrAmbiguousTaxMapping)
	require.Contains(t, err.Error(), "TVA 20%")
}

func TestClassifyMissingMapping(t *testing.T) {
	taxes := []ledger.Tax{
		purchaseTax(1, "TVA 20%", 20, taxLine(101, "445661", 50)),
	}
	_, err := ClassifyDeductibleAccounts(taxes, frPrefixes)
	require.ErrorIs(t, err, ErrAmbiguousTaxMapping)
}

func TestClassifyMisclassifiedAccount(t *testing.T) {
	taxes := []ledger.Tax{
		purchaseTax(1, "TVA 20%", 20, taxLine(101, "601100", 100)),
	}
	_, err := ClassifyDeductibleAccounts(taxes, frPrefixes)
	require.ErrorIs(t, err, ErrMisclassifiedAccount)
	require.Contains(t, err.Error(), "601100")
}

func TestClassifyEmptySet(t *testing.T) {
	_, err := ClassifyDeductibleAccounts(nil, frPrefixes)
	require.ErrorIs(t, err, ErrNoDeductibleAccounts)
}

func TestTaxRatesExcludesZeroRates(t *testing.T) {
	taxes := []ledger.Tax{
		purchaseTax(1, "TVA 20%", 20),
		purchaseTax(2, "TVA 0%", 0),
		purchaseTax(3, "TVA 5,5%", 5.5),
		{ID: 4, Name: "Fixe", TypeTaxUse: "purchase", AmountType: "fixed", Amount: 3},
	}
	rates := TaxRates(taxes)
	require.Equal(t, map[int64]float64{1: 20, 3: 5.5}, rates)
}
