package prorata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/prorata/internal/ledger"
)

func basePartitionInput() PartitionInput {
	return PartitionInput{
		DeductibleAccounts: map[int64]string{101: "445661"},
		AccountTypes:       map[int64]string{101: "other", 601: "other", 602: "other", 512: "liquidity"},
		TaxRates:           map[int64]float64{1: 20},
		RemainingFraction:  0.75,
		CurrencyRounding:   0.01,
	}
}

func TestPartitionSplitsBuckets(t *testing.T) {
	moves := []ledger.Move{{
		ID:  10,
		Ref: "BILL/2025/0042",
		Lines: []ledger.MoveLine{
			{ID: 1, AccountID: 101, AccountCode: "445661", Balance: -200},
			{ID: 2, AccountID: 601, AccountCode: "601100", Balance: 1000, TaxIDs: []int64{1}},
			{ID: 3, AccountID: 602, AccountCode: "602200", Balance: 50},
			{ID: 4, AccountID: 512, AccountCode: "512000", Balance: -850},
		},
	}}
	parts, err := PartitionMoves(moves, basePartitionInput())
	require.NoError(t, err)
	require.Len(t, parts, 1)

	part := parts[0]
	require.Len(t, part.Vat, 1)
	require.InDelta(t, -150, part.Vat[0].ProrataAmount, 1e-9)
	require.InDelta(t, -150, part.TotalVat, 1e-9)

	require.Len(t, part.OtherTax, 1)
	require.InDelta(t, 20*1000, part.TotalWeightOtherTax, 1e-9)

	// The no-tax line weighs its full balance at a pinned rate of 100.
	require.Len(t, part.OtherNoTax, 1)
	require.InDelta(t, float64(100), part.OtherNoTax[0].VatRate, 1e-9)
	require.InDelta(t, 100*50, part.TotalWeightOtherNoTax, 1e-9)
}

func TestPartitionAccumulatesRoundedAmounts(t *testing.T) {
	// Each product rounds individually; the total must equal the sum of the
	// rounded per-line amounts, not the rounded sum of raw products.
	in := basePartitionInput()
	in.RemainingFraction = 0.335
	moves := []ledger.Move{{
		ID: 11,
		Lines: []ledger.MoveLine{
			{ID: 1, AccountID: 101, Balance: -10.01},
			{ID: 2, AccountID: 101, Balance: -10.01},
			{ID: 3, AccountID: 601, Balance: 100, TaxIDs: []int64{1}},
		},
	}}
	parts, err := PartitionMoves(moves, in)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	// 0.335 * -10.01 = -3.35335 → -3.35 per line.
	require.InDelta(t, -6.70, parts[0].TotalVat, 1e-9)
}

func TestPartitionSkipsZeroBalanceLines(t *testing.T) {
	moves := []ledger.Move{{
		ID: 12,
		Lines: []ledger.MoveLine{
			{ID: 1, AccountID: 101, Balance: 0.001},
			{ID: 2, AccountID: 601, Balance: 100, TaxIDs: []int64{1}},
		},
	}}
	parts, err := PartitionMoves(moves, basePartitionInput())
	require.NoError(t, err)
	require.Empty(t, parts, "a move without VAT lines is dropped")
}

func TestPartitionVatOnlyMoveFails(t *testing.T) {
	moves := []ledger.Move{{
		ID:  13,
		Ref: "BILL/2025/0099",
		Lines: []ledger.MoveLine{
			{ID: 1, AccountID: 101, Balance: -40},
			{ID: 2, AccountID: 512, Balance: 40},
		},
	}}
	_, err := PartitionMoves(moves, basePartitionInput())
	require.ErrorIs(t, err, ErrMoveWithoutExpense)
	require.Contains(t, err.Error(), "BILL/2025/0099")
}

func TestPartitionFirstLinkedTaxWins(t *testing.T) {
	in := basePartitionInput()
	in.TaxRates = map[int64]float64{1: 20, 2: 5.5}
	moves := []ledger.Move{{
		ID: 14,
		Lines: []ledger.MoveLine{
			{ID: 1, AccountID: 101, Balance: -20},
			{ID: 2, AccountID: 601, Balance: 100, TaxIDs: []int64{2, 1}},
		},
	}}
	parts, err := PartitionMoves(moves, in)
	require.NoError(t, err)
	require.InDelta(t, 5.5, parts[0].OtherTax[0].VatRate, 1e-9)
}
