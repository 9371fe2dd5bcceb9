package prorata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/prorata/internal/ledger"
)

func TestReduceRatioMixedRevenue(t *testing.T) {
	rows := []ledger.SubjectAggregate{
		{AccountID: 1, AccountCode: "706100", VatSubject: ledger.VatSubjectYes, Debit: 0, Credit: 1000, Balance: 1000},
		{AccountID: 2, AccountCode: "706200", VatSubject: ledger.VatSubjectNo, Debit: 0, Credit: 3000, Balance: 3000},
	}
	res := ReduceRatio(rows, 0.01, 2)
	require.InDelta(t, 25.0, res.Ratio, 1e-9)
	require.Len(t, res.Retained, 2)
}

func TestReduceRatioZeroTotal(t *testing.T) {
	rows := []ledger.SubjectAggregate{
		{AccountID: 1, VatSubject: ledger.VatSubjectYes, Debit: 500, Credit: 500, Balance: 0},
		{AccountID: 2, VatSubject: ledger.VatSubjectNo, Debit: 200, Credit: 200, Balance: 0},
	}
	res := ReduceRatio(rows, 0.01, 2)
	require.Zero(t, res.Ratio)
	require.Len(t, res.Retained, 2)
}

func TestReduceRatioDropsEmptyRows(t *testing.T) {
	rows := []ledger.SubjectAggregate{
		{AccountID: 1, VatSubject: ledger.VatSubjectYes, Debit: 0, Credit: 800, Balance: 800},
		{AccountID: 2, VatSubject: ledger.VatSubjectNo, Debit: 0.001, Credit: 0.002, Balance: -0.001},
	}
	res := ReduceRatio(rows, 0.01, 2)
	require.Len(t, res.Retained, 1)
	require.InDelta(t, 100.0, res.Ratio, 1e-9)
}

func TestReduceRatioRoundsToPrecision(t *testing.T) {
	rows := []ledger.SubjectAggregate{
		{AccountID: 1, VatSubject: ledger.VatSubjectYes, Credit: 1, Balance: 1},
		{AccountID: 2, VatSubject: ledger.VatSubjectNo, Credit: 2, Balance: 2},
	}
	res := ReduceRatio(rows, 0.01, 2)
	require.InDelta(t, 33.33, res.Ratio, 1e-9)
}
