package vatreturn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/prorata/internal/prorata"
)

type stubFinder struct {
	period prorata.Period
	err    error
}

func (s *stubFinder) FindPeriodByEndDate(_ context.Context, _ int64, _ time.Time) (prorata.Period, error) {
	return s.period, s.err
}

func endOfJanuary() time.Time {
	return time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
}

func donePeriod(usedPerct float64) prorata.Period {
	return prorata.Period{
		ID:        7,
		CompanyID: 1,
		DateFrom:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:    endOfJanuary(),
		State:     prorata.StateDone,
		UsedPerct: usedPerct,
	}
}

func TestApplyProrataScalesAmounts(t *testing.T) {
	svc := NewService(&stubFinder{period: donePeriod(25)}, nil)

	out, err := svc.ApplyProrata(context.Background(), 1, endOfJanuary(), []PaymentLog{
		{AccountID: 101, Amount: 200, Note: "TVA 20%"},
		{AccountID: 102, Amount: 55.50, Note: "TVA 5.5%"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.InDelta(t, 50, out[0].Amount, 1e-9)
	require.InDelta(t, 13.875, out[1].Amount, 1e-9)
	require.Contains(t, out[0].Note, "TVA 20%")
	require.Contains(t, out[0].Note, "VAT prorata ratio 25")
}

func TestApplyProrataFullRatioLeavesLogsUntouched(t *testing.T) {
	svc := NewService(&stubFinder{period: donePeriod(100)}, nil)

	logs := []PaymentLog{{AccountID: 101, Amount: 200, Note: "TVA 20%"}}
	out, err := svc.ApplyProrata(context.Background(), 1, endOfJanuary(), logs)
	require.NoError(t, err)
	require.Equal(t, logs, out)
}

func TestApplyProrataMissingPeriod(t *testing.T) {
	svc := NewService(&stubFinder{err: prorata.ErrPeriodNotFound}, nil)

	_, err := svc.ApplyProrata(context.Background(), 1, endOfJanuary(), nil)
	require.ErrorIs(t, err, ErrMissingProrata)
}

func TestApplyProrataUnfinishedPeriod(t *testing.T) {
	period := donePeriod(25)
	period.State = prorata.StateRatio
	svc := NewService(&stubFinder{period: period}, nil)

	_, err := svc.ApplyProrata(context.Background(), 1, endOfJanuary(), nil)
	require.ErrorIs(t, err, ErrProrataNotDone)
}
