// Package vatreturn applies the pro-rata ratio when a VAT return processes
// input VAT on payment: deducted amounts are scaled down by the used ratio
// of the period ending on the return's end date.
package vatreturn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerline/prorata/internal/prorata"
	"github.com/ledgerline/prorata/internal/shared"
)

var (
	// ErrMissingProrata indicates no pro-rata period exists for the return period.
	ErrMissingProrata = errors.New("vatreturn: no VAT pro-rata period ends on the return's end date")
	// ErrProrataNotDone indicates the pro-rata process is unfinished.
	ErrProrataNotDone = errors.New("vatreturn: the VAT pro-rata process must be finished before the return")
)

// PeriodFinder locates pro-rata periods by company and end date.
type PeriodFinder interface {
	FindPeriodByEndDate(ctx context.Context, companyID int64, dateTo time.Time) (prorata.Period, error)
}

// PaymentLog is one VAT-on-payment amount about to be deducted.
type PaymentLog struct {
	AccountID int64
	Amount    float64
	Note      string
}

// Service scales payment logs by the pro-rata ratio.
type Service struct {
	finder PeriodFinder
	logger *slog.Logger
}

// NewService constructs the integration service.
func NewService(finder PeriodFinder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{finder: finder, logger: logger}
}

// ApplyProrata finds the done pro-rata period ending on endDate and, when
// the used ratio is below 100, scales every log amount by ratio/100 and
// appends an explanatory note. Logs are returned unchanged at ratio 100.
func (s *Service) ApplyProrata(ctx context.Context, companyID int64, endDate time.Time, logs []PaymentLog) ([]PaymentLog, error) {
	period, err := s.finder.FindPeriodByEndDate(ctx, companyID, endDate)
	if err != nil {
		if errors.Is(err, prorata.ErrPeriodNotFound) {
			return nil, fmt.Errorf("%w: company %d, end date %s",
				ErrMissingProrata, companyID, endDate.Format("2006-01-02"))
		}
		return nil, err
	}
	if period.State != prorata.StateDone {
		return nil, fmt.Errorf("%w: period %d is in state %s",
			ErrProrataNotDone, period.ID, period.State)
	}
	ratio := period.UsedPerct
	if ratio < 0 || ratio > 100 {
		return nil, fmt.Errorf("%w: got %v", prorata.ErrRatioOutOfRange, ratio)
	}
	if ratio == 100 {
		return logs, nil
	}

	out := make([]PaymentLog, 0, len(logs))
	for _, log := range logs {
		scaled := log
		scaled.Amount = log.Amount * ratio / 100
		scaled.Note = log.Note + fmt.Sprintf(" => VAT prorata ratio %v %% VAT amount: %s",
			ratio, shared.FormatAmount(scaled.Amount))
		out = append(out, scaled)
	}
	s.logger.Info("vat return scaled by prorata ratio",
		slog.Int64("period_id", period.ID),
		slog.Float64("ratio", ratio),
		slog.Int("logs", len(out)))
	return out, nil
}
