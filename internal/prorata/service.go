package prorata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/prorata/internal/ledger"
)

// Locker serialises mutating operations per period.
type Locker interface {
	WithLock(ctx context.Context, periodID int64, fn func(context.Context) error) error
}

// Service exposes the four lifecycle operations plus period plumbing.
// Each mutating operation first deletes its own previously generated rows
// inside the same transaction, so re-running any step never duplicates data.
type Service struct {
	repo   Repository
	ledger ledger.Repository
	locker Locker
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the engine's dependencies.
func NewService(repo Repository, ledgerRepo ledger.Repository, locker Locker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		ledger: ledgerRepo,
		locker: locker,
		logger: logger,
		now:    time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreatePeriodInput groups the fields needed to open a period.
type CreatePeriodInput struct {
	CompanyID             int64
	DateFrom              time.Time
	DateTo                time.Time
	RatioSourceJournalIDs []int64
	SourceJournalIDs      []int64
	TargetMove            TargetMove
	JournalID             int64
	MoveLabel             string
}

// CreatePeriod opens a new draft period. When both dates are omitted the
// period defaults to the previous calendar month. date_from must be strictly
// before date_to; a second period for the same company and range is rejected.
func (s *Service) CreatePeriod(ctx context.Context, in CreatePeriodInput) (Period, error) {
	if in.DateFrom.IsZero() && in.DateTo.IsZero() {
		in.DateFrom, in.DateTo = DefaultPeriodDates(s.now())
	}
	if !in.DateFrom.Before(in.DateTo) {
		return Period{}, fmt.Errorf("%w: %s .. %s", ErrInvalidDateRange,
			in.DateFrom.Format("2006-01-02"), in.DateTo.Format("2006-01-02"))
	}
	company, err := s.ledger.GetCompany(ctx, in.CompanyID)
	if err != nil {
		return Period{}, err
	}
	if !company.VatProrata {
		return Period{}, fmt.Errorf("%w: company %q", ErrProrataDisabled, company.Name)
	}
	p := Period{
		CompanyID:             in.CompanyID,
		DateFrom:              in.DateFrom,
		DateTo:                in.DateTo,
		RatioSourceJournalIDs: in.RatioSourceJournalIDs,
		SourceJournalIDs:      in.SourceJournalIDs,
		TargetMove:            in.TargetMove,
		JournalID:             in.JournalID,
		MoveLabel:             in.MoveLabel,
	}
	if p.TargetMove == "" {
		p.TargetMove = TargetMoveAll
	}
	if p.JournalID == 0 {
		p.JournalID = company.ProrataJournalID
	}
	if p.MoveLabel == "" {
		p.MoveLabel = DefaultMoveLabel
	}
	created, err := s.repo.CreatePeriod(ctx, p)
	if err != nil {
		return Period{}, err
	}
	s.logger.Info("prorata period created",
		slog.Int64("period_id", created.ID),
		slog.Int64("company_id", created.CompanyID))
	return created, nil
}

// GetPeriod returns one period.
func (s *Service) GetPeriod(ctx context.Context, id int64) (Period, error) {
	return s.repo.GetPeriod(ctx, id)
}

// ListPeriods returns the company's periods, newest first.
func (s *Service) ListPeriods(ctx context.Context, companyID int64) ([]Period, error) {
	return s.repo.ListPeriods(ctx, companyID)
}

// Report bundles a period with its derived rows for display.
type Report struct {
	Period          Period
	SubjectLines    []SubjectAccountLine
	AllocationLines []AllocationLine
}

// GetReport loads the full period view.
func (s *Service) GetReport(ctx context.Context, id int64) (Report, error) {
	period, err := s.repo.GetPeriod(ctx, id)
	if err != nil {
		return Report{}, err
	}
	subject, err := s.repo.ListSubjectLines(ctx, id)
	if err != nil {
		return Report{}, err
	}
	alloc, err := s.repo.ListAllocationLines(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return Report{Period: period, SubjectLines: subject, AllocationLines: alloc}, nil
}

// ComputeRatio aggregates the ratio-source journals and sets the period
// ratio, replacing any previously stored subject lines.
func (s *Service) ComputeRatio(ctx context.Context, periodID int64) (Period, error) {
	var out Period
	err := s.withLock(ctx, periodID, func(ctx context.Context) error {
		period, err := s.repo.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		company, err := s.ledger.GetCompany(ctx, period.CompanyID)
		if err != nil {
			return err
		}
		if !company.VatProrata {
			return fmt.Errorf("%w: company %q", ErrProrataDisabled, company.Name)
		}
		aggregates, err := s.ledger.AggregateSubjectBalances(ctx, ledger.AggregateQuery{
			CompanyID:  period.CompanyID,
			DateFrom:   period.DateFrom,
			DateTo:     period.DateTo,
			JournalIDs: period.RatioSourceJournalIDs,
			PostedOnly: period.TargetMove == TargetMovePosted,
		})
		if err != nil {
			return err
		}
		res := ReduceRatio(aggregates, company.CurrencyRounding, company.RatioPrecision)

		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			p, err := tx.GetPeriodForUpdate(ctx, periodID)
			if err != nil {
				return err
			}
			if p.State == StateDone {
				return fmt.Errorf("%w: period is done, reset it first", ErrInvalidState)
			}
			if err := tx.DeleteAllocationLines(ctx, p.ID); err != nil {
				return err
			}
			if err := tx.DeleteSubjectLines(ctx, p.ID); err != nil {
				return err
			}
			subjectLines := make([]SubjectAccountLine, 0, len(res.Retained))
			for _, row := range res.Retained {
				subjectLines = append(subjectLines, SubjectAccountLine{
					PeriodID:    p.ID,
					AccountID:   row.AccountID,
					AccountCode: row.AccountCode,
					VatSubject:  row.VatSubject,
					Debit:       row.Debit,
					Credit:      row.Credit,
					Balance:     row.Balance,
				})
			}
			if err := tx.InsertSubjectLines(ctx, subjectLines); err != nil {
				return err
			}
			p.ComputedPerct = res.Ratio
			p.UsedPerct = res.Ratio
			p.State = StateRatio
			if err := tx.UpdatePeriod(ctx, p); err != nil {
				return err
			}
			out = p
			return nil
		})
	})
	if err != nil {
		return Period{}, err
	}
	s.logger.Info("prorata ratio computed",
		slog.Int64("period_id", out.ID),
		slog.Float64("ratio", out.ComputedPerct))
	return out, nil
}

// UpdateUsedPerct overrides the used ratio after computation.
func (s *Service) UpdateUsedPerct(ctx context.Context, periodID int64, perct float64) (Period, error) {
	if perct < 0 || perct > 100 {
		return Period{}, fmt.Errorf("%w: got %v", ErrRatioOutOfRange, perct)
	}
	var out Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPeriodForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if p.State == StateDone {
			return fmt.Errorf("%w: used ratio is frozen once booked", ErrInvalidState)
		}
		p.UsedPerct = perct
		if err := tx.UpdatePeriod(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	return out, nil
}

// GenerateLines recomputes the allocation lines for the period. Idempotent:
// previously generated lines are replaced within the same transaction.
func (s *Service) GenerateLines(ctx context.Context, periodID int64) ([]AllocationLine, error) {
	var out []AllocationLine
	err := s.withLock(ctx, periodID, func(ctx context.Context) error {
		prep, err := s.prepareAllocations(ctx, periodID)
		if err != nil {
			return err
		}
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := s.replaceAllocationLines(ctx, tx, periodID, prep.lines); err != nil {
				return err
			}
			out = prep.lines
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("prorata allocation lines generated",
		slog.Int64("period_id", periodID),
		slog.Int("lines", len(out)))
	return out, nil
}

// GenerateMove regenerates the allocation lines, builds the balanced
// adjustment entry and books it; the period moves to done. Everything
// happens in one transaction.
func (s *Service) GenerateMove(ctx context.Context, periodID int64) (Period, error) {
	var out Period
	err := s.withLock(ctx, periodID, func(ctx context.Context) error {
		prep, err := s.prepareAllocations(ctx, periodID)
		if err != nil {
			return err
		}
		entryLines, err := BuildEntryLines(prep.lines, prep.company.CurrencyRounding)
		if err != nil {
			return err
		}
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			p, err := tx.GetPeriodForUpdate(ctx, periodID)
			if err != nil {
				return err
			}
			if p.State != StateRatio {
				return fmt.Errorf("%w: expected state %s, got %s", ErrInvalidState, StateRatio, p.State)
			}
			if err := s.replaceAllocationLines(ctx, tx, periodID, prep.lines); err != nil {
				return err
			}
			entryID, err := tx.CreateLedgerEntry(ctx, ledger.EntryInput{
				CompanyID: p.CompanyID,
				JournalID: p.JournalID,
				Date:      p.DateTo,
				Ref:       p.MoveLabel,
				SourceID:  uuid.NewString(),
				Lines:     entryLines,
			})
			if err != nil {
				return err
			}
			p.State = StateDone
			p.MoveID = &entryID
			if err := tx.UpdatePeriod(ctx, p); err != nil {
				return err
			}
			out = p
			return nil
		})
	})
	if err != nil {
		return Period{}, err
	}
	s.logger.Info("prorata adjustment entry booked",
		slog.Int64("period_id", out.ID),
		slog.Int64("move_id", *out.MoveID))
	return out, nil
}

// ResetToDraft discards all derived rows and the booked entry.
func (s *Service) ResetToDraft(ctx context.Context, periodID int64) (Period, error) {
	var out Period
	err := s.withLock(ctx, periodID, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			p, err := tx.GetPeriodForUpdate(ctx, periodID)
			if err != nil {
				return err
			}
			if err := tx.DeleteAllocationLines(ctx, p.ID); err != nil {
				return err
			}
			if err := tx.DeleteSubjectLines(ctx, p.ID); err != nil {
				return err
			}
			if p.MoveID != nil {
				if err := tx.DeleteLedgerEntry(ctx, *p.MoveID); err != nil {
					return err
				}
			}
			p.State = StateDraft
			p.MoveID = nil
			if err := tx.UpdatePeriod(ctx, p); err != nil {
				return err
			}
			out = p
			return nil
		})
	})
	if err != nil {
		return Period{}, err
	}
	s.logger.Info("prorata period reset to draft", slog.Int64("period_id", out.ID))
	return out, nil
}

type preparedAllocations struct {
	period  Period
	company ledger.Company
	lines   []AllocationLine
}

// prepareAllocations runs the classifier, partitioner and allocator against
// the current ledger snapshot, without touching storage.
func (s *Service) prepareAllocations(ctx context.Context, periodID int64) (preparedAllocations, error) {
	period, err := s.repo.GetPeriod(ctx, periodID)
	if err != nil {
		return preparedAllocations{}, err
	}
	if period.State != StateRatio {
		return preparedAllocations{}, fmt.Errorf("%w: expected state %s, got %s",
			ErrInvalidState, StateRatio, period.State)
	}
	if period.UsedPerct < 0 || period.UsedPerct > 100 {
		return preparedAllocations{}, fmt.Errorf("%w: got %v", ErrRatioOutOfRange, period.UsedPerct)
	}
	company, err := s.ledger.GetCompany(ctx, period.CompanyID)
	if err != nil {
		return preparedAllocations{}, err
	}
	if !company.VatProrata {
		return preparedAllocations{}, fmt.Errorf("%w: company %q", ErrProrataDisabled, company.Name)
	}
	taxes, err := s.ledger.ListPurchaseTaxes(ctx, period.CompanyID)
	if err != nil {
		return preparedAllocations{}, err
	}
	deductible, err := ClassifyDeductibleAccounts(taxes, company.DeductiblePrefixes)
	if err != nil {
		return preparedAllocations{}, err
	}
	accountTypes, err := s.ledger.AccountTypes(ctx, period.CompanyID)
	if err != nil {
		return preparedAllocations{}, err
	}
	moves, err := s.ledger.ListMoves(ctx, ledger.MoveQuery{
		CompanyID:    period.CompanyID,
		DateFrom:     period.DateFrom,
		DateTo:       period.DateTo,
		JournalIDs:   period.SourceJournalIDs,
		PostedOnly:   period.TargetMove == TargetMovePosted,
		DomesticOnly: true,
	})
	if err != nil {
		return preparedAllocations{}, err
	}
	parts, err := PartitionMoves(moves, PartitionInput{
		DeductibleAccounts: deductible,
		AccountTypes:       accountTypes,
		TaxRates:           TaxRates(taxes),
		RemainingFraction:  (100 - period.UsedPerct) / 100,
		CurrencyRounding:   company.CurrencyRounding,
	})
	if err != nil {
		return preparedAllocations{}, err
	}
	var lines []AllocationLine
	for _, part := range parts {
		allocated, err := Allocate(part, company.CurrencyRounding)
		if err != nil {
			return preparedAllocations{}, err
		}
		for i := range allocated {
			allocated[i].PeriodID = periodID
			allocated[i].SubPeriodFrom = period.DateFrom
			allocated[i].SubPeriodTo = period.DateTo
		}
		lines = append(lines, allocated...)
	}
	return preparedAllocations{period: period, company: company, lines: lines}, nil
}

func (s *Service) replaceAllocationLines(ctx context.Context, tx TxRepository, periodID int64, lines []AllocationLine) error {
	if err := tx.DeleteAllocationLines(ctx, periodID); err != nil {
		return err
	}
	return tx.InsertAllocationLines(ctx, lines)
}

func (s *Service) withLock(ctx context.Context, periodID int64, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, periodID, fn)
}
