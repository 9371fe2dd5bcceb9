package prorata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/prorata/internal/ledger"
	"github.com/ledgerline/prorata/internal/platform/db"
)

// uniqueViolation is the postgres SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// Repository encapsulates persistence for periods and their derived rows.
type Repository interface {
	CreatePeriod(ctx context.Context, p Period) (Period, error)
	GetPeriod(ctx context.Context, id int64) (Period, error)
	ListPeriods(ctx context.Context, companyID int64) ([]Period, error)
	FindPeriodByEndDate(ctx context.Context, companyID int64, dateTo time.Time) (Period, error)
	ListSubjectLines(ctx context.Context, periodID int64) ([]SubjectAccountLine, error)
	ListAllocationLines(ctx context.Context, periodID int64) ([]AllocationLine, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available within a transaction.
// Ledger entry creation and deletion live here too so the adjustment entry
// commits or rolls back together with the period state change.
type TxRepository interface {
	GetPeriodForUpdate(ctx context.Context, id int64) (Period, error)
	UpdatePeriod(ctx context.Context, p Period) error
	DeleteSubjectLines(ctx context.Context, periodID int64) error
	DeleteAllocationLines(ctx context.Context, periodID int64) error
	InsertSubjectLines(ctx context.Context, lines []SubjectAccountLine) error
	InsertAllocationLines(ctx context.Context, lines []AllocationLine) error
	CreateLedgerEntry(ctx context.Context, in ledger.EntryInput) (int64, error)
	DeleteLedgerEntry(ctx context.Context, entryID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, company_id, date_from, date_to, ratio_source_journal_ids,
source_journal_ids, target_move, journal_id, move_label, move_id,
computed_perct, used_perct, state, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.CompanyID, &p.DateFrom, &p.DateTo, &p.RatioSourceJournalIDs,
		&p.SourceJournalIDs, &p.TargetMove, &p.JournalID, &p.MoveLabel, &p.MoveID,
		&p.ComputedPerct, &p.UsedPerct, &p.State, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) CreatePeriod(ctx context.Context, p Period) (Period, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO vat_prorata_periods
(company_id, date_from, date_to, ratio_source_journal_ids, source_journal_ids,
 target_move, journal_id, move_label, state)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'draft')
RETURNING `+periodColumns,
		p.CompanyID, p.DateFrom, p.DateTo, p.RatioSourceJournalIDs, p.SourceJournalIDs,
		p.TargetMove, p.JournalID, p.MoveLabel)
	created, err := scanPeriod(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Period{}, ErrDuplicatePeriod
		}
		return Period{}, fmt.Errorf("prorata: create period: %w", err)
	}
	return created, nil
}

func (r *repository) GetPeriod(ctx context.Context, id int64) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM vat_prorata_periods WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, fmt.Errorf("prorata: get period: %w", err)
	}
	return p, nil
}

func (r *repository) ListPeriods(ctx context.Context, companyID int64) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+`
FROM vat_prorata_periods WHERE company_id=$1 ORDER BY date_to DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("prorata: list periods: %w", err)
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) FindPeriodByEndDate(ctx context.Context, companyID int64, dateTo time.Time) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+`
FROM vat_prorata_periods WHERE company_id=$1 AND date_to=$2 ORDER BY id LIMIT 1`,
		companyID, dateTo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, fmt.Errorf("prorata: find period by end date: %w", err)
	}
	return p, nil
}

func (r *repository) ListSubjectLines(ctx context.Context, periodID int64) ([]SubjectAccountLine, error) {
	rows, err := r.db.Query(ctx, `SELECT id, period_id, account_id, account_code, vat_subject, debit, credit, balance
FROM vat_prorata_subject_lines WHERE period_id=$1 ORDER BY account_code`, periodID)
	if err != nil {
		return nil, fmt.Errorf("prorata: list subject lines: %w", err)
	}
	defer rows.Close()
	var out []SubjectAccountLine
	for rows.Next() {
		var l SubjectAccountLine
		if err := rows.Scan(&l.ID, &l.PeriodID, &l.AccountID, &l.AccountCode, &l.VatSubject, &l.Debit, &l.Credit, &l.Balance); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) ListAllocationLines(ctx context.Context, periodID int64) ([]AllocationLine, error) {
	rows, err := r.db.Query(ctx, `SELECT id, period_id, move_line_id, move_id, account_id, account_code,
original_amount, prorata_vat_amount, counterpart_amount, vat_rate, sub_period_from, sub_period_to
FROM vat_prorata_allocation_lines WHERE period_id=$1 ORDER BY id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("prorata: list allocation lines: %w", err)
	}
	defer rows.Close()
	var out []AllocationLine
	for rows.Next() {
		var l AllocationLine
		if err := rows.Scan(&l.ID, &l.PeriodID, &l.MoveLineID, &l.MoveID, &l.AccountID, &l.AccountCode,
			&l.OriginalAmount, &l.ProrataVatAmount, &l.CounterpartAmount, &l.VatRate,
			&l.SubPeriodFrom, &l.SubPeriodTo); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, id int64) (Period, error) {
	p, err := scanPeriod(r.tx.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM vat_prorata_periods WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, fmt.Errorf("prorata: get period for update: %w", err)
	}
	return p, nil
}

func (r *txRepository) UpdatePeriod(ctx context.Context, p Period) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vat_prorata_periods
SET computed_perct=$2, used_perct=$3, state=$4, move_id=$5, move_label=$6, updated_at=NOW()
WHERE id=$1`, p.ID, p.ComputedPerct, p.UsedPerct, p.State, p.MoveID, p.MoveLabel)
	if err != nil {
		return fmt.Errorf("prorata: update period: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrPeriodNotFound
	}
	return nil
}

func (r *txRepository) DeleteSubjectLines(ctx context.Context, periodID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM vat_prorata_subject_lines WHERE period_id=$1`, periodID)
	if err != nil {
		return fmt.Errorf("prorata: delete subject lines: %w", err)
	}
	return nil
}

func (r *txRepository) DeleteAllocationLines(ctx context.Context, periodID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM vat_prorata_allocation_lines WHERE period_id=$1`, periodID)
	if err != nil {
		return fmt.Errorf("prorata: delete allocation lines: %w", err)
	}
	return nil
}

func (r *txRepository) InsertSubjectLines(ctx context.Context, lines []SubjectAccountLine) error {
	for _, l := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO vat_prorata_subject_lines
(period_id, account_id, account_code, vat_subject, debit, credit, balance)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			l.PeriodID, l.AccountID, l.AccountCode, l.VatSubject, l.Debit, l.Credit, l.Balance); err != nil {
			return fmt.Errorf("prorata: insert subject line: %w", err)
		}
	}
	return nil
}

func (r *txRepository) InsertAllocationLines(ctx context.Context, lines []AllocationLine) error {
	for _, l := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO vat_prorata_allocation_lines
(period_id, move_line_id, move_id, account_id, account_code, original_amount,
 prorata_vat_amount, counterpart_amount, vat_rate, sub_period_from, sub_period_to)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			l.PeriodID, l.MoveLineID, l.MoveID, l.AccountID, l.AccountCode, l.OriginalAmount,
			l.ProrataVatAmount, l.CounterpartAmount, l.VatRate, l.SubPeriodFrom, l.SubPeriodTo); err != nil {
			return fmt.Errorf("prorata: insert allocation line: %w", err)
		}
	}
	return nil
}

// CreateLedgerEntry books the adjustment entry within this transaction.
// Move insertion is duplicated from the ledger collaborator because it must
// share the transaction context.
func (r *txRepository) CreateLedgerEntry(ctx context.Context, in ledger.EntryInput) (int64, error) {
	var entryID int64
	err := r.tx.QueryRow(ctx, `INSERT INTO moves (company_id, journal_id, date, ref, source_id, state)
VALUES ($1,$2,$3,$4,$5,'posted') RETURNING id`,
		in.CompanyID, in.JournalID, in.Date, in.Ref, in.SourceID).Scan(&entryID)
	if err != nil {
		return 0, fmt.Errorf("prorata: create adjustment entry: %w", err)
	}
	for _, line := range in.Lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO move_lines (move_id, account_id, debit, credit, date, label)
VALUES ($1,$2,$3,$4,$5,$6)`,
			entryID, line.AccountID, line.Debit, line.Credit, in.Date, in.Ref); err != nil {
			return 0, fmt.Errorf("prorata: create adjustment entry line: %w", err)
		}
	}
	return entryID, nil
}

func (r *txRepository) DeleteLedgerEntry(ctx context.Context, entryID int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM move_lines WHERE move_id=$1`, entryID); err != nil {
		return fmt.Errorf("prorata: delete adjustment entry lines: %w", err)
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM moves WHERE id=$1`, entryID); err != nil {
		return fmt.Errorf("prorata: delete adjustment entry: %w", err)
	}
	return nil
}
