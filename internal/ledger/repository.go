package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCompanyNotFound indicates an unknown company id.
var ErrCompanyNotFound = errors.New("ledger: company not found")

// Repository exposes the read queries the engine consumes. Entry creation
// and deletion happen inside the pro-rata transaction repository so they
// share the surrounding transaction.
type Repository interface {
	GetCompany(ctx context.Context, id int64) (Company, error)
	AggregateSubjectBalances(ctx context.Context, q AggregateQuery) ([]SubjectAggregate, error)
	ListPurchaseTaxes(ctx context.Context, companyID int64) ([]Tax, error)
	AccountTypes(ctx context.Context, companyID int64) (map[int64]string, error)
	ListMoves(ctx context.Context, q MoveQuery) ([]Move, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed ledger repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetCompany(ctx context.Context, id int64) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `SELECT id, name, vat_prorata, COALESCE(vat_prorata_journal_id, 0),
currency_rounding, ratio_precision, vat_deductible_prefixes
FROM companies WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.VatProrata, &c.ProrataJournalID, &c.CurrencyRounding, &c.RatioPrecision, &c.DeductiblePrefixes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrCompanyNotFound
		}
		return Company{}, fmt.Errorf("ledger: get company: %w", err)
	}
	return c, nil
}

// AggregateSubjectBalances sums debit/credit/balance per (account,
// classification) over the ratio-source journals, ordered by account code.
func (r *repository) AggregateSubjectBalances(ctx context.Context, q AggregateQuery) ([]SubjectAggregate, error) {
	query := `SELECT ml.account_id, a.code, a.vat_subject,
SUM(ml.debit), SUM(ml.credit), SUM(ml.debit) - SUM(ml.credit)
FROM move_lines ml
JOIN moves m ON m.id = ml.move_id
JOIN accounts a ON a.id = ml.account_id
WHERE a.vat_subject IN ('vat_subject', 'no_vat_subject')
AND m.company_id = $1
AND m.date >= $2 AND m.date <= $3
AND m.journal_id = ANY($4)`
	if q.PostedOnly {
		query += ` AND m.state = 'posted'`
	}
	query += `
GROUP BY ml.account_id, a.code, a.vat_subject
ORDER BY a.code`

	rows, err := r.pool.Query(ctx, query, q.CompanyID, q.DateFrom, q.DateTo, q.JournalIDs)
	if err != nil {
		return nil, fmt.Errorf("ledger: aggregate subject balances: %w", err)
	}
	defer rows.Close()
	var out []SubjectAggregate
	for rows.Next() {
		var agg SubjectAggregate
		if err := rows.Scan(&agg.AccountID, &agg.AccountCode, &agg.VatSubject, &agg.Debit, &agg.Credit, &agg.Balance); err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

func (r *repository) ListPurchaseTaxes(ctx context.Context, companyID int64) ([]Tax, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, name, type_tax_use, amount_type, amount, reverse_charge
FROM taxes
WHERE company_id = $1 AND type_tax_use = 'purchase'
ORDER BY id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list purchase taxes: %w", err)
	}
	defer rows.Close()
	var taxes []Tax
	index := make(map[int64]int)
	for rows.Next() {
		var t Tax
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.Name, &t.TypeTaxUse, &t.AmountType, &t.Amount, &t.ReverseCharge); err != nil {
			return nil, err
		}
		index[t.ID] = len(taxes)
		taxes = append(taxes, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(taxes) == 0 {
		return nil, nil
	}

	repRows, err := r.pool.Query(ctx, `SELECT rl.id, rl.tax_id, rl.repartition_type, rl.factor_percent,
COALESCE(rl.account_id, 0), COALESCE(a.code, '')
FROM tax_repartition_lines rl
LEFT JOIN accounts a ON a.id = rl.account_id
JOIN taxes t ON t.id = rl.tax_id
WHERE t.company_id = $1 AND rl.document_type = 'invoice'
ORDER BY rl.id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list tax repartition lines: %w", err)
	}
	defer repRows.Close()
	for repRows.Next() {
		var rl RepartitionLine
		if err := repRows.Scan(&rl.ID, &rl.TaxID, &rl.Type, &rl.FactorPercent, &rl.AccountID, &rl.AccountCode); err != nil {
			return nil, err
		}
		if i, ok := index[rl.TaxID]; ok {
			taxes[i].RepartitionLines = append(taxes[i].RepartitionLines, rl)
		}
	}
	return taxes, repRows.Err()
}

func (r *repository) AccountTypes(ctx context.Context, companyID int64) (map[int64]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, account_type FROM accounts WHERE company_id = $1`, companyID)
	if err != nil {
		return nil, fmt.Errorf("ledger: account types: %w", err)
	}
	defer rows.Close()
	types := make(map[int64]string)
	for rows.Next() {
		var id int64
		var accType string
		if err := rows.Scan(&id, &accType); err != nil {
			return nil, err
		}
		types[id] = accType
	}
	return types, rows.Err()
}

// ListMoves loads purchase moves with their lines. Line order inside each
// move is ascending line id; the allocator relies on it being stable.
func (r *repository) ListMoves(ctx context.Context, q MoveQuery) ([]Move, error) {
	query := `SELECT m.id, m.ref, m.journal_id, m.date, m.state
FROM moves m
WHERE m.company_id = $1
AND m.date >= $2 AND m.date <= $3
AND m.journal_id = ANY($4)`
	if q.PostedOnly {
		query += ` AND m.state = 'posted'`
	}
	if q.DomesticOnly {
		query += ` AND (m.fiscal_position IS NULL OR m.fiscal_position = 'domestic')`
	}
	query += ` ORDER BY m.id`

	rows, err := r.pool.Query(ctx, query, q.CompanyID, q.DateFrom, q.DateTo, q.JournalIDs)
	if err != nil {
		return nil, fmt.Errorf("ledger: list moves: %w", err)
	}
	defer rows.Close()
	var moves []Move
	index := make(map[int64]int)
	var ids []int64
	for rows.Next() {
		var m Move
		if err := rows.Scan(&m.ID, &m.Ref, &m.JournalID, &m.Date, &m.State); err != nil {
			return nil, err
		}
		index[m.ID] = len(moves)
		moves = append(moves, m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(moves) == 0 {
		return nil, nil
	}

	lineRows, err := r.pool.Query(ctx, `SELECT ml.id, ml.move_id, ml.account_id, a.code,
ml.debit - ml.credit, ml.date,
COALESCE(array_agg(mlt.tax_id ORDER BY mlt.tax_id) FILTER (WHERE mlt.tax_id IS NOT NULL), '{}')
FROM move_lines ml
JOIN accounts a ON a.id = ml.account_id
LEFT JOIN move_line_taxes mlt ON mlt.move_line_id = ml.id
WHERE ml.move_id = ANY($1)
GROUP BY ml.id, ml.move_id, ml.account_id, a.code, ml.debit, ml.credit, ml.date
ORDER BY ml.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("ledger: list move lines: %w", err)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var line MoveLine
		if err := lineRows.Scan(&line.ID, &line.MoveID, &line.AccountID, &line.AccountCode, &line.Balance, &line.Date, &line.TaxIDs); err != nil {
			return nil, err
		}
		if i, ok := index[line.MoveID]; ok {
			moves[i].Lines = append(moves[i].Lines, line)
		}
	}
	return moves, lineRows.Err()
}
