// Package prorata implements the French VAT deductibility pro-rata engine:
// ratio derivation from revenue aggregates, reallocation of deducted input
// VAT across purchase moves, and emission of the balanced adjustment entry.
package prorata

import (
	"time"

	"github.com/ledgerline/prorata/internal/ledger"
)

// State enumerates the period lifecycle.
type State string

const (
	StateDraft State = "draft"
	StateRatio State = "ratio"
	StateDone  State = "done"
)

// TargetMove selects which moves participate.
type TargetMove string

const (
	TargetMoveAll    TargetMove = "all"
	TargetMovePosted TargetMove = "posted"
)

// DefaultMoveLabel is written on the adjustment entry when none is given.
const DefaultMoveLabel = "VAT Pro Rata"

// Period is one pro-rata computation run for a company and date range.
// Unique per (company, date_from, date_to).
type Period struct {
	ID                    int64
	CompanyID             int64
	DateFrom              time.Time
	DateTo                time.Time
	RatioSourceJournalIDs []int64
	SourceJournalIDs      []int64
	TargetMove            TargetMove
	JournalID             int64
	MoveLabel             string
	MoveID                *int64
	ComputedPerct         float64
	UsedPerct             float64
	State                 State
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// SubjectAccountLine is the immutable audit record of one ratio input row.
type SubjectAccountLine struct {
	ID          int64
	PeriodID    int64
	AccountID   int64
	AccountCode string
	VatSubject  ledger.VatSubject
	Debit       float64
	Credit      float64
	Balance     float64
}

// AllocationLine is one original move line touched by the reallocation.
// Exactly one of ProrataVatAmount and CounterpartAmount is set: a line is
// either a VAT line reduced directly, or an expense line carrying the
// counterpart adjustment.
type AllocationLine struct {
	ID                int64
	PeriodID          int64
	MoveLineID        int64
	MoveID            int64
	AccountID         int64
	AccountCode       string
	OriginalAmount    float64
	ProrataVatAmount  float64
	CounterpartAmount float64
	VatRate           float64
	SubPeriodFrom     time.Time
	SubPeriodTo       time.Time
}

// DefaultPeriodDates returns the previous calendar month relative to now.
func DefaultPeriodDates(now time.Time) (time.Time, time.Time) {
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	dateTo := firstOfCurrent.AddDate(0, 0, -1)
	dateFrom := time.Date(dateTo.Year(), dateTo.Month(), 1, 0, 0, 0, 0, time.UTC)
	return dateFrom, dateTo
}
