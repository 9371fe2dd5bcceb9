// Package ledger is the engine's view of the surrounding accounting store:
// read access to accounts, taxes and purchase moves, plus entry creation.
package ledger

import "time"

// VatSubject classifies revenue accounts for the ratio computation.
type VatSubject string

const (
	VatSubjectYes VatSubject = "vat_subject"
	VatSubjectNo  VatSubject = "no_vat_subject"
)

// Company carries the configuration the pro-rata engine needs.
type Company struct {
	ID               int64
	Name             string
	VatProrata       bool
	ProrataJournalID int64
	// CurrencyRounding is the company currency's rounding step (0.01 for EUR).
	CurrencyRounding float64
	// RatioPrecision is the decimal precision of the ratio fields.
	RatioPrecision int
	// DeductiblePrefixes are the account-code prefixes deductible input VAT
	// accounts must carry (French chart: 44562, 44566).
	DeductiblePrefixes []string
}

// Account holds the slice of account configuration the engine reads.
type Account struct {
	ID         int64
	CompanyID  int64
	Code       string
	Name       string
	Type       string
	VatSubject VatSubject
}

// Tax is a purchase tax with its repartition configuration.
type Tax struct {
	ID               int64
	CompanyID        int64
	Name             string
	TypeTaxUse       string
	AmountType       string
	Amount           float64
	ReverseCharge    bool
	RepartitionLines []RepartitionLine
}

// RepartitionLine describes how a tax amount is distributed to accounts.
type RepartitionLine struct {
	ID            int64
	TaxID         int64
	Type          string // "base" or "tax"
	FactorPercent float64
	AccountID     int64
	AccountCode   string
}

// Move is a purchase transaction with its lines.
type Move struct {
	ID        int64
	Ref       string
	JournalID int64
	Date      time.Time
	State     string
	Lines     []MoveLine
}

// MoveLine is one ledger entry line inside a move.
type MoveLine struct {
	ID          int64
	MoveID      int64
	AccountID   int64
	AccountCode string
	Balance     float64
	Date        time.Time
	TaxIDs      []int64
}

// SubjectAggregate is one (account, classification) balance aggregate.
type SubjectAggregate struct {
	AccountID   int64
	AccountCode string
	VatSubject  VatSubject
	Debit       float64
	Credit      float64
	Balance     float64
}

// AggregateQuery bounds the ratio-source aggregation.
type AggregateQuery struct {
	CompanyID  int64
	DateFrom   time.Time
	DateTo     time.Time
	JournalIDs []int64
	PostedOnly bool
}

// MoveQuery bounds the purchase-move scan.
type MoveQuery struct {
	CompanyID    int64
	DateFrom     time.Time
	DateTo       time.Time
	JournalIDs   []int64
	PostedOnly   bool
	DomesticOnly bool
}

// EntryLine is one debit-or-credit line of the adjustment entry.
type EntryLine struct {
	AccountID   int64
	AccountCode string
	Debit       float64
	Credit      float64
}

// EntryInput describes the adjustment entry to create.
type EntryInput struct {
	CompanyID int64
	JournalID int64
	Date      time.Time
	Ref       string
	SourceID  string
	Lines     []EntryLine
}
