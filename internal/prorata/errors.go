package prorata

import "errors"

// Every failure below requires human correction of configuration or source
// data; none is retried. Wrappers add the account codes, move references
// and amounts an operator needs to locate the root cause.
var (
	// Configuration errors.
	ErrProrataDisabled      = errors.New("prorata: company has VAT pro-rata disabled")
	ErrAmbiguousTaxMapping  = errors.New("prorata: tax has no single 100% tax repartition line")
	ErrMisclassifiedAccount = errors.New("prorata: tax account is not a deductible VAT account")
	ErrNoDeductibleAccounts = errors.New("prorata: no deductible VAT accounts configured")

	// Data-integrity errors.
	ErrMoveWithoutExpense = errors.New("prorata: move has VAT lines but no expense lines")
	ErrZeroWeight         = errors.New("prorata: no bucket with a nonzero weight to redistribute against")
	ErrNoAllocationLines  = errors.New("prorata: there are no allocation lines")

	// Input-validation errors.
	ErrInvalidDateRange = errors.New("prorata: date_from must be strictly before date_to")
	ErrDuplicatePeriod  = errors.New("prorata: a period already exists for this company and date range")
	ErrRatioOutOfRange  = errors.New("prorata: used ratio must lie between 0 and 100")
	ErrInvalidState     = errors.New("prorata: operation not allowed in current state")
	ErrPeriodNotFound   = errors.New("prorata: period not found")
)
