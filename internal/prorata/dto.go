package prorata

import "time"

// CreatePeriodRequest is the JSON payload for opening a period.
type CreatePeriodRequest struct {
	CompanyID             int64   `json:"company_id" validate:"required,gt=0"`
	DateFrom              string  `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo                string  `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	RatioSourceJournalIDs []int64 `json:"ratio_source_journal_ids" validate:"required,min=1,dive,gt=0"`
	SourceJournalIDs      []int64 `json:"source_journal_ids" validate:"required,min=1,dive,gt=0"`
	TargetMove            string  `json:"target_move" validate:"omitempty,oneof=all posted"`
	JournalID             int64   `json:"journal_id" validate:"omitempty,gt=0"`
	MoveLabel             string  `json:"move_label" validate:"omitempty,max=120"`
}

// UpdateRatioRequest overrides the used ratio.
type UpdateRatioRequest struct {
	UsedPerct float64 `json:"used_perct" validate:"gte=0,lte=100"`
}

// PeriodResponse is the JSON view of a period.
type PeriodResponse struct {
	ID                    int64   `json:"id"`
	CompanyID             int64   `json:"company_id"`
	DateFrom              string  `json:"date_from"`
	DateTo                string  `json:"date_to"`
	RatioSourceJournalIDs []int64 `json:"ratio_source_journal_ids"`
	SourceJournalIDs      []int64 `json:"source_journal_ids"`
	TargetMove            string  `json:"target_move"`
	JournalID             int64   `json:"journal_id"`
	MoveLabel             string  `json:"move_label"`
	MoveID                *int64  `json:"move_id,omitempty"`
	ComputedPerct         float64 `json:"computed_perct"`
	UsedPerct             float64 `json:"used_perct"`
	State                 string  `json:"state"`
}

// SubjectLineResponse is the JSON view of one ratio input row.
type SubjectLineResponse struct {
	AccountID   int64   `json:"account_id"`
	AccountCode string  `json:"account_code"`
	VatSubject  string  `json:"vat_subject"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
	Balance     float64 `json:"balance"`
}

// AllocationLineResponse is the JSON view of one allocation row.
type AllocationLineResponse struct {
	MoveLineID        int64   `json:"move_line_id"`
	MoveID            int64   `json:"move_id"`
	AccountID         int64   `json:"account_id"`
	AccountCode       string  `json:"account_code"`
	OriginalAmount    float64 `json:"original_amount"`
	ProrataVatAmount  float64 `json:"prorata_vat_amount,omitempty"`
	CounterpartAmount float64 `json:"counterpart_amount,omitempty"`
	VatRate           float64 `json:"vat_rate,omitempty"`
}

// ReportResponse bundles the full period view.
type ReportResponse struct {
	Period          PeriodResponse           `json:"period"`
	SubjectLines    []SubjectLineResponse    `json:"subject_lines"`
	AllocationLines []AllocationLineResponse `json:"allocation_lines"`
}

func toPeriodResponse(p Period) PeriodResponse {
	return PeriodResponse{
		ID:                    p.ID,
		CompanyID:             p.CompanyID,
		DateFrom:              p.DateFrom.Format("2006-01-02"),
		DateTo:                p.DateTo.Format("2006-01-02"),
		RatioSourceJournalIDs: p.RatioSourceJournalIDs,
		SourceJournalIDs:      p.SourceJournalIDs,
		TargetMove:            string(p.TargetMove),
		JournalID:             p.JournalID,
		MoveLabel:             p.MoveLabel,
		MoveID:                p.MoveID,
		ComputedPerct:         p.ComputedPerct,
		UsedPerct:             p.UsedPerct,
		State:                 string(p.State),
	}
}

func toReportResponse(r Report) ReportResponse {
	out := ReportResponse{Period: toPeriodResponse(r.Period)}
	for _, l := range r.SubjectLines {
		out.SubjectLines = append(out.SubjectLines, SubjectLineResponse{
			AccountID:   l.AccountID,
			AccountCode: l.AccountCode,
			VatSubject:  string(l.VatSubject),
			Debit:       l.Debit,
			Credit:      l.Credit,
			Balance:     l.Balance,
		})
	}
	for _, l := range r.AllocationLines {
		out.AllocationLines = append(out.AllocationLines, AllocationLineResponse{
			MoveLineID:        l.MoveLineID,
			MoveID:            l.MoveID,
			AccountID:         l.AccountID,
			AccountCode:       l.AccountCode,
			OriginalAmount:    l.OriginalAmount,
			ProrataVatAmount:  l.ProrataVatAmount,
			CounterpartAmount: l.CounterpartAmount,
			VatRate:           l.VatRate,
		})
	}
	return out
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", value)
}
