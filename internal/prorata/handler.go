package prorata

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/ledgerline/prorata/internal/ledger"
	"github.com/ledgerline/prorata/internal/platform/httpx"
	"github.com/ledgerline/prorata/internal/shared"
)

// Handler wires the engine's HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	reports   singleflight.Group
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers the pro-rata routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/periods", h.createPeriod)
	r.Get("/periods", h.listPeriods)
	r.Get("/periods/{id}", h.getReport)
	r.Patch("/periods/{id}/ratio", h.updateRatio)
	r.Post("/periods/{id}/compute-ratio", h.computeRatio)
	r.Post("/periods/{id}/generate-lines", h.generateLines)
	r.Post("/periods/{id}/generate-move", h.generateMove)
	r.Post("/periods/{id}/reset", h.reset)
}

func (h *Handler) createPeriod(w http.ResponseWriter, r *http.Request) {
	var req CreatePeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if (req.DateFrom == "") != (req.DateTo == "") {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed",
			"date_from and date_to must be given together or both omitted")
		return
	}
	dateFrom, err := parseDate(req.DateFrom)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_from: "+err.Error())
		return
	}
	dateTo, err := parseDate(req.DateTo)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_to: "+err.Error())
		return
	}
	period, err := h.service.CreatePeriod(r.Context(), CreatePeriodInput{
		CompanyID:             req.CompanyID,
		DateFrom:              dateFrom,
		DateTo:                dateTo,
		RatioSourceJournalIDs: req.RatioSourceJournalIDs,
		SourceJournalIDs:      req.SourceJournalIDs,
		TargetMove:            TargetMove(req.TargetMove),
		JournalID:             req.JournalID,
		MoveLabel:             req.MoveLabel,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPeriodResponse(period))
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id query parameter is required")
		return
	}
	periods, err := h.service.ListPeriods(r.Context(), companyID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]PeriodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriodResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// getReport builds the period view under singleflight: concurrent requests
// for the same period share one load.
func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.periodID(w, r)
	if !ok {
		return
	}
	value, err, _ := h.reports.Do(strconv.FormatInt(id, 10), func() (any, error) {
		return h.service.GetReport(r.Context(), id)
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toReportResponse(value.(Report)))
}

func (h *Handler) updateRatio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.periodID(w, r)
	if !ok {
		return
	}
	var req UpdateRatioRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	period, err := h.service.UpdateUsedPerct(r.Context(), id, req.UsedPerct)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodResponse(period))
}

func (h *Handler) computeRatio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.periodID(w, r)
	if !ok {
		return
	}
	period, err := h.service.ComputeRatio(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodResponse(period))
}

func (h *Handler) generateLines(w http.ResponseWriter, r *http.Request) {
	id, ok := h.periodID(w, r)
	if !ok {
		return
	}
	lines, err := h.service.GenerateLines(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]AllocationLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, AllocationLineResponse{
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
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) generateMove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.periodID(w, r)
	if !ok {
		return
	}
	period, err := h.service.GenerateMove(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodResponse(period))
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.periodID(w, r)
	if !ok {
		return
	}
	period, err := h.service.ResetToDraft(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodResponse(period))
}

func (h *Handler) periodID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid period id")
		return 0, false
	}
	return id, true
}

// respondError translates domain errors into the transport categories.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrPeriodNotFound), errors.Is(err, ledger.ErrCompanyNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, err))
	case errors.Is(err, ErrDuplicatePeriod), errors.Is(err, shared.ErrPeriodBusy):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrDuplicate, err))
	case errors.Is(err, ErrInvalidDateRange), errors.Is(err, ErrRatioOutOfRange), errors.Is(err, ErrInvalidState):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
	case errors.Is(err, ErrProrataDisabled), errors.Is(err, ErrAmbiguousTaxMapping),
		errors.Is(err, ErrMisclassifiedAccount), errors.Is(err, ErrNoDeductibleAccounts),
		errors.Is(err, ErrMoveWithoutExpense), errors.Is(err, ErrZeroWeight),
		errors.Is(err, ErrNoAllocationLines):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrUnprocessable, err))
	default:
		h.logger.Error("prorata request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
