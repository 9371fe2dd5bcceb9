package prorata

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(slog.New(slog.DiscardHandler), svc)
	r := chi.NewRouter()
	r.Route("/prorata", h.MountRoutes)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const createPeriodBody = `{
	"company_id": 1,
	"date_from": "2025-01-01",
	"date_to": "2025-01-31",
	"ratio_source_journal_ids": [2],
	"source_journal_ids": [3]
}`

func TestCreatePeriodEndpoint(t *testing.T) {
	svc, _, _ := newFixture()
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/prorata/periods", createPeriodBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp PeriodResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "draft", resp.State)
	require.Equal(t, "2025-01-31", resp.DateTo)
	require.Equal(t, "all", resp.TargetMove)
}

func TestCreatePeriodEndpointRejectsBadPayload(t *testing.T) {
	svc, _, _ := newFixture()
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/prorata/periods", `{"company_id": 1`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/prorata/periods", `{
		"company_id": 1,
		"date_from": "01/01/2025",
		"date_to": "2025-01-31",
		"ratio_source_journal_ids": [2],
		"source_journal_ids": [3]
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// One-sided dates are rejected; only both-or-neither is accepted.
	rec = doJSON(t, router, http.MethodPost, "/prorata/periods", `{
		"company_id": 1,
		"date_from": "2025-01-01",
		"ratio_source_journal_ids": [2],
		"source_journal_ids": [3]
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePeriodEndpointDuplicate(t *testing.T) {
	svc, _, _ := newFixture()
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/prorata/periods", createPeriodBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/prorata/periods", createPeriodBody)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestPeriodLifecycleOverHTTP(t *testing.T) {
	svc, _, _ := newFixture()
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/prorata/periods", createPeriodBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created PeriodResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	base := fmt.Sprintf("/prorata/periods/%d", created.ID)

	rec = doJSON(t, router, http.MethodPost, base+"/compute-ratio", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var afterRatio PeriodResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &afterRatio))
	require.Equal(t, "ratio", afterRatio.State)
	require.InDelta(t, 25.0, afterRatio.ComputedPerct, 1e-9)

	rec = doJSON(t, router, http.MethodPatch, base+"/ratio", `{"used_perct": 30}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/generate-move", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var done PeriodResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	require.Equal(t, "done", done.State)
	require.NotNil(t, done.MoveID)

	rec = doJSON(t, router, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.SubjectLines, 2)
	require.Len(t, report.AllocationLines, 2)

	rec = doJSON(t, router, http.MethodPost, base+"/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reset PeriodResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reset))
	require.Equal(t, "draft", reset.State)
	require.Nil(t, reset.MoveID)
}

func TestUpdateRatioEndpointValidation(t *testing.T) {
	svc, _, _ := newFixture()
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/prorata/periods", createPeriodBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created PeriodResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := fmt.Sprintf("/prorata/periods/%d/ratio", created.ID)
	rec = doJSON(t, router, http.MethodPatch, path, `{"used_perct": 150}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReportEndpointNotFound(t *testing.T) {
	svc, _, _ := newFixture()
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodGet, "/prorata/periods/999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/prorata/periods/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateLinesEndpointWrongState(t *testing.T) {
	svc, _, _ := newFixture()
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/prorata/periods", createPeriodBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created PeriodResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := fmt.Sprintf("/prorata/periods/%d/generate-lines", created.ID)
	rec = doJSON(t, router, http.MethodPost, path, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
