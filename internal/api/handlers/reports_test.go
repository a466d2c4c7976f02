package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/fieldops/internal/api/dto"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/testutil"
	"github.com/hugh/fieldops/internal/workorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportHandler_ListAndGet(t *testing.T) {
	router, ts := setupTenantRouter(t)
	defer ts.Cleanup()

	done := testutil.CreateTestReport(t, ts.DB, ts.Org, ts.Technician, models.StatusCompleted)
	testutil.CreateTestReport(t, ts.DB, ts.Org, ts.Other, models.StatusCompleted)
	open := testutil.CreateTestReport(t, ts.DB, ts.Org, ts.Technician, models.StatusInProgress)

	req := testutil.AuthenticatedRequest(t, http.MethodGet, orgPath(ts, "/reports"), nil, ts.OwnerToken)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var page workorder.Page
	testutil.ParseJSONResponse(t, rr, &page)
	assert.Equal(t, int64(2), page.Total)

	req = testutil.AuthenticatedRequest(t, http.MethodGet, orgPath(ts, "/reports"), nil, ts.TechnicianToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	page = workorder.Page{}
	testutil.ParseJSONResponse(t, rr, &page)
	require.Len(t, page.Reports, 1)
	assert.Equal(t, done.ID, page.Reports[0].ID)

	tests := []struct {
		name       string
		id         uint
		token      string
		wantStatus int
	}{
		{"completed report", done.ID, ts.TechnicianToken, http.StatusOK},
		{"open order is not a report", open.ID, ts.OwnerToken, http.StatusNotFound},
		{"someone else's report", done.ID, ts.OtherToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, http.MethodGet, orgPath(ts, fmt.Sprintf("/reports/%d", tt.id)), nil, tt.token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			testutil.AssertStatus(t, rr, tt.wantStatus)

			if tt.wantStatus == http.StatusOK {
				var resp dto.ReportResponse
				testutil.ParseJSONResponse(t, rr, &resp)
				require.NotNil(t, resp.Report)
				assert.Equal(t, tt.id, resp.Report.ID)
			}
		})
	}
}

func TestReportHandler_Corrections(t *testing.T) {
	router, ts := setupTenantRouter(t)
	defer ts.Cleanup()

	report := testutil.CreateTestReport(t, ts.DB, ts.Org, ts.Technician, models.StatusCompleted)

	do := func(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
		t.Helper()
		req := testutil.AuthenticatedRequest(t, method, orgPath(ts, path), body, token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	// Created through both routes; listed oldest first.
	rr := do(t, http.MethodPost, fmt.Sprintf("/reports/%d/corrections", report.ID), map[string]string{"content": "Falta firma"}, ts.OwnerToken)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	var created dto.CorrectionResponse
	testutil.ParseJSONResponse(t, rr, &created)
	require.NotNil(t, created.Correction)
	first := *created.Correction
	assert.Equal(t, "Coordinador", first.Author.Role)
	assert.Equal(t, "Olga Owner", first.Author.Name)

	rr = do(t, http.MethodPost, "/corrections", map[string]interface{}{"reportId": report.ID, "content": "Firma agregada"}, ts.TechnicianToken)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created = dto.CorrectionResponse{}
	testutil.ParseJSONResponse(t, rr, &created)
	require.NotNil(t, created.Correction)
	second := *created.Correction
	assert.Equal(t, "Técnico", second.Author.Role)

	rr = do(t, http.MethodGet, fmt.Sprintf("/corrections?reportId=%d", report.ID), nil, ts.TechnicianToken)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var list dto.CorrectionsResponse
	testutil.ParseJSONResponse(t, rr, &list)
	require.Len(t, list.Corrections, 2)
	assert.Equal(t, first.ID, list.Corrections[0].ID)
	assert.Equal(t, second.ID, list.Corrections[1].ID)

	t.Run("list requires report access", func(t *testing.T) {
		rr := do(t, http.MethodGet, fmt.Sprintf("/reports/%d/corrections", report.ID), nil, ts.OtherToken)
		testutil.AssertStatus(t, rr, http.StatusForbidden)

		rr = do(t, http.MethodGet, "/corrections", nil, ts.OwnerToken)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("create validation", func(t *testing.T) {
		rr := do(t, http.MethodPost, "/corrections", map[string]interface{}{"reportId": report.ID, "content": "  "}, ts.OwnerToken)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Details, "content")
	})

	t.Run("patch", func(t *testing.T) {
		path := "/corrections?id=" + second.ID

		rr := do(t, http.MethodPatch, path, map[string]string{"content": "Firma agregada"}, ts.TechnicianToken)
		testutil.AssertStatus(t, rr, http.StatusOK)
		var result workorder.CorrectionResult
		testutil.ParseJSONResponse(t, rr, &result)
		assert.True(t, result.Unchanged)

		rr = do(t, http.MethodPatch, path, map[string]string{}, ts.TechnicianToken)
		testutil.AssertStatus(t, rr, http.StatusOK)
		result = workorder.CorrectionResult{}
		testutil.ParseJSONResponse(t, rr, &result)
		assert.True(t, result.Unchanged)

		rr = do(t, http.MethodPatch, path, map[string]string{"content": "Firma y foto agregadas"}, ts.TechnicianToken)
		testutil.AssertStatus(t, rr, http.StatusOK)
		result = workorder.CorrectionResult{}
		testutil.ParseJSONResponse(t, rr, &result)
		assert.False(t, result.Unchanged)
		assert.Equal(t, "Firma y foto agregadas", result.Correction.Content)

		// Only the author or a coordinator may edit.
		rr = do(t, http.MethodPatch, "/corrections?id="+first.ID, map[string]string{"content": "x"}, ts.TechnicianToken)
		testutil.AssertStatus(t, rr, http.StatusForbidden)

		rr = do(t, http.MethodPatch, "/corrections?id=missing", map[string]string{"content": "x"}, ts.OwnerToken)
		testutil.AssertStatus(t, rr, http.StatusNotFound)

		rr = do(t, http.MethodPatch, "/corrections", map[string]string{"content": "x"}, ts.OwnerToken)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}
