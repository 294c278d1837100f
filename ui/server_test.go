package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gouplift/adapters/postgres"
	"gouplift/domain/experiment"
	"gouplift/domain/run"
	"gouplift/domain/stats"
	"gouplift/domain/uplift"
	"gouplift/internal"
	"gouplift/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, ports.RunRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := postgres.Open(context.Background(), postgres.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := postgres.NewRunRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))

	s, err := NewServer(repo, internal.NewLogger(internal.LogLevelError))
	require.NoError(t, err)
	return s, repo
}

func storedReport(t *testing.T, repo ports.RunRepository) *run.Report {
	t.Helper()
	pair := experiment.ArmPair{Treatment: experiment.MensEmail, Control: experiment.NoEmail}
	econ := uplift.EconomicParameters{MarginPerConversion: 15, CostPerEmail: 0.1}
	m := run.NewManifest(run.Manifest{
		DataSource:  "hillstrom.csv",
		RecordCount: 1200,
		Outcome:     experiment.OutcomeConversion,
		Seed:        42,
		Ks:          []float64{0.1},
		Economics:   econ,
		Classifier:  "logistic_l2+isotonic_cv3",
	})
	r := &run.Report{
		Manifest: *m,
		Conversion: []run.ConversionOutcome{{Pair: pair, Result: &stats.ConversionTestResult{
			Pair: pair, Z: 2.5, PValue: 0.0124, RateTreatment: 0.02, RateControl: 0.01, AbsLift: 0.01, RelLift: 1,
		}}},
		Spend: []run.SpendOutcome{},
		Uplift: []run.PairEvaluation{{
			Pair: pair, TrainSize: 560, Holdout: 240, Classifier: "logistic_l2+isotonic_cv3",
			Qini: &uplift.QiniResult{
				Curve: uplift.QiniCurve{Pair: pair, Points: []uplift.QiniPoint{{Fraction: 0, Gain: 0}, {Fraction: 1, Gain: 3}}},
				AUC:   0.4, Coefficient: 0.2667,
			},
			ROI: []uplift.ROIRow{uplift.NewROIRow(0.1, 0.03, 24, econ)},
		}},
	}
	require.NoError(t, repo.Save(context.Background(), r))
	return r
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_ListAndGetRun(t *testing.T) {
	s, repo := newTestServer(t)
	want := storedReport(t, repo)

	rec := get(t, s, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs  []ports.RunSummary `json:"runs"`
		Count int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, want.Manifest.RunID, list.Runs[0].RunID)

	rec = get(t, s, "/api/runs/"+want.Manifest.RunID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var got run.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, want.Manifest.Fingerprint, got.Manifest.Fingerprint)
	require.Len(t, got.Uplift, 1)
	assert.InDelta(t, 0.4, got.Uplift[0].Qini.AUC, 1e-12)
}

func TestServer_RunErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown run", "/api/runs/01890a5d-ac96-774b-bcce-b302099a8057", http.StatusNotFound},
		{"malformed id", "/api/runs/not-a-uuid", http.StatusBadRequest},
		{"unknown run page", "/runs/01890a5d-ac96-774b-bcce-b302099a8057", http.StatusNotFound},
		{"bad limit", "/api/runs?limit=abc", http.StatusBadRequest},
		{"limit too large", "/api/runs?limit=100000", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.path)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestServer_HTMLPages(t *testing.T) {
	s, repo := newTestServer(t)
	want := storedReport(t, repo)

	rec := get(t, s, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/runs/"+want.Manifest.RunID.String())

	rec = get(t, s, "/runs/"+want.Manifest.RunID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
	assert.Contains(t, body, "Qini AUC")
}

func TestServer_Metrics(t *testing.T) {
	s, repo := newTestServer(t)
	want := storedReport(t, repo)
	get(t, s, "/api/runs/"+want.Manifest.RunID.String())

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "uplift_http_requests_total")
	assert.Contains(t, body, `uplift_reports_served_total{format="json"} 1`)
}

func TestNewServerRequiresRepository(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}
