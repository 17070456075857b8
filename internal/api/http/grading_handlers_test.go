package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmw "github.com/mind-engage/mindengage-grader/internal/auth/middleware"
	"github.com/mind-engage/mindengage-grader/internal/expr"
	"github.com/mind-engage/mindengage-grader/internal/grading"
	"github.com/mind-engage/mindengage-grader/internal/job"
	"github.com/mind-engage/mindengage-grader/internal/table"
)

// memTable is a map-backed table.Table keyed by range text.
type memTable map[string][]string

func (m memTable) ReadColumn(_ context.Context, r table.Range) ([]string, error) {
	out := make([]string, r.Rows())
	copy(out, m[r.String()])
	return out, nil
}

func (m memTable) WriteColumn(_ context.Context, r table.Range, values []string) error {
	m[r.String()] = values
	return nil
}

type fixture struct {
	srv  *httptest.Server
	auth *authmw.AuthService
	tbl  memTable
	reg  *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	g := grading.New(expr.NewLaTeX(), grading.WithMetrics(grading.NewMetrics(reg)))
	base := grading.DefaultConfig()
	tbl := memTable{"S!A1:A3": {"2", "2.0000001", "x"}}
	a := authmw.NewAuthService("test-secret", time.Hour)

	h := NewRouter(Deps{
		Auth:     a,
		Users:    authmw.NewPasswordLogin(),
		Grader:   g,
		Defaults: base,
		Runner:   job.NewRunner(g, tbl, base, nil, job.WithMaxRows(5)),
		MaxBatch: 5,
		Gatherer: reg,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, auth: a, tbl: tbl, reg: reg}
}

func (f *fixture) post(t *testing.T, role, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if role != "" {
		tok, err := f.auth.IssueJWT("tester", role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestCompareEndpoint(t *testing.T) {
	f := newFixture(t)
	resp, out := f.post(t, "student", "/grade/compare", `{"reference":"\\frac{1}{2}","candidate":"0.5"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", out["code"])
	assert.Equal(t, 1.0, out["value"])

	resp, out = f.post(t, "student", "/grade/compare", `{"reference":"1","candidate":"1.1","tolerance":0.1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", out["code"])

	resp, out = f.post(t, "student", "/grade/compare", `{"reference":"x+1","candidate":"1+x","mode":"symbolic"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", out["code"])
}

func TestCompareEndpointErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"no reference", `{"candidate":"1"}`, http.StatusBadRequest},
		{"bad mode", `{"reference":"1","candidate":"1","mode":"fuzzy"}`, http.StatusBadRequest},
		{"bad budget", `{"reference":"1","candidate":"1","time_budget":"forever"}`, http.StatusBadRequest},
		{"negative tolerance", `{"reference":"1","candidate":"1","tolerance":"-1"}`, http.StatusBadRequest},
		{"huge precision", `{"reference":"1","candidate":"1","precision":10000000}`, http.StatusBadRequest},
		{"many workers", `{"reference":"1","candidate":"1","workers":100000}`, http.StatusBadRequest},
		{"long budget", `{"reference":"1","candidate":"1","time_budget":"10h"}`, http.StatusBadRequest},
		{"bad reference", `{"reference":"\\frac{1}{0}","candidate":"1"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := f.post(t, "student", "/grade/compare", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestBatchEndpoint(t *testing.T) {
	f := newFixture(t)
	resp, out := f.post(t, "teacher", "/grade/batch", `{"reference":"2","candidates":["2.0","2.0000001","3","x"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"1", "0.1", "0", "3"}, out["codes"])
	assert.Equal(t, []interface{}{1.0, 0.1, 0.0, 3.0}, out["values"])

	resp, _ = f.post(t, "teacher", "/grade/batch", `{"reference":"2","candidates":["1","2","3","4","5","6"]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestColumnEndpoint(t *testing.T) {
	f := newFixture(t)
	resp, out := f.post(t, "teacher", "/grade/column", `{"correct":"2","source":"S!A1:A3","destination":"S!B1:B3"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, out["rows"])
	assert.Equal(t, []string{"1", "0.1", "3"}, f.tbl["S!B1:B3"])

	resp, _ = f.post(t, "teacher", "/grade/column", `{"correct":"2","source":"S!A1:A3","destination":"S!B1:B9"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.post(t, "teacher", "/grade/column", `{"source":"S!A1:A3","destination":"S!B1:B3"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.post(t, "teacher", "/grade/column", `{"correct":"2","source":"S!A1:A6","destination":"S!B1:B6"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, _ = f.post(t, "teacher", "/grade/column", `{"correct":"2","source":"S!A1:A999999999","destination":"S!B1:B999999999"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthorization(t *testing.T) {
	f := newFixture(t)
	body := `{"reference":"2","candidates":["2"]}`

	resp, _ := f.post(t, "", "/grade/batch", body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.post(t, "student", "/grade/batch", body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.post(t, "student", "/grade/column", `{"correct":"2","source":"S!A1:A3","destination":"S!B1:B3"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.post(t, "admin", "/grade/batch", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.post(t, "teacher", "/grade/batch", `{"reference":"2","candidates":["2","3"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mr, err := f.srv.Client().Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer mr.Body.Close()
	assert.Equal(t, http.StatusOK, mr.StatusCode)

	families, err := f.reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "grader_classifications_total")
	assert.Contains(t, names, "grader_batches_total")
}

func TestDecimalText(t *testing.T) {
	var o gradeOptions
	require.NoError(t, json.Unmarshal([]byte(`{"tolerance":0.1}`), &o))
	assert.Equal(t, decimalText("0.1"), o.Tolerance)
	require.NoError(t, json.Unmarshal([]byte(`{"tolerance":"1/8"}`), &o))
	assert.Equal(t, decimalText("1/8"), o.Tolerance)
	assert.Error(t, json.Unmarshal([]byte(`{"tolerance":true}`), &o))
}
