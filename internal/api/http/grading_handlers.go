package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	authmw "github.com/mind-engage/mindengage-grader/internal/auth/middleware"
	"github.com/mind-engage/mindengage-grader/internal/grading"
	"github.com/mind-engage/mindengage-grader/internal/job"
	"github.com/mind-engage/mindengage-grader/internal/table"
)

// decimalText accepts a JSON string or number and keeps its exact text, so
// a tolerance of 0.1 stays one tenth.
type decimalText string

func (d *decimalText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = decimalText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("tolerance must be a number or string")
	}
	*d = decimalText(n.String())
	return nil
}

// gradeOptions override the server defaults for one request.
type gradeOptions struct {
	Mode                string      `json:"mode,omitempty"`
	Precision           int         `json:"precision,omitempty"`
	Tolerance           decimalText `json:"tolerance,omitempty"`
	SuspiciousRunLength int         `json:"suspicious_run_length,omitempty"`
	SuspicionRule       string      `json:"suspicion_rule,omitempty"`
	TimeBudget          string      `json:"time_budget,omitempty"` // e.g. "1.5s"
	Workers             int         `json:"workers,omitempty"`
}

func (o gradeOptions) column() (job.Column, error) {
	c := job.Column{
		Mode:                o.Mode,
		Precision:           o.Precision,
		Tolerance:           string(o.Tolerance),
		SuspiciousRunLength: o.SuspiciousRunLength,
		SuspicionRule:       o.SuspicionRule,
		Workers:             o.Workers,
	}
	if o.TimeBudget != "" {
		d, err := time.ParseDuration(o.TimeBudget)
		if err != nil {
			return c, fmt.Errorf("%w: time_budget: %v", grading.ErrInvalidConfig, err)
		}
		c.TimeBudget = d
	}
	return c, nil
}

func (o gradeOptions) config(base grading.Config) (grading.Config, error) {
	c, err := o.column()
	if err != nil {
		return grading.Config{}, err
	}
	return c.Config(base)
}

type compareReq struct {
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`
	gradeOptions
}

type codeResp struct {
	Code  string  `json:"code"`
	Value float64 `json:"value"`
}

// POST /grade/compare
func CompareHandler(g *grading.Grader, base grading.Config, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compareReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Reference) == "" {
			http.Error(w, "reference required", http.StatusBadRequest)
			return
		}
		cfg, err := req.config(base)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c, err := g.CompareMarkup(r.Context(), req.Reference, req.Candidate, cfg)
		if err != nil {
			gradeError(w, logger, err)
			return
		}
		writeJSON(w, codeResp{Code: c.String(), Value: c.Code()})
	}
}

type batchReq struct {
	Reference  string   `json:"reference"`
	Candidates []string `json:"candidates"`
	gradeOptions
}

type batchResp struct {
	Codes  []string  `json:"codes"`
	Values []float64 `json:"values"`
}

// POST /grade/batch
func BatchHandler(g *grading.Grader, base grading.Config, maxBatch int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Reference) == "" {
			http.Error(w, "reference required", http.StatusBadRequest)
			return
		}
		if maxBatch > 0 && len(req.Candidates) > maxBatch {
			http.Error(w, fmt.Sprintf("at most %d candidates per request", maxBatch), http.StatusRequestEntityTooLarge)
			return
		}
		cfg, err := req.config(base)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		codes, err := g.GradeMarkup(r.Context(), req.Reference, req.Candidates, cfg)
		if err != nil {
			gradeError(w, logger, err)
			return
		}
		resp := batchResp{Codes: grading.Strings(codes), Values: make([]float64, len(codes))}
		for i, c := range codes {
			resp.Values[i] = c.Code()
		}
		writeJSON(w, resp)
	}
}

type columnReq struct {
	Name        string `json:"name"`
	Correct     string `json:"correct"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	gradeOptions
}

// POST /grade/column
func ColumnHandler(runner *job.Runner, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req columnReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		col, err := req.column()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		col.Name, col.Correct, col.Source, col.Destination = req.Name, req.Correct, req.Source, req.Destination
		if col.Correct == "" || col.Source == "" || col.Destination == "" {
			http.Error(w, "correct, source and destination required", http.StatusBadRequest)
			return
		}

		logger.Info("column job requested",
			zap.String("by", authmw.SubjectFromContext(r.Context())),
			zap.String("source", col.Source),
			zap.String("destination", col.Destination),
		)
		res, err := runner.GradeColumn(r.Context(), col)
		if err != nil {
			gradeError(w, logger, err)
			return
		}
		writeJSON(w, res)
	}
}

func gradeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, grading.ErrInvalidConfig),
		errors.Is(err, job.ErrRangeMismatch),
		errors.Is(err, table.ErrInvalidRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, job.ErrTooManyRows):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, grading.ErrReference):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
	default:
		logger.Error("grading request failed", zap.Error(err))
		http.Error(w, "grading failed: "+err.Error(), http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
