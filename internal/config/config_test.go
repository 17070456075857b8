package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-grader/internal/expr"
	"github.com/mind-engage/mindengage-grader/internal/grading"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "GRADER_STORE", "GRADER_MODE", "GRADER_PRECISION", "GRADER_TIME_BUDGET", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sql", cfg.Store)
	assert.Equal(t, 100, cfg.Precision)
	assert.Equal(t, time.Second, cfg.TimeBudget)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)

	g, err := cfg.Grading()
	require.NoError(t, err)
	assert.Equal(t, grading.DefaultConfig(), g)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GRADER_MODE", "symbolic")
	t.Setenv("GRADER_PRECISION", "25")
	t.Setenv("GRADER_TOLERANCE", "0.001")
	t.Setenv("GRADER_SUSPICION_RULE", "digits")
	t.Setenv("GRADER_TIME_BUDGET", "250ms")
	t.Setenv("GRADER_WORKERS", "3")
	t.Setenv("VERBOSE", "yes")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg := FromEnv()
	assert.True(t, cfg.Verbose)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)

	g, err := cfg.Grading()
	require.NoError(t, err)
	assert.Equal(t, expr.Symbolic, g.Mode)
	assert.Equal(t, 25, g.Precision)
	assert.Equal(t, "0.001", g.Tolerance.String())
	assert.Equal(t, grading.DigitRun, g.SuspicionRule)
	assert.Equal(t, 250*time.Millisecond, g.TimeBudget)
	assert.Equal(t, 3, g.Workers)
}

func TestFromEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("GRADER_PRECISION", "lots")
	t.Setenv("GRADER_TIME_BUDGET", "soon")
	cfg := FromEnv()
	assert.Equal(t, 100, cfg.Precision)
	assert.Equal(t, time.Second, cfg.TimeBudget)
}

func TestGradingRejectsBadValues(t *testing.T) {
	cfg := FromEnv()
	cfg.Mode = "visual"
	_, err := cfg.Grading()
	assert.Error(t, err)

	cfg = FromEnv()
	cfg.Tolerance = "-3"
	_, err = cfg.Grading()
	assert.ErrorIs(t, err, grading.ErrInvalidConfig)
}
