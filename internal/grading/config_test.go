package grading

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-grader/internal/expr"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, expr.Numeric, cfg.Mode)
	assert.Equal(t, 100, cfg.Precision)
	assert.Equal(t, 6, cfg.SuspiciousRunLength)
	assert.True(t, cfg.Tolerance.IsZero())
	assert.Equal(t, time.Second, cfg.TimeBudget)
	assert.Equal(t, RepeatedDigit, cfg.SuspicionRule)
	assert.Equal(t, 1, cfg.Workers)
}

func TestNewConfigOptions(t *testing.T) {
	cfg, err := NewConfig(
		WithMode(expr.Symbolic),
		WithPrecision(20),
		WithSuspiciousRunLength(8),
		WithTolerance(MustTolerance("0.01")),
		WithTimeBudget(50*time.Millisecond),
		WithSuspicionRule(DigitRun),
		WithWorkers(4),
	)
	require.NoError(t, err)
	assert.Equal(t, expr.Symbolic, cfg.Mode)
	assert.Equal(t, 20, cfg.Precision)
	assert.Equal(t, 8, cfg.SuspiciousRunLength)
	assert.Equal(t, "0.01", cfg.Tolerance.String())
	assert.Equal(t, 50*time.Millisecond, cfg.TimeBudget)
	assert.Equal(t, DigitRun, cfg.SuspicionRule)
	assert.Equal(t, 4, cfg.Workers)
}

func TestConfigValidate(t *testing.T) {
	tests := map[string]Option{
		"mode":           WithMode(expr.Mode(7)),
		"precision":      WithPrecision(0),
		"huge precision": WithPrecision(1e7),
		"run length":     WithSuspiciousRunLength(0),
		"budget":         WithTimeBudget(0),
		"long budget":    WithTimeBudget(time.Hour),
		"rule":           WithSuspicionRule(SuspicionRule(5)),
		"workers":        WithWorkers(0),
		"many workers":   WithWorkers(MaxWorkers + 1),
	}
	for name, opt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfig(opt)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfigUpperBoundsAreInclusive(t *testing.T) {
	_, err := NewConfig(WithPrecision(MaxPrecision), WithTimeBudget(MaxTimeBudget), WithWorkers(MaxWorkers))
	assert.NoError(t, err)
}

func TestParseTolerance(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"0", "0"},
		{"0.1", "0.1"},
		{" 1e-6 ", "0.000001"},
		{"2", "2"},
		{"1/3", "1/3"},
	}
	for _, tt := range tests {
		tol, err := ParseTolerance(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, tol.String(), tt.in)
	}

	_, err := ParseTolerance("-0.1")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = ParseTolerance("abc")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestToleranceFromFloatIsExactDecimal(t *testing.T) {
	tol, err := ToleranceFromFloat(0.1)
	require.NoError(t, err)
	assert.Zero(t, tol.Rat().Cmp(big.NewRat(1, 10)))
}

func TestToleranceWithinIsInclusive(t *testing.T) {
	tol := MustTolerance("0.1")
	assert.True(t, tol.Within(big.NewRat(1, 10)))
	assert.True(t, tol.Within(big.NewRat(-1, 10)))
	assert.False(t, tol.Within(big.NewRat(1000001, 10000000)))

	var zero Tolerance
	assert.True(t, zero.Within(new(big.Rat)))
	assert.False(t, zero.Within(big.NewRat(1, 1000000)))
}

func TestToleranceRatIsCopy(t *testing.T) {
	tol := MustTolerance("0.5")
	tol.Rat().SetInt64(99)
	assert.Equal(t, "0.5", tol.String())
}

func TestParseSuspicionRule(t *testing.T) {
	r, err := ParseSuspicionRule("")
	require.NoError(t, err)
	assert.Equal(t, RepeatedDigit, r)

	r, err = ParseSuspicionRule("Digits")
	require.NoError(t, err)
	assert.Equal(t, DigitRun, r)
	assert.Equal(t, "digits", r.String())

	_, err = ParseSuspicionRule("fuzzy")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
