package grading

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-grader/internal/expr"
)

func TestCompareNumericTolerance(t *testing.T) {
	cmp := NewComparator(expr.NewLaTeX())
	ref := num(t, "1")
	cfg := mustConfig(t, WithTolerance(MustTolerance("0.1")))

	tests := []struct {
		markup string
		want   Classification
	}{
		{"1.1", Equivalent},
		{"0.9", Equivalent},
		{`\frac{11}{10}`, Equivalent},
		{"1.1000001", NotEquivalent},
		{"0.8999999", NotEquivalent},
		{"0.3333333", NotEquivalentSuspicious},
	}
	for _, tt := range tests {
		t.Run(tt.markup, func(t *testing.T) {
			got, err := cmp.Compare(context.Background(), ref, tt.markup, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareFloatToleranceBoundary(t *testing.T) {
	tol, err := ToleranceFromFloat(0.1)
	require.NoError(t, err)
	cmp := NewComparator(expr.NewLaTeX())

	got, err := cmp.Compare(context.Background(), num(t, "1.0"), "1.1", mustConfig(t, WithTolerance(tol)))
	require.NoError(t, err)
	assert.Equal(t, Equivalent, got)
}

func TestCompareZeroToleranceIsExact(t *testing.T) {
	cmp := NewComparator(expr.NewLaTeX())
	cfg := mustConfig(t)

	got, err := cmp.Compare(context.Background(), num(t, "2"), "2.0", cfg)
	require.NoError(t, err)
	assert.Equal(t, Equivalent, got)

	got, err = cmp.Compare(context.Background(), num(t, "2"), "2.01", cfg)
	require.NoError(t, err)
	assert.Equal(t, NotEquivalent, got)
}

func TestCompareSuspiciousEquivalent(t *testing.T) {
	cmp := NewComparator(expr.NewLaTeX())
	got, err := cmp.Compare(context.Background(), num(t, "111111"), "111111", mustConfig(t))
	require.NoError(t, err)
	assert.Equal(t, EquivalentSuspicious, got)
}

func TestCompareSymbolicIgnoresToleranceAndSuspicion(t *testing.T) {
	engine := expr.NewLaTeX()
	cmp := NewComparator(engine)
	cfg := mustConfig(t, WithMode(expr.Symbolic), WithTolerance(MustTolerance("1000")))

	ref, err := engine.Evaluate(context.Background(), "x", expr.Symbolic, cfg.Precision)
	require.NoError(t, err)

	got, err := cmp.Compare(context.Background(), ref, "x+1", cfg)
	require.NoError(t, err)
	assert.Equal(t, NotEquivalent, got)

	got, err = cmp.Compare(context.Background(), ref, `\frac{x^2-1}{x+1}+1`, cfg)
	require.NoError(t, err)
	assert.Equal(t, Equivalent, got)

	ones, err := engine.Evaluate(context.Background(), "111111", expr.Symbolic, cfg.Precision)
	require.NoError(t, err)
	got, err = cmp.Compare(context.Background(), ones, "111111", cfg)
	require.NoError(t, err)
	assert.Equal(t, Equivalent, got)
}

func TestCompareSymbolicUnreducedFormsDiffer(t *testing.T) {
	engine := expr.NewLaTeX()
	cmp := NewComparator(engine)
	cfg := mustConfig(t, WithMode(expr.Symbolic), WithTolerance(MustTolerance("1000")))

	ref, err := engine.Evaluate(context.Background(), "x", expr.Symbolic, cfg.Precision)
	require.NoError(t, err)

	// sqrt(x)^2 equals x only for x >= 0 and stays opaque.
	got, err := cmp.Compare(context.Background(), ref, `\sqrt{x}^2`, cfg)
	require.NoError(t, err)
	assert.Equal(t, NotEquivalent, got)
}

func TestCompareEngineErrorPassesThrough(t *testing.T) {
	cmp := NewComparator(expr.NewLaTeX())
	_, err := cmp.Compare(context.Background(), num(t, "2"), "x", mustConfig(t))
	require.Error(t, err)
	assert.True(t, expr.IsEvaluationError(err))
	assert.ErrorIs(t, err, expr.ErrUnsupported)
}

func TestCompareKindMismatch(t *testing.T) {
	cmp := NewComparator(expr.NewLaTeX())
	_, err := cmp.Compare(context.Background(), num(t, "2"), "2", mustConfig(t, WithMode(expr.Symbolic)))
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestCompareUnknownMode(t *testing.T) {
	cmp := NewComparator(expr.NewLaTeX())
	cfg := DefaultConfig()
	cfg.Mode = expr.Mode(9)
	_, err := cmp.Compare(context.Background(), num(t, "2"), "2", cfg)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestCompareEvaluatesWithConfiguredPrecision(t *testing.T) {
	var gotPrecision int
	var gotMode expr.Mode
	engine := engineFunc(func(_ context.Context, markup string, mode expr.Mode, precision int) (expr.Value, error) {
		gotPrecision, gotMode = precision, mode
		return expr.ParseNumeric(markup, precision)
	})
	cmp := NewComparator(engine)
	_, err := cmp.Compare(context.Background(), num(t, "3"), "3", mustConfig(t, WithPrecision(12)))
	require.NoError(t, err)
	assert.Equal(t, 12, gotPrecision)
	assert.Equal(t, expr.Numeric, gotMode)
}

func TestCompareCancellationIsNotAnEvaluationError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewComparator(expr.NewLaTeX()).Compare(ctx, num(t, "2"), "2", mustConfig(t))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, expr.IsEvaluationError(err))
}
