package expr

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fracSmall = `\frac{88}{379}`
	fracBinom = `\frac{\left(10\binom{66}{23}\right)}{\left(25\binom{66}{22}+30\binom{66}{23}\right)}`
)

func evalNumeric(t *testing.T, markup string, precision int) Value {
	t.Helper()
	v, err := NewLaTeX().Evaluate(context.Background(), markup, Numeric, precision)
	require.NoError(t, err, markup)
	return v
}

func evalSymbolic(t *testing.T, markup string) Value {
	t.Helper()
	v, err := NewLaTeX().Evaluate(context.Background(), markup, Symbolic, 10)
	require.NoError(t, err, markup)
	return v
}

func TestNumericEvaluation(t *testing.T) {
	tests := []struct {
		markup    string
		precision int
		want      string
	}{
		{"2", 10, "2"},
		{"2.0", 10, "2"},
		{"2.0000001", 10, "2.0000001"},
		{".5", 10, "0.5"},
		{fracSmall, 10, "0.2321899736"},
		{`\frac{35200}{151600}`, 10, "0.2321899736"},
		{fracBinom, 10, "0.2321899736"},
		{`\frac12`, 10, "0.5"},
		{`\dfrac{3}{4}`, 10, "0.75"},
		{`\sqrt{2}`, 10, "1.414213562"},
		{`\sqrt{16}`, 10, "4"},
		{`\sqrt[3]{27}`, 10, "3"},
		{`8^{1/3}`, 10, "2"},
		{`\pi`, 10, "3.141592654"},
		{`2\pi`, 5, "6.2832"},
		{"2^{10}", 10, "1024"},
		{"2^10", 10, "1024"},
		{"2^{-2}", 10, "0.25"},
		{"-2^2", 10, "-4"},
		{"3!", 10, "6"},
		{`\binom{5}{2}`, 10, "10"},
		{`\binom{2}{5}`, 10, "0"},
		{`2\cdot3`, 10, "6"},
		{`2 \times 3 \div 4`, 10, "1.5"},
		{"(1+2)(3)", 10, "9"},
		{`\left(1+2\right)\cdot 2`, 10, "6"},
		{`-\frac{1}{3}`, 5, "-0.33333"},
		{`\frac{2}{3}`, 3, "0.667"},
		{`1 - 2 - 3`, 10, "-4"},
		{`12 / 4 / 3`, 10, "1"},
		{`\sqrt{2}\sqrt{2}`, 10, "2"},
	}
	for _, tt := range tests {
		t.Run(tt.markup, func(t *testing.T) {
			v := evalNumeric(t, tt.markup, tt.precision)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestNumericEvaluationFailures(t *testing.T) {
	tests := []struct {
		markup string
		want   error
	}{
		{"", ErrSyntax},
		{"2+", ErrSyntax},
		{"(1+2", ErrSyntax},
		{"2^2^2", ErrSyntax},
		{"x", ErrUnsupported},
		{`\sin{x}`, ErrUnsupported},
		{"|x|", ErrUnsupported},
		{`\frac{1}{0}`, ErrDomain},
		{`\sqrt{-1}`, ErrDomain},
		{"0^{-1}", ErrDomain},
		{"(-1)!", ErrDomain},
		{"10^{1000000}", ErrTooLarge},
		{"100000!", ErrTooLarge},
		{"2^{2^{2^{5}}}", ErrTooLarge},
		{"@", ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.markup, func(t *testing.T) {
			_, err := NewLaTeX().Evaluate(context.Background(), tt.markup, Numeric, 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsEvaluationError(err))
		})
	}
}

func TestEvaluateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLaTeX().Evaluate(ctx, `\pi`, Numeric, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsEvaluationError(err))
}

func TestEvaluateRejectsBadPrecision(t *testing.T) {
	_, err := NewLaTeX().Evaluate(context.Background(), "1", Numeric, 0)
	assert.True(t, IsEvaluationError(err))
}

func TestEvaluateRejectsPrecisionAboveLimit(t *testing.T) {
	_, err := NewLaTeX().Evaluate(context.Background(), `\frac{1}{3}`, Numeric, MaxPrecision+1)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.True(t, IsEvaluationError(err))

	v := evalNumeric(t, `\frac{1}{3}`, MaxPrecision)
	assert.Len(t, v.Digits(), MaxPrecision+1)
}

func TestMaxPrecisionHonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	for _, markup := range []string{`\frac{1}{3}`, `\pi`, `\sqrt{2}`} {
		_, _ = NewLaTeX().Evaluate(ctx, markup, Numeric, MaxPrecision)
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestInputLengthLimit(t *testing.T) {
	long := strings.Repeat("1+", 2500) + "1"
	_, err := NewLaTeX().Evaluate(context.Background(), long, Numeric, 10)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.True(t, IsEvaluationError(err))

	l := NewLaTeX()
	l.Limits.MaxInputLength = 8
	_, err = l.Evaluate(context.Background(), "123456789", Numeric, 10)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestOperatorChainsCountTowardsNesting(t *testing.T) {
	l := NewLaTeX()
	l.Limits.MaxDepth = 30

	_, err := l.Evaluate(context.Background(), strings.Repeat("1+", 40)+"1", Numeric, 10)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = l.Evaluate(context.Background(), strings.Repeat("2*", 40)+"1", Numeric, 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	v, err := l.Evaluate(context.Background(), strings.Repeat("1+", 10)+"1", Numeric, 10)
	require.NoError(t, err)
	assert.Equal(t, "11", v.String())
}

func TestParseHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parse(ctx, strings.Repeat("1+", 300)+"1", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBinomialLimit(t *testing.T) {
	_, err := NewLaTeX().Evaluate(context.Background(), `\binom{100000}{50000}`, Numeric, 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = NewLaTeX().Evaluate(context.Background(), `\binom{100000}{50000}`, Symbolic, 10)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestNestingLimit(t *testing.T) {
	l := NewLaTeX()
	l.Limits.MaxDepth = 30
	deep := ""
	for i := 0; i < 40; i++ {
		deep = "(" + deep
	}
	deep += "1"
	for i := 0; i < 40; i++ {
		deep += ")"
	}
	_, err := l.Evaluate(context.Background(), deep, Numeric, 10)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSymbolicCanonicalForms(t *testing.T) {
	tests := []struct {
		markup string
		want   string
	}{
		{"x+x", "2*x"},
		{"(x+1)^2", "1 + 2*x + x^2"},
		{"x - x", "0"},
		{`\frac{x}{x}`, "1"},
		{`\frac{1}{x}`, "x^-1"},
		{`\sqrt{8}`, "2*sqrt(2)"},
		{`\sqrt{2}\sqrt{2}`, "2"},
		{`\sqrt{2}\sqrt{6}`, "2*sqrt(3)"},
		{`\frac{1}{\sqrt{2}}`, "1/2*sqrt(2)"},
		{`\sqrt{\frac{1}{4}}`, "1/2"},
		{`\sqrt[3]{16}`, "2*root3(2)"},
		{`2\pi r`, "2*pi*r"},
		{`x_1 + x_{12}`, "x_1 + x_12"},
		{`\frac{35200}{151600}`, "88/379"},
		{`n!`, "factorial(n)"},
		{`\sqrt{x}`, "sqrt(x)"},
	}
	for _, tt := range tests {
		t.Run(tt.markup, func(t *testing.T) {
			v := evalSymbolic(t, tt.markup)
			assert.Equal(t, KindSymbolic, v.Kind())
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestSymbolicEquivalence(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{fracSmall, `\frac{35200}{151600}`, true},
		{fracSmall, fracBinom, true},
		{fracSmall, `\frac{2}{11}`, false},
		{`\frac{x^2-1}{x-1}`, "x+1", true},
		{`\frac{1}{x+1}`, `\frac{2}{2x+2}`, true},
		{`\frac{1}{x + \frac{1}{x}}`, `\frac{x}{x^2+1}`, true},
		{`\frac{1}{\sqrt{2}}`, `\frac{\sqrt{2}}{2}`, true},
		{"x", "y", false},
		{`\pi`, "3.14159", false},
		{"(a+b)^2", "a^2+2ab+b^2", true},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			a := evalSymbolic(t, tt.a)
			b := evalSymbolic(t, tt.b)
			got, err := a.Form().Equivalent(context.Background(), b.Form())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSymbolicFailures(t *testing.T) {
	tests := []struct {
		markup string
		want   error
	}{
		{`\frac{x}{0}`, ErrDomain},
		{`\frac{1}{x-x}`, ErrDomain},
		{"x^y", ErrUnsupported},
		{`\sqrt{-4}`, ErrDomain},
		{"(x+y+z)^{200}", ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.markup, func(t *testing.T) {
			_, err := NewLaTeX().Evaluate(context.Background(), tt.markup, Symbolic, 10)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Symbolic")
	require.NoError(t, err)
	assert.Equal(t, Symbolic, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Numeric, m)

	_, err = ParseMode("fuzzy")
	assert.Error(t, err)
}
