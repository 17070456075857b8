package expr

import (
	"context"
	"fmt"
	"math/big"
	"strings"
)

type Kind int

const (
	KindNumeric Kind = iota + 1
	KindSymbolic
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindSymbolic:
		return "symbolic"
	default:
		return "invalid"
	}
}

// Form is the canonical shape of a symbolically evaluated expression.
type Form interface {
	String() string
	// Equivalent reports whether both forms canonicalise to the same thing.
	// It may do real work, so it honours ctx.
	Equivalent(ctx context.Context, other Form) (bool, error)
}

// Canonical is a Form whose identity is its text.
type Canonical string

func (c Canonical) String() string { return string(c) }

func (c Canonical) Equivalent(_ context.Context, other Form) (bool, error) {
	return other != nil && string(c) == other.String(), nil
}

// Value is an evaluated expression. It is immutable: accessors hand out
// copies and nothing in this package changes a Value after construction.
type Value struct {
	kind   Kind
	num    *big.Rat
	digits string
	text   string
	form   Form
}

// NumericValue rounds x half away from zero to precision significant
// digits.
func NumericValue(x *big.Rat, precision int) Value {
	v, _ := numericValue(context.Background(), x, precision)
	return v
}

func numericValue(ctx context.Context, x *big.Rat, precision int) (Value, error) {
	r, digits, text, err := roundSignificant(ctx, x, precision)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindNumeric, num: r, digits: digits, text: text}, nil
}

// ParseNumeric builds a numeric Value from a plain decimal such as "1.5",
// "-2" or "3e-4".
func ParseNumeric(s string, precision int) (Value, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return Value{}, fmt.Errorf("%w: %q is not a decimal", ErrSyntax, s)
	}
	return NumericValue(r, precision), nil
}

func SymbolicValue(f Form) Value {
	return Value{kind: KindSymbolic, form: f, text: f.String()}
}

func (v Value) Kind() Kind { return v.kind }

// Rat returns a copy of the numeric value, or nil for symbolic values.
func (v Value) Rat() *big.Rat {
	if v.num == nil {
		return nil
	}
	return new(big.Rat).Set(v.num)
}

// Digits is the decimal digit sequence of a numeric value without sign or
// decimal point. Leading zeros of values below one are included
// ("0.0005" -> "00005"); trailing zeros after the point are not.
func (v Value) Digits() string { return v.digits }

func (v Value) Form() Form { return v.form }

func (v Value) String() string { return v.text }

func roundSignificant(ctx context.Context, x *big.Rat, precision int) (*big.Rat, string, string, error) {
	if precision < 1 {
		precision = 1
	}
	if x.Sign() == 0 {
		return new(big.Rat), "0", "0", nil
	}
	neg := x.Sign() < 0
	a := new(big.Rat).Abs(x)

	scale := int64(precision-1) - decimalExponent(a)
	if err := ctx.Err(); err != nil {
		return nil, "", "", err
	}
	n := roundHalfUp(new(big.Rat).Mul(a, pow10Rat(scale)))
	if err := ctx.Err(); err != nil {
		return nil, "", "", err
	}

	s := n.String()
	if zeros := len(s) - len(strings.TrimRight(s, "0")); zeros > 0 {
		s = s[:len(s)-zeros]
		n.Quo(n, pow10Int(int64(zeros)))
		scale -= int64(zeros)
	}

	r := new(big.Rat).Mul(new(big.Rat).SetInt(n), pow10Rat(-scale))
	if neg {
		r.Neg(r)
	}

	var digits, text string
	switch {
	case scale <= 0:
		digits = s + strings.Repeat("0", int(-scale))
		text = digits
	case int64(len(s)) > scale:
		cut := len(s) - int(scale)
		digits = s
		text = s[:cut] + "." + s[cut:]
	default:
		pad := strings.Repeat("0", int(scale)-len(s))
		digits = "0" + pad + s
		text = "0." + pad + s
	}
	if neg {
		text = "-" + text
	}
	return r, digits, text, nil
}

// decimalExponent returns floor(log10(a)) for a > 0.
func decimalExponent(a *big.Rat) int64 {
	e := int64(len(a.Num().String()) - len(a.Denom().String()))
	if a.Cmp(pow10Rat(e)) < 0 {
		e--
	}
	if a.Cmp(pow10Rat(e+1)) >= 0 {
		e++
	}
	return e
}

func pow10Int(e int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(e), nil)
}

func pow10Rat(e int64) *big.Rat {
	if e >= 0 {
		return new(big.Rat).SetInt(pow10Int(e))
	}
	return new(big.Rat).SetFrac(big.NewInt(1), pow10Int(-e))
}

// roundHalfUp rounds a non-negative rational to the nearest integer, ties
// away from zero.
func roundHalfUp(m *big.Rat) *big.Int {
	q, r := new(big.Int).QuoRem(m.Num(), m.Denom(), new(big.Int))
	if new(big.Int).Lsh(r, 1).Cmp(m.Denom()) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
