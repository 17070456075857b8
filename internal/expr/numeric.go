package expr

import (
	"context"
	"fmt"
	"math/big"
)

// guardDigits are carried past the requested precision through inexact
// steps so the final rounding is not polluted by intermediate error.
const guardDigits = 10

// MaxPrecision is the largest significant digit count DefaultLimits allows.
const MaxPrecision = 10000

// Limits bounds the work a single evaluation may do. Single big.Int calls
// cannot be interrupted, so every cap here also bounds how long an abandoned
// evaluation keeps running after its deadline.
type Limits struct {
	MaxBits        int   // size of any exact intermediate numerator plus denominator
	MaxExponent    int64 // magnitude of integer exponents
	MaxRootIndex   int64
	MaxFactorial   int64
	MaxBinomial    int64
	MaxTerms       int // terms in a symbolic polynomial
	MaxDepth       int // parser nesting, operator chains included
	MaxPrecision   int // significant digits
	MaxInputLength int // bytes of markup
}

func DefaultLimits() Limits {
	return Limits{
		MaxBits:        1 << 17,
		MaxExponent:    100000,
		MaxRootIndex:   64,
		MaxFactorial:   5000,
		MaxBinomial:    10000,
		MaxTerms:       5000,
		MaxDepth:       600,
		MaxPrecision:   MaxPrecision,
		MaxInputLength: 4096,
	}
}

// numeric evaluates a tree to a rational. Exact results stay exact; once a
// root or pi enters, the result is marked inexact and rounded to the working
// digit count after every step.
type numeric struct {
	ctx    context.Context
	digits int
	limits Limits
}

type approx struct {
	v     *big.Rat
	exact bool
}

func (n *numeric) eval(nd *node) (approx, error) {
	if err := n.ctx.Err(); err != nil {
		return approx{}, err
	}
	switch nd.op {
	case opNum:
		r, ok := new(big.Rat).SetString(nd.text)
		if !ok {
			return approx{}, fmt.Errorf("%w: bad number %q", ErrSyntax, nd.text)
		}
		return approx{v: r, exact: true}, nil

	case opVar:
		return approx{}, fmt.Errorf("%w: free variable %q in numeric mode", ErrUnsupported, nd.text)

	case opPi:
		pi, err := piRat(n.ctx, n.digits)
		if err != nil {
			return approx{}, err
		}
		return approx{v: pi}, nil

	case opNeg:
		a, err := n.eval(nd.args[0])
		if err != nil {
			return approx{}, err
		}
		return approx{v: new(big.Rat).Neg(a.v), exact: a.exact}, nil

	case opAdd, opSub, opMul, opDiv:
		a, err := n.eval(nd.args[0])
		if err != nil {
			return approx{}, err
		}
		b, err := n.eval(nd.args[1])
		if err != nil {
			return approx{}, err
		}
		r := new(big.Rat)
		switch nd.op {
		case opAdd:
			r.Add(a.v, b.v)
		case opSub:
			r.Sub(a.v, b.v)
		case opMul:
			r.Mul(a.v, b.v)
		case opDiv:
			if b.v.Sign() == 0 {
				return approx{}, fmt.Errorf("%w: division by zero", ErrDomain)
			}
			r.Quo(a.v, b.v)
		}
		return n.settle(r, a.exact && b.exact)

	case opPow:
		return n.pow(nd)

	case opRoot:
		rad, err := n.eval(nd.args[0])
		if err != nil {
			return approx{}, err
		}
		idx, err := n.eval(nd.args[1])
		if err != nil {
			return approx{}, err
		}
		k, err := n.rootIndex(idx)
		if err != nil {
			return approx{}, err
		}
		return n.root(rad, k)

	case opFact:
		a, err := n.eval(nd.args[0])
		if err != nil {
			return approx{}, err
		}
		k, err := smallInt(a, 0, n.limits.MaxFactorial, "factorial")
		if err != nil {
			return approx{}, err
		}
		f := new(big.Int).MulRange(1, k)
		return n.settle(new(big.Rat).SetInt(f), true)

	case opBinom:
		a, err := n.eval(nd.args[0])
		if err != nil {
			return approx{}, err
		}
		b, err := n.eval(nd.args[1])
		if err != nil {
			return approx{}, err
		}
		return binomial(a, b, n.limits.MaxBinomial, n.settle)
	}
	return approx{}, fmt.Errorf("%w: operator %d", ErrUnsupported, nd.op)
}

// settle enforces the size cap on exact values and rounds inexact ones.
func (n *numeric) settle(r *big.Rat, exact bool) (approx, error) {
	if !exact {
		if r.Sign() == 0 {
			return approx{v: r}, nil
		}
		v, _, _, err := roundSignificant(n.ctx, r, n.digits)
		if err != nil {
			return approx{}, err
		}
		return approx{v: v}, nil
	}
	if r.Num().BitLen()+r.Denom().BitLen() > n.limits.MaxBits {
		return approx{}, fmt.Errorf("%w: intermediate value exceeds %d bits", ErrTooLarge, n.limits.MaxBits)
	}
	return approx{v: r, exact: true}, nil
}

func (n *numeric) pow(nd *node) (approx, error) {
	base, err := n.eval(nd.args[0])
	if err != nil {
		return approx{}, err
	}
	exp, err := n.eval(nd.args[1])
	if err != nil {
		return approx{}, err
	}

	if exp.v.IsInt() {
		e := exp.v.Num()
		if !e.IsInt64() || absInt64(e.Int64()) > n.limits.MaxExponent {
			return approx{}, fmt.Errorf("%w: exponent %s", ErrTooLarge, e)
		}
		bits := int64(base.v.Num().BitLen() + base.v.Denom().BitLen())
		if bits*absInt64(e.Int64()) > int64(n.limits.MaxBits)+bits {
			return approx{}, fmt.Errorf("%w: power exceeds %d bits", ErrTooLarge, n.limits.MaxBits)
		}
		r, err := ratPow(base.v, e.Int64())
		if err != nil {
			return approx{}, err
		}
		return n.settle(r, base.exact)
	}

	// p/q with a small q: the q-th root raised to p.
	if !exp.exact || !exp.v.Denom().IsInt64() || exp.v.Denom().Int64() > n.limits.MaxRootIndex {
		return approx{}, fmt.Errorf("%w: non-rational exponent", ErrUnsupported)
	}
	q := exp.v.Denom().Int64()
	p := exp.v.Num()
	if !p.IsInt64() || absInt64(p.Int64()) > n.limits.MaxExponent {
		return approx{}, fmt.Errorf("%w: exponent %s", ErrTooLarge, exp.v.RatString())
	}
	rt, err := n.root(base, q)
	if err != nil {
		return approx{}, err
	}
	r, err := ratPow(rt.v, p.Int64())
	if err != nil {
		return approx{}, err
	}
	return n.settle(r, rt.exact)
}

func (n *numeric) rootIndex(idx approx) (int64, error) {
	k, err := smallInt(idx, 2, n.limits.MaxRootIndex, "root index")
	if err != nil {
		return 0, err
	}
	return k, nil
}

// root computes the real k-th root, exactly when x is a perfect k-th power.
func (n *numeric) root(x approx, k int64) (approx, error) {
	if x.v.Sign() == 0 {
		return approx{v: new(big.Rat), exact: x.exact}, nil
	}
	if x.v.Sign() < 0 {
		if k%2 == 0 {
			return approx{}, fmt.Errorf("%w: even root of a negative number", ErrDomain)
		}
		r, err := n.root(approx{v: new(big.Rat).Neg(x.v), exact: x.exact}, k)
		if err != nil {
			return approx{}, err
		}
		return approx{v: r.v.Neg(r.v), exact: r.exact}, nil
	}

	num, den := x.v.Num(), x.v.Denom()
	if x.exact {
		rn, err := intRoot(n.ctx, num, k)
		if err != nil {
			return approx{}, err
		}
		rd, err := intRoot(n.ctx, den, k)
		if err != nil {
			return approx{}, err
		}
		if isPow(rn, k, num) && isPow(rd, k, den) {
			return approx{v: new(big.Rat).SetFrac(rn, rd), exact: true}, nil
		}
	}

	// root(p/q) = root(p * q^(k-1)) / q, scaled by 10^d so the integer root
	// carries enough significant digits.
	radicand := new(big.Int).Exp(den, big.NewInt(k-1), nil)
	radicand.Mul(radicand, num)
	d := int64(n.digits) + 2 - decimalExponent(x.v)/k
	if d < 0 {
		d = 0
	}
	scaled := new(big.Int).Mul(radicand, pow10Int(d*k))
	if scaled.BitLen() > 4*n.limits.MaxBits {
		return approx{}, fmt.Errorf("%w: root operand", ErrTooLarge)
	}
	r, err := intRoot(n.ctx, scaled, k)
	if err != nil {
		return approx{}, err
	}
	out := new(big.Rat).SetFrac(r, new(big.Int).Mul(den, pow10Int(d)))
	return n.settle(out, false)
}

// intRoot returns floor(x^(1/k)) for x >= 0.
func intRoot(ctx context.Context, x *big.Int, k int64) (*big.Int, error) {
	if x.Sign() == 0 || x.Cmp(big.NewInt(1)) == 0 {
		return new(big.Int).Set(x), nil
	}
	if k == 2 {
		return new(big.Int).Sqrt(x), nil
	}
	kk := big.NewInt(k)
	km1 := big.NewInt(k - 1)
	// start above the root so Newton descends monotonically
	y := new(big.Int).Lsh(big.NewInt(1), uint(x.BitLen()/int(k)+1))
	for i := 0; ; i++ {
		if i%16 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		t := new(big.Int).Exp(y, km1, nil)
		t.Quo(x, t)
		t.Add(t, new(big.Int).Mul(y, km1))
		t.Quo(t, kk)
		if t.Cmp(y) >= 0 {
			return y, nil
		}
		y = t
	}
}

func isPow(r *big.Int, k int64, x *big.Int) bool {
	return new(big.Int).Exp(r, big.NewInt(k), nil).Cmp(x) == 0
}

func ratPow(b *big.Rat, e int64) (*big.Rat, error) {
	if e == 0 {
		return big.NewRat(1, 1), nil
	}
	if b.Sign() == 0 {
		if e < 0 {
			return nil, fmt.Errorf("%w: zero to a negative power", ErrDomain)
		}
		return new(big.Rat), nil
	}
	ee := big.NewInt(absInt64(e))
	num := new(big.Int).Exp(b.Num(), ee, nil)
	den := new(big.Int).Exp(b.Denom(), ee, nil)
	if e < 0 {
		num, den = den, num
	}
	return new(big.Rat).SetFrac(num, den), nil
}

func smallInt(a approx, lo, hi int64, what string) (int64, error) {
	if !a.exact || !a.v.IsInt() {
		return 0, fmt.Errorf("%w: %s needs an integer", ErrUnsupported, what)
	}
	n := a.v.Num()
	if n.Cmp(big.NewInt(lo)) < 0 {
		return 0, fmt.Errorf("%w: %s %s below %d", ErrDomain, what, n, lo)
	}
	if !n.IsInt64() || n.Int64() > hi {
		return 0, fmt.Errorf("%w: %s %s above %d", ErrTooLarge, what, n, hi)
	}
	return n.Int64(), nil
}

func binomial(a, b approx, max int64, settle func(*big.Rat, bool) (approx, error)) (approx, error) {
	n, err := smallInt(a, 0, max, "binomial")
	if err != nil {
		return approx{}, err
	}
	if !b.exact || !b.v.IsInt() {
		return approx{}, fmt.Errorf("%w: binomial needs an integer", ErrUnsupported)
	}
	k := b.v.Num()
	if k.Sign() < 0 || k.Cmp(big.NewInt(n)) > 0 {
		return approx{v: new(big.Rat), exact: true}, nil
	}
	c := new(big.Int).Binomial(n, k.Int64())
	return settle(new(big.Rat).SetInt(c), true)
}

// piRat computes pi to the given number of digits with Machin's formula in
// fixed point.
func piRat(ctx context.Context, digits int) (*big.Rat, error) {
	scale := pow10Int(int64(digits + guardDigits))
	a, err := arctanInv(ctx, 5, scale)
	if err != nil {
		return nil, err
	}
	b, err := arctanInv(ctx, 239, scale)
	if err != nil {
		return nil, err
	}
	pi := a.Mul(a, big.NewInt(16))
	pi.Sub(pi, b.Mul(b, big.NewInt(4)))
	return new(big.Rat).SetFrac(pi, scale), nil
}

// arctanInv returns arctan(1/x) * scale.
func arctanInv(ctx context.Context, x int64, scale *big.Int) (*big.Int, error) {
	bx := big.NewInt(x)
	x2 := big.NewInt(x * x)
	term := new(big.Int).Quo(scale, bx)
	sum := new(big.Int).Set(term)
	t := new(big.Int)
	for i, k := 1, int64(3); term.Sign() != 0; i, k = i+1, k+2 {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		term.Quo(term, x2)
		t.Quo(term, big.NewInt(k))
		if i%2 == 1 {
			sum.Sub(sum, t)
		} else {
			sum.Add(sum, t)
		}
	}
	return sum, nil
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
