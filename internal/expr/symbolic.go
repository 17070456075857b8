package expr

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// The symbolic normal form is a quotient of two Laurent polynomials with
// rational coefficients. Atoms are variables, pi, k-th roots of k-th-power
// free integers, and opaque atoms for anything that cannot be reduced (roots
// of non-constants, factorials of variables). Products of integer roots with
// the same index are merged, so sqrt(2)*sqrt(8) is 4.

type atomKind int

const (
	atomVar atomKind = iota
	atomPi
	atomRoot
	atomOpaque
)

type atom struct {
	name     string
	kind     atomKind
	index    int64
	radicand *big.Int
}

type factor struct {
	a   *atom
	pow int64
}

type term struct {
	coef    *big.Rat
	factors []factor // sorted by atom name, no zero powers
}

func (t *term) key() string {
	parts := make([]string, len(t.factors))
	for i, f := range t.factors {
		if f.pow == 1 {
			parts[i] = f.a.name
		} else {
			parts[i] = f.a.name + "^" + strconv.FormatInt(f.pow, 10)
		}
	}
	return strings.Join(parts, "*")
}

func (t *term) String() string {
	k := t.key()
	switch {
	case k == "":
		return t.coef.RatString()
	case t.coef.Cmp(big.NewRat(1, 1)) == 0:
		return k
	case t.coef.Cmp(big.NewRat(-1, 1)) == 0:
		return "-" + k
	}
	return t.coef.RatString() + "*" + k
}

type poly map[string]*term

func constPoly(r *big.Rat) poly {
	p := poly{}
	if r.Sign() != 0 {
		p[""] = &term{coef: new(big.Rat).Set(r)}
	}
	return p
}

func atomPoly(a *atom) poly {
	return poly{a.name: &term{coef: big.NewRat(1, 1), factors: []factor{{a: a, pow: 1}}}}
}

func (p poly) constant() (*big.Rat, bool) {
	switch len(p) {
	case 0:
		return new(big.Rat), true
	case 1:
		if t, ok := p[""]; ok {
			return t.coef, true
		}
	}
	return nil, false
}

func (p poly) keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p poly) String() string {
	if len(p) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, k := range p.keys() {
		s := p[k].String()
		switch {
		case i == 0:
			b.WriteString(s)
		case strings.HasPrefix(s, "-"):
			b.WriteString(" - " + s[1:])
		default:
			b.WriteString(" + " + s)
		}
	}
	return b.String()
}

// addTerm folds t into p, dropping the term when coefficients cancel.
func (p poly) addTerm(t *term) {
	k := t.key()
	if cur, ok := p[k]; ok {
		c := new(big.Rat).Add(cur.coef, t.coef)
		if c.Sign() == 0 {
			delete(p, k)
			return
		}
		p[k] = &term{coef: c, factors: cur.factors}
		return
	}
	if t.coef.Sign() != 0 {
		p[k] = t
	}
}

func (p poly) scale(r *big.Rat) poly {
	out := poly{}
	if r.Sign() == 0 {
		return out
	}
	for k, t := range p {
		out[k] = &term{coef: new(big.Rat).Mul(t.coef, r), factors: t.factors}
	}
	return out
}

type symbolic struct {
	ctx    context.Context
	limits Limits
}

func (s *symbolic) add(a, b poly) poly {
	out := poly{}
	for _, t := range a {
		out.addTerm(t)
	}
	for _, t := range b {
		out.addTerm(t)
	}
	return out
}

func (s *symbolic) mul(a, b poly) (poly, error) {
	out := poly{}
	for _, x := range a {
		if err := s.ctx.Err(); err != nil {
			return nil, err
		}
		for _, y := range b {
			t, err := s.mulTerms(x, y)
			if err != nil {
				return nil, err
			}
			out.addTerm(t)
		}
		if len(out) > s.limits.MaxTerms {
			return nil, fmt.Errorf("%w: more than %d terms", ErrTooLarge, s.limits.MaxTerms)
		}
	}
	return out, nil
}

func (s *symbolic) mulTerms(x, y *term) (*term, error) {
	coef := new(big.Rat).Mul(x.coef, y.coef)
	if coef.Num().BitLen()+coef.Denom().BitLen() > s.limits.MaxBits {
		return nil, fmt.Errorf("%w: coefficient exceeds %d bits", ErrTooLarge, s.limits.MaxBits)
	}
	pows := map[string]factor{}
	for _, fs := range [][]factor{x.factors, y.factors} {
		for _, f := range fs {
			cur, ok := pows[f.a.name]
			if !ok {
				cur = factor{a: f.a}
			}
			cur.pow += f.pow
			pows[f.a.name] = cur
		}
	}
	return s.normalizeTerm(coef, pows)
}

// normalizeTerm drops zero powers and folds integer roots of equal index into
// a single root with a k-th-power free radicand.
func (s *symbolic) normalizeTerm(coef *big.Rat, pows map[string]factor) (*term, error) {
	radicands := map[int64]*big.Int{}
	var out []factor
	for _, f := range pows {
		switch {
		case f.pow == 0:
		case f.a.kind == atomRoot:
			q, r := floorDivMod(f.pow, f.a.index)
			if q != 0 {
				c, err := ratPow(new(big.Rat).SetInt(f.a.radicand), q)
				if err != nil {
					return nil, err
				}
				coef.Mul(coef, c)
			}
			if r != 0 {
				n, ok := radicands[f.a.index]
				if !ok {
					n = big.NewInt(1)
					radicands[f.a.index] = n
				}
				n.Mul(n, new(big.Int).Exp(f.a.radicand, big.NewInt(r), nil))
			}
		default:
			out = append(out, f)
		}
	}
	for k, n := range radicands {
		c, m, err := extractPower(s.ctx, n, k)
		if err != nil {
			return nil, err
		}
		coef.Mul(coef, new(big.Rat).SetInt(c))
		if m.Cmp(big.NewInt(1)) != 0 {
			out = append(out, factor{a: rootAtom(m, k), pow: 1})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].a.name < out[j].a.name })
	return &term{coef: coef, factors: out}, nil
}

func rootAtom(m *big.Int, k int64) *atom {
	name := "sqrt(" + m.String() + ")"
	if k != 2 {
		name = "root" + strconv.FormatInt(k, 10) + "(" + m.String() + ")"
	}
	return &atom{name: name, kind: atomRoot, index: k, radicand: new(big.Int).Set(m)}
}

func floorDivMod(a, b int64) (int64, int64) {
	q, r := a/b, a%b
	if r < 0 {
		q--
		r += b
	}
	return q, r
}

// extractPower splits n into c^k * m with m free of k-th powers of small
// primes.
func extractPower(ctx context.Context, n *big.Int, k int64) (*big.Int, *big.Int, error) {
	const trialLimit = 10000
	c, m := big.NewInt(1), big.NewInt(1)
	rest := new(big.Int).Set(n)
	p := big.NewInt(2)
	q, r := new(big.Int), new(big.Int)
	for i := 0; i < trialLimit; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		if new(big.Int).Mul(p, p).Cmp(rest) > 0 {
			break
		}
		var e int64
		for {
			q.QuoRem(rest, p, r)
			if r.Sign() != 0 {
				break
			}
			rest.Set(q)
			e++
		}
		if e > 0 {
			c.Mul(c, new(big.Int).Exp(p, big.NewInt(e/k), nil))
			m.Mul(m, new(big.Int).Exp(p, big.NewInt(e%k), nil))
		}
		p.Add(p, big.NewInt(1))
	}
	if rest.Cmp(big.NewInt(1)) > 0 {
		root, err := intRoot(ctx, rest, k)
		if err != nil {
			return nil, nil, err
		}
		if isPow(root, k, rest) {
			c.Mul(c, root)
		} else {
			m.Mul(m, rest)
		}
	}
	return c, m, nil
}

// ratfunc is num/den. den is 1 whenever the quotient is a Laurent
// polynomial, otherwise it is scaled so its first term has coefficient 1.
type ratfunc struct {
	num, den poly
}

func constFunc(r *big.Rat) *ratfunc {
	return &ratfunc{num: constPoly(r), den: constPoly(big.NewRat(1, 1))}
}

func atomFunc(a *atom) *ratfunc {
	return &ratfunc{num: atomPoly(a), den: constPoly(big.NewRat(1, 1))}
}

func (f *ratfunc) constant() (*big.Rat, bool) {
	d, ok := f.den.constant()
	if !ok || d.Cmp(big.NewRat(1, 1)) != 0 {
		return nil, false
	}
	return f.num.constant()
}

func (f *ratfunc) String() string {
	if d, ok := f.den.constant(); ok && d.Cmp(big.NewRat(1, 1)) == 0 {
		return f.num.String()
	}
	return "(" + f.num.String() + ")/(" + f.den.String() + ")"
}

// Equivalent cross-multiplies: a/b == c/d iff a*d - c*b is the zero
// polynomial.
func (f *ratfunc) Equivalent(ctx context.Context, other Form) (bool, error) {
	g, ok := other.(*ratfunc)
	if !ok {
		return other != nil && f.String() == other.String(), nil
	}
	if f.String() == g.String() {
		return true, nil
	}
	s := &symbolic{ctx: ctx, limits: DefaultLimits()}
	ad, err := s.mul(f.num, g.den)
	if err != nil {
		return false, err
	}
	cb, err := s.mul(g.num, f.den)
	if err != nil {
		return false, err
	}
	return len(s.add(ad, cb.scale(big.NewRat(-1, 1)))) == 0, nil
}

func (s *symbolic) normalize(num, den poly) (*ratfunc, error) {
	if len(den) == 0 {
		return nil, fmt.Errorf("%w: division by zero", ErrDomain)
	}
	if len(num) == 0 {
		return constFunc(new(big.Rat)), nil
	}
	if len(den) == 1 {
		var t *term
		for _, v := range den {
			t = v
		}
		inv := map[string]factor{}
		for _, f := range t.factors {
			inv[f.a.name] = factor{a: f.a, pow: -f.pow}
		}
		it, err := s.normalizeTerm(new(big.Rat).Inv(t.coef), inv)
		if err != nil {
			return nil, err
		}
		n, err := s.mul(num, poly{it.key(): it})
		if err != nil {
			return nil, err
		}
		return &ratfunc{num: n, den: constPoly(big.NewRat(1, 1))}, nil
	}
	lead := new(big.Rat).Inv(den[den.keys()[0]].coef)
	return &ratfunc{num: num.scale(lead), den: den.scale(lead)}, nil
}

func (s *symbolic) addFunc(a, b *ratfunc) (*ratfunc, error) {
	if a.den.String() == b.den.String() {
		return s.normalize(s.add(a.num, b.num), a.den)
	}
	ad, err := s.mul(a.num, b.den)
	if err != nil {
		return nil, err
	}
	cb, err := s.mul(b.num, a.den)
	if err != nil {
		return nil, err
	}
	bd, err := s.mul(a.den, b.den)
	if err != nil {
		return nil, err
	}
	return s.normalize(s.add(ad, cb), bd)
}

func (s *symbolic) negFunc(a *ratfunc) *ratfunc {
	return &ratfunc{num: a.num.scale(big.NewRat(-1, 1)), den: a.den}
}

func (s *symbolic) mulFunc(a, b *ratfunc) (*ratfunc, error) {
	num, err := s.mul(a.num, b.num)
	if err != nil {
		return nil, err
	}
	den, err := s.mul(a.den, b.den)
	if err != nil {
		return nil, err
	}
	return s.normalize(num, den)
}

func (s *symbolic) divFunc(a, b *ratfunc) (*ratfunc, error) {
	if len(b.num) == 0 {
		return nil, fmt.Errorf("%w: division by zero", ErrDomain)
	}
	return s.mulFunc(a, &ratfunc{num: b.den, den: b.num})
}

func (s *symbolic) powInt(a *ratfunc, e int64) (*ratfunc, error) {
	if absInt64(e) > s.limits.MaxExponent {
		return nil, fmt.Errorf("%w: exponent %d", ErrTooLarge, e)
	}
	if e < 0 {
		if len(a.num) == 0 {
			return nil, fmt.Errorf("%w: zero to a negative power", ErrDomain)
		}
		inv, err := s.normalize(a.den, a.num)
		if err != nil {
			return nil, err
		}
		return s.powInt(inv, -e)
	}
	out := constFunc(big.NewRat(1, 1))
	base := a
	for e > 0 {
		var err error
		if e&1 == 1 {
			if out, err = s.mulFunc(out, base); err != nil {
				return nil, err
			}
		}
		e >>= 1
		if e > 0 {
			if base, err = s.mulFunc(base, base); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// rootFunc is the real k-th root. Constant radicands are reduced exactly;
// anything else becomes an opaque atom.
func (s *symbolic) rootFunc(a *ratfunc, k int64) (*ratfunc, error) {
	r, ok := a.constant()
	if !ok {
		name := "sqrt(" + a.String() + ")"
		if k != 2 {
			name = "root" + strconv.FormatInt(k, 10) + "(" + a.String() + ")"
		}
		return atomFunc(&atom{name: name, kind: atomOpaque}), nil
	}
	switch r.Sign() {
	case 0:
		return constFunc(new(big.Rat)), nil
	case -1:
		if k%2 == 0 {
			return nil, fmt.Errorf("%w: even root of a negative number", ErrDomain)
		}
		pos, err := s.rootFunc(constFunc(new(big.Rat).Neg(r)), k)
		if err != nil {
			return nil, err
		}
		return s.negFunc(pos), nil
	}
	// root(p/q) = root(p * q^(k-1)) / q
	n := new(big.Int).Exp(r.Denom(), big.NewInt(k-1), nil)
	n.Mul(n, r.Num())
	if n.BitLen() > s.limits.MaxBits {
		return nil, fmt.Errorf("%w: root operand", ErrTooLarge)
	}
	c, m, err := extractPower(s.ctx, n, k)
	if err != nil {
		return nil, err
	}
	coef := new(big.Rat).SetFrac(c, r.Denom())
	if m.Cmp(big.NewInt(1)) == 0 {
		return constFunc(coef), nil
	}
	t := &term{coef: coef, factors: []factor{{a: rootAtom(m, k), pow: 1}}}
	return &ratfunc{num: poly{t.key(): t}, den: constPoly(big.NewRat(1, 1))}, nil
}

func (s *symbolic) eval(nd *node) (*ratfunc, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	switch nd.op {
	case opNum:
		r, ok := new(big.Rat).SetString(nd.text)
		if !ok {
			return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, nd.text)
		}
		return constFunc(r), nil

	case opVar:
		return atomFunc(&atom{name: nd.text, kind: atomVar}), nil

	case opPi:
		return atomFunc(&atom{name: "pi", kind: atomPi}), nil

	case opNeg:
		a, err := s.eval(nd.args[0])
		if err != nil {
			return nil, err
		}
		return s.negFunc(a), nil

	case opAdd, opSub, opMul, opDiv:
		a, err := s.eval(nd.args[0])
		if err != nil {
			return nil, err
		}
		b, err := s.eval(nd.args[1])
		if err != nil {
			return nil, err
		}
		switch nd.op {
		case opAdd:
			return s.addFunc(a, b)
		case opSub:
			return s.addFunc(a, s.negFunc(b))
		case opMul:
			return s.mulFunc(a, b)
		default:
			return s.divFunc(a, b)
		}

	case opPow:
		base, err := s.eval(nd.args[0])
		if err != nil {
			return nil, err
		}
		exp, err := s.eval(nd.args[1])
		if err != nil {
			return nil, err
		}
		e, ok := exp.constant()
		if !ok {
			return nil, fmt.Errorf("%w: symbolic exponent", ErrUnsupported)
		}
		if e.IsInt() {
			if !e.Num().IsInt64() {
				return nil, fmt.Errorf("%w: exponent %s", ErrTooLarge, e.RatString())
			}
			return s.powInt(base, e.Num().Int64())
		}
		if !e.Denom().IsInt64() || e.Denom().Int64() > s.limits.MaxRootIndex || !e.Num().IsInt64() {
			return nil, fmt.Errorf("%w: exponent %s", ErrUnsupported, e.RatString())
		}
		rt, err := s.rootFunc(base, e.Denom().Int64())
		if err != nil {
			return nil, err
		}
		return s.powInt(rt, e.Num().Int64())

	case opRoot:
		rad, err := s.eval(nd.args[0])
		if err != nil {
			return nil, err
		}
		idx, err := s.eval(nd.args[1])
		if err != nil {
			return nil, err
		}
		k, ok := idx.constant()
		if !ok {
			return nil, fmt.Errorf("%w: symbolic root index", ErrUnsupported)
		}
		n, err := smallInt(approx{v: k, exact: true}, 2, s.limits.MaxRootIndex, "root index")
		if err != nil {
			return nil, err
		}
		return s.rootFunc(rad, n)

	case opFact:
		a, err := s.eval(nd.args[0])
		if err != nil {
			return nil, err
		}
		r, ok := a.constant()
		if !ok {
			return atomFunc(&atom{name: "factorial(" + a.String() + ")", kind: atomOpaque}), nil
		}
		k, err := smallInt(approx{v: r, exact: true}, 0, s.limits.MaxFactorial, "factorial")
		if err != nil {
			return nil, err
		}
		return constFunc(new(big.Rat).SetInt(new(big.Int).MulRange(1, k))), nil

	case opBinom:
		a, err := s.eval(nd.args[0])
		if err != nil {
			return nil, err
		}
		b, err := s.eval(nd.args[1])
		if err != nil {
			return nil, err
		}
		n, nok := a.constant()
		k, kok := b.constant()
		if !nok || !kok {
			return atomFunc(&atom{name: "binom(" + a.String() + ", " + b.String() + ")", kind: atomOpaque}), nil
		}
		res, err := binomial(approx{v: n, exact: true}, approx{v: k, exact: true}, s.limits.MaxBinomial,
			func(r *big.Rat, _ bool) (approx, error) { return approx{v: r, exact: true}, nil })
		if err != nil {
			return nil, err
		}
		return constFunc(res.v), nil
	}
	return nil, fmt.Errorf("%w: operator %d", ErrUnsupported, nd.op)
}
