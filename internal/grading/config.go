package grading

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-grader/internal/expr"
)

const (
	DefaultPrecision           = 100
	DefaultSuspiciousRunLength = 6
	DefaultTimeBudget          = time.Second
	DefaultWorkers             = 1

	// Upper bounds accepted by Validate. A deadline stops waiting for an
	// evaluation, not the work itself, so these keep abandoned work small.
	MaxPrecision  = expr.MaxPrecision
	MaxTimeBudget = time.Minute
	MaxWorkers    = 64
)

var ErrInvalidConfig = errors.New("invalid grading config")

// SuspicionRule selects how digit runs are counted.
type SuspicionRule int

const (
	// RepeatedDigit counts runs of one identical digit.
	RepeatedDigit SuspicionRule = iota
	// DigitRun counts runs of any consecutive digits.
	DigitRun
)

func (r SuspicionRule) String() string {
	switch r {
	case RepeatedDigit:
		return "repeated"
	case DigitRun:
		return "digits"
	}
	return fmt.Sprintf("SuspicionRule(%d)", int(r))
}

func ParseSuspicionRule(s string) (SuspicionRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "repeated", "repeated-digit":
		return RepeatedDigit, nil
	case "digits", "digit-run":
		return DigitRun, nil
	}
	return 0, fmt.Errorf("%w: unknown suspicion rule %q", ErrInvalidConfig, s)
}

// Tolerance is an exact, non-negative, inclusive bound on |ref - cand|.
// The zero value is a tolerance of zero.
type Tolerance struct {
	r *big.Rat
}

// ParseTolerance accepts decimal or rational text ("0.01", "1e-6", "1/3").
func ParseTolerance(s string) (Tolerance, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Tolerance{}, nil
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Tolerance{}, fmt.Errorf("%w: tolerance %q", ErrInvalidConfig, s)
	}
	switch r.Sign() {
	case -1:
		return Tolerance{}, fmt.Errorf("%w: negative tolerance %s", ErrInvalidConfig, s)
	case 0:
		return Tolerance{}, nil
	}
	return Tolerance{r: r}, nil
}

// MustTolerance is ParseTolerance for constants.
func MustTolerance(s string) Tolerance {
	t, err := ParseTolerance(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ToleranceFromFloat uses the shortest decimal that round-trips f, so 0.1
// means exactly one tenth.
func ToleranceFromFloat(f float64) (Tolerance, error) {
	return ParseTolerance(strconv.FormatFloat(f, 'g', -1, 64))
}

func (t Tolerance) Rat() *big.Rat {
	if t.r == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(t.r)
}

func (t Tolerance) IsZero() bool { return t.r == nil || t.r.Sign() == 0 }

// Within reports |diff| <= t.
func (t Tolerance) Within(diff *big.Rat) bool {
	abs := new(big.Rat).Abs(diff)
	if t.r == nil {
		return abs.Sign() == 0
	}
	return abs.Cmp(t.r) <= 0
}

func (t Tolerance) String() string {
	if t.r == nil {
		return "0"
	}
	if t.r.IsInt() {
		return t.r.Num().String()
	}
	if s, exact := t.r.FloatPrec(); exact {
		return t.r.FloatString(s)
	}
	return t.r.RatString()
}

// Config drives one grading pass. It is passed by value and never mutated
// after validation.
type Config struct {
	Mode                expr.Mode
	Precision           int
	SuspiciousRunLength int
	Tolerance           Tolerance
	TimeBudget          time.Duration
	SuspicionRule       SuspicionRule
	Workers             int
}

type Option func(*Config)

func WithMode(m expr.Mode) Option { return func(c *Config) { c.Mode = m } }

func WithPrecision(n int) Option { return func(c *Config) { c.Precision = n } }

func WithSuspiciousRunLength(n int) Option {
	return func(c *Config) { c.SuspiciousRunLength = n }
}

func WithTolerance(t Tolerance) Option { return func(c *Config) { c.Tolerance = t } }

func WithTimeBudget(d time.Duration) Option { return func(c *Config) { c.TimeBudget = d } }

func WithSuspicionRule(r SuspicionRule) Option {
	return func(c *Config) { c.SuspicionRule = r }
}

// WithWorkers bounds concurrent evaluations inside one batch. 1 is sequential.
func WithWorkers(n int) Option { return func(c *Config) { c.Workers = n } }

func DefaultConfig() Config {
	return Config{
		Mode:                expr.Numeric,
		Precision:           DefaultPrecision,
		SuspiciousRunLength: DefaultSuspiciousRunLength,
		TimeBudget:          DefaultTimeBudget,
		SuspicionRule:       RepeatedDigit,
		Workers:             DefaultWorkers,
	}
}

func NewConfig(opts ...Option) (Config, error) {
	c := DefaultConfig()
	for _, o := range opts {
		o(&c)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.Mode != expr.Numeric && c.Mode != expr.Symbolic:
		return fmt.Errorf("%w: mode %s", ErrInvalidConfig, c.Mode)
	case c.Precision < 1:
		return fmt.Errorf("%w: precision must be positive, got %d", ErrInvalidConfig, c.Precision)
	case c.Precision > MaxPrecision:
		return fmt.Errorf("%w: precision %d above %d", ErrInvalidConfig, c.Precision, MaxPrecision)
	case c.SuspiciousRunLength < 1:
		return fmt.Errorf("%w: suspicious run length must be positive, got %d", ErrInvalidConfig, c.SuspiciousRunLength)
	case c.TimeBudget <= 0:
		return fmt.Errorf("%w: time budget must be positive, got %s", ErrInvalidConfig, c.TimeBudget)
	case c.TimeBudget > MaxTimeBudget:
		return fmt.Errorf("%w: time budget %s above %s", ErrInvalidConfig, c.TimeBudget, MaxTimeBudget)
	case c.SuspicionRule != RepeatedDigit && c.SuspicionRule != DigitRun:
		return fmt.Errorf("%w: suspicion rule %s", ErrInvalidConfig, c.SuspicionRule)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.Workers > MaxWorkers:
		return fmt.Errorf("%w: workers %d above %d", ErrInvalidConfig, c.Workers, MaxWorkers)
	case c.Tolerance.r != nil && c.Tolerance.r.Sign() < 0:
		return fmt.Errorf("%w: negative tolerance", ErrInvalidConfig)
	}
	return nil
}
