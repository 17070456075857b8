package expr

import (
	"fmt"
	"strings"
)

// Mode selects how an Engine evaluates markup and which equivalence rule
// applies to the result.
type Mode int

const (
	Numeric Mode = iota
	Symbolic
)

func (m Mode) String() string {
	switch m {
	case Numeric:
		return "numeric"
	case Symbolic:
		return "symbolic"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps the textual names used in job files and requests.
// An empty string means Numeric.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "numeric":
		return Numeric, nil
	case "symbolic":
		return Symbolic, nil
	default:
		return 0, fmt.Errorf("invalid mode %q", s)
	}
}
