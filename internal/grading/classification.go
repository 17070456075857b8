package grading

import "fmt"

// Classification is the outcome of grading one candidate.
type Classification int

const (
	NotEquivalent Classification = iota
	NotEquivalentSuspicious
	Equivalent
	EquivalentSuspicious
	Timeout
	Other
)

var printable = [...]string{"0", "0.1", "1", "1.1", "2", "3"}
var codes = [...]float64{0, 0.1, 1, 1.1, 2, 3}

// String returns the printable code written to result columns.
func (c Classification) String() string {
	if c < NotEquivalent || c > Other {
		return fmt.Sprintf("Classification(%d)", int(c))
	}
	return printable[c]
}

func (c Classification) Code() float64 {
	if c < NotEquivalent || c > Other {
		return -1
	}
	return codes[c]
}

func (c Classification) IsEquivalent() bool {
	return c == Equivalent || c == EquivalentSuspicious
}

func (c Classification) IsSuspicious() bool {
	return c == NotEquivalentSuspicious || c == EquivalentSuspicious
}

// Terminal reports whether the comparison finished with a verdict, as
// opposed to a timeout or an evaluation failure.
func (c Classification) Terminal() bool { return c <= EquivalentSuspicious && c >= NotEquivalent }

func classify(equivalent, suspicious bool) Classification {
	switch {
	case equivalent && suspicious:
		return EquivalentSuspicious
	case equivalent:
		return Equivalent
	case suspicious:
		return NotEquivalentSuspicious
	}
	return NotEquivalent
}

// Strings renders a batch as printable codes.
func Strings(cs []Classification) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
