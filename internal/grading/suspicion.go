package grading

import "github.com/mind-engage/mindengage-grader/internal/expr"

// IsSuspicious flags numeric values whose digit rendering contains a run of
// at least runLength digits under rule. Symbolic values are never suspicious.
// Only the evaluated candidate is inspected, so an answer floored or truncated
// before submission is not flagged.
func IsSuspicious(v expr.Value, runLength int, rule SuspicionRule) bool {
	if v.Kind() != expr.KindNumeric {
		return false
	}
	return HasDigitRun(v.Digits(), runLength, rule)
}

// HasDigitRun scans digits once. Non-digit characters break a run.
func HasDigitRun(digits string, runLength int, rule SuspicionRule) bool {
	if runLength < 1 || len(digits) < runLength {
		return false
	}
	run := 0
	var prev byte
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			run = 0
			continue
		}
		if rule == DigitRun || (run > 0 && c == prev) {
			run++
		} else {
			run = 1
		}
		prev = c
		if run >= runLength {
			return true
		}
	}
	return false
}
