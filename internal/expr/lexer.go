package expr

import (
	"context"
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokLetter
	tokCommand
	tokSymbol
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokCommand:
		return `\` + t.text
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// spacing and presentation commands carry no value.
var ignoredCommands = map[string]bool{
	"quad": true, "qquad": true, "displaystyle": true, "textstyle": true,
	"limits": true, "nolimits": true,
}

// operator commands are folded into plain symbols.
var operatorCommands = map[string]string{
	"cdot": "*", "times": "*", "ast": "*", "div": "/",
}

var unicodeSymbols = map[rune]string{
	'×': "*", '·': "*", '⋅': "*", '÷': "/", '−': "-", 'π': `\pi`,
}

func lex(ctx context.Context, src string) ([]token, error) {
	var out []token
	rs := []rune(src)
	for i, n := 0, 0; i < len(rs); n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		r := rs[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '~':
			i++

		case isDigit(r) || (r == '.' && i+1 < len(rs) && isDigit(rs[i+1])):
			start := i
			for i < len(rs) && isDigit(rs[i]) {
				i++
			}
			if i < len(rs) && rs[i] == '.' {
				i++
				for i < len(rs) && isDigit(rs[i]) {
					i++
				}
			}
			text := strings.TrimSuffix(string(rs[start:i]), ".")
			if strings.HasPrefix(text, ".") {
				text = "0" + text
			}
			out = append(out, token{kind: tokNumber, text: text, pos: start})

		case isLetter(r):
			out = append(out, token{kind: tokLetter, text: string(r), pos: i})
			i++

		case r == '\\':
			start := i
			i++
			if i >= len(rs) {
				return nil, fmt.Errorf("%w: dangling backslash at %d", ErrSyntax, start)
			}
			if !isLetter(rs[i]) {
				switch rs[i] {
				case ',', ';', ':', '!', ' ':
				case '{':
					out = append(out, token{kind: tokSymbol, text: "(", pos: start})
				case '}':
					out = append(out, token{kind: tokSymbol, text: ")", pos: start})
				default:
					return nil, fmt.Errorf("%w: \\%c", ErrUnsupported, rs[i])
				}
				i++
				continue
			}
			for i < len(rs) && isLetter(rs[i]) {
				i++
			}
			name := string(rs[start+1 : i])
			if ignoredCommands[name] {
				continue
			}
			if sym, ok := operatorCommands[name]; ok {
				out = append(out, token{kind: tokSymbol, text: sym, pos: start})
				continue
			}
			out = append(out, token{kind: tokCommand, text: name, pos: start})

		case strings.ContainsRune("+-*/^_!()[]{}.|", r):
			out = append(out, token{kind: tokSymbol, text: string(r), pos: i})
			i++

		default:
			sym, ok := unicodeSymbols[r]
			if !ok {
				return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrSyntax, r, i)
			}
			if sym == `\pi` {
				out = append(out, token{kind: tokCommand, text: "pi", pos: i})
			} else {
				out = append(out, token{kind: tokSymbol, text: sym, pos: i})
			}
			i++
		}
	}
	return append(out, token{kind: tokEOF, pos: len(rs)}), nil
}

func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
