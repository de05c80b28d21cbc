package directive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	errUnbalanced   = errors.New("unbalanced brackets")
	errUnterminated = errors.New("unterminated string")
	errNotArray     = errors.New("related value is not an array literal")
	errNoClose      = errors.New("expected closing brace after array")
	errBadEscape    = errors.New("invalid escape sequence")
)

// scanArray reads the array literal that starts at or after s[start] (after
// optional whitespace) and returns it, together with the offset of its
// opening bracket. The payload is rewritten into flow YAML for the literal
// parser: quoted strings become double-quoted scalars with their escapes
// decoded, a space follows every colon and comma, comments are dropped, tabs
// become spaces and trailing commas before a closing bracket are removed.
// Brackets inside strings do not count. The closing `}` of the JSX
// expression must follow the array.
func scanArray(s string, start int) (payload string, open int, err error) {
	i := skipSpace(s, start)
	if i >= len(s) || s[i] != '[' {
		return "", i, errNotArray
	}
	open = i

	var buf []byte
	var stack []byte
	for i < len(s) {
		c := s[i]
		switch c {
		case '"', '\'', '`':
			j, ok := skipString(s, i)
			if !ok {
				return "", open, errUnterminated
			}
			if c == '`' {
				// Template literals are left as is and rejected by the parser.
				buf = append(buf, s[i:j]...)
			} else {
				q, err := requote(s[i:j])
				if err != nil {
					return "", open, err
				}
				buf = append(buf, q...)
			}
			i = j
			continue
		case '/':
			if j, ok := skipComment(s, i); ok {
				buf = append(buf, blankLines(s[i:j])...)
				i = j
				continue
			}
		case ':', ',':
			buf = append(buf, c, ' ')
			i++
			continue
		case '[', '{':
			stack = append(stack, c)
		case ']', '}':
			if len(stack) == 0 {
				return "", open, errUnbalanced
			}
			top := stack[len(stack)-1]
			if (c == ']' && top != '[') || (c == '}' && top != '{') {
				return "", open, fmt.Errorf("%w: unexpected %q", errUnbalanced, c)
			}
			stack = stack[:len(stack)-1]
			dropTrailingComma(buf)
		case '\t':
			c = ' '
		}
		buf = append(buf, c)
		i++
		if len(stack) == 0 {
			break
		}
	}
	if len(stack) != 0 {
		return "", open, errUnbalanced
	}

	j := skipSpace(s, i)
	if j >= len(s) || s[j] != '}' {
		return "", open, errNoClose
	}
	return string(buf), open, nil
}

// dropTrailingComma blanks a comma that is followed only by whitespace at the
// end of buf.
func dropTrailingComma(buf []byte) {
	for k := len(buf) - 1; k >= 0; k-- {
		switch buf[k] {
		case ' ', '\n', '\r':
			continue
		case ',':
			buf[k] = ' '
		}
		return
	}
}

// skipString returns the offset just past the string literal opening at
// s[i], honoring backslash escapes.
func skipString(s string, i int) (int, bool) {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1, true
		case '\n':
			if quote != '`' {
				return j, false
			}
		}
	}
	return len(s), false
}

// skipComment returns the offset just past a // or /* */ comment opening at
// s[i].
func skipComment(s string, i int) (int, bool) {
	if i+1 >= len(s) {
		return i, false
	}
	switch s[i+1] {
	case '/':
		if k := strings.IndexByte(s[i:], '\n'); k >= 0 {
			return i + k, true
		}
		return len(s), true
	case '*':
		if k := strings.Index(s[i+2:], "*/"); k >= 0 {
			return i + 2 + k + 2, true
		}
	}
	return i, false
}

// blankLines keeps only the line breaks of s so entry line numbers survive.
func blankLines(s string) string {
	return strings.Repeat("\n", strings.Count(s, "\n")) + " "
}

// requote decodes a single or double quoted string literal, including its
// backslash escapes, and re-encodes it as a double-quoted scalar.
func requote(lit string) (string, error) {
	body := lit[1 : len(lit)-1]
	var b strings.Builder
	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(body) {
			return "", errBadEscape
		}
		esc := body[i+1]
		i += 2
		switch esc {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// Line continuation.
		case 'x':
			if i+2 > len(body) {
				return "", errBadEscape
			}
			n, err := strconv.ParseUint(body[i:i+2], 16, 8)
			if err != nil {
				return "", errBadEscape
			}
			b.WriteRune(rune(n))
			i += 2
		case 'u':
			r, n, err := unicodeEscape(body[i:])
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			i += n
		default:
			// \' \" \\ and any other character stand for themselves.
			r, size := utf8.DecodeRuneInString(body[i-1:])
			b.WriteRune(r)
			i += size - 1
		}
	}
	return strconv.Quote(b.String()), nil
}

// unicodeEscape reads the digits of a \uXXXX or \u{X...} escape and returns
// the rune and the number of bytes consumed.
func unicodeEscape(s string) (rune, int, error) {
	var digits string
	var n int
	switch {
	case strings.HasPrefix(s, "{"):
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return 0, 0, errBadEscape
		}
		digits, n = s[1:end], end+1
	case len(s) >= 4:
		digits, n = s[:4], 4
	default:
		return 0, 0, errBadEscape
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil || v > utf8.MaxRune {
		return 0, 0, errBadEscape
	}
	return rune(v), n, nil
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

// lineAt returns the 1-based line number of offset off in s.
func lineAt(s string, off int) int {
	if off > len(s) {
		off = len(s)
	}
	return strings.Count(s[:off], "\n") + 1
}
