package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"symbolicd/internal/model"
)

// parseArgsText implements the purpose-built recursive descent from
// spec.md §4.5.8: split an engine message's bespoke args text at
// top-level commas (tracking paren/bracket/brace depth and quoted
// strings so a comma inside a nested literal never splits the top
// level), then parse each segment either as a bare positional literal
// or a "name=literal" pair. Positional segments are paired with
// paramNames by index; named segments use their own name directly.
func parseArgsText(text string, paramNames []string) (map[string]model.Scalar, error) {
	segments, err := splitTopLevel(text)
	if err != nil {
		return nil, err
	}

	args := make(map[string]model.Scalar, len(segments))
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		name, literal, named := splitNamedSegment(seg)
		if !named {
			if i < len(paramNames) {
				name = paramNames[i]
			} else {
				name = fmt.Sprintf("arg%d", i)
			}
			literal = seg
		}
		scalar, err := parseScalar(literal)
		if err != nil {
			return nil, fmt.Errorf("parse argument %d (%q): %w", i, literal, err)
		}
		args[name] = scalar
	}
	return args, nil
}

// splitTopLevel splits text at commas outside of any nested
// parenthesis/bracket/brace and outside of single- or double-quoted
// string literals, honoring backslash escapes inside strings. text may
// optionally be wrapped in a single outer "(" ... ")" pair, which is
// stripped first.
func splitTopLevel(text string) ([]string, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")

	var segments []string
	var current strings.Builder
	depth := 0
	var quote byte
	escaped := false

	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]

		if quote != 0 {
			current.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"':
			quote = c
			current.WriteByte(c)
		case '(', '[', '{':
			depth++
			current.WriteByte(c)
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced closing bracket at offset %d", i)
			}
			current.WriteByte(c)
		case ',':
			if depth == 0 {
				segments = append(segments, current.String())
				current.Reset()
				continue
			}
			current.WriteByte(c)
		default:
			current.WriteByte(c)
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated string literal")
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets")
	}

	if trailing := strings.TrimSpace(current.String()); trailing != "" || len(segments) > 0 {
		segments = append(segments, current.String())
	}
	return segments, nil
}

// splitNamedSegment splits "name=literal" at the first top-level "="
// (one not immediately followed by another "=", so "==" inside a
// literal never matches). Returns named=false when no such split is
// found.
func splitNamedSegment(seg string) (name, literal string, named bool) {
	for i := 0; i < len(seg); i++ {
		if seg[i] != '=' {
			continue
		}
		if i+1 < len(seg) && seg[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && seg[i-1] == '=' {
			continue
		}
		candidateName := strings.TrimSpace(seg[:i])
		if !isIdentifierLike(candidateName) {
			return "", "", false
		}
		return candidateName, strings.TrimSpace(seg[i+1:]), true
	}
	return "", "", false
}

func isIdentifierLike(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			continue
		}
		if i > 0 && c >= '0' && c <= '9' {
			continue
		}
		return false
	}
	return true
}

// parseScalar parses one literal into the int/bool/string/null union.
// Numbers retain their native type where it fits: a literal that parses
// as an int64 becomes ScalarInt; any other numeric literal (a decimal
// point or exponent, or an integer outside the int64 range) goes through
// float64 and is rendered back as its string form, since Scalar has no
// float member distinct from string (fractional precision is out of
// scope for the Scalar union per spec.md §3).
func parseScalar(literal string) (model.Scalar, error) {
	literal = strings.TrimSpace(literal)
	switch literal {
	case "None":
		return model.NullScalar(), nil
	case "True":
		return model.NewBoolScalar(true), nil
	case "False":
		return model.NewBoolScalar(false), nil
	}

	if len(literal) >= 2 && (literal[0] == '\'' || literal[0] == '"') && literal[len(literal)-1] == literal[0] {
		unescaped := unescapeString(literal[1 : len(literal)-1])
		return model.NewStringScalar(unescaped), nil
	}

	if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return model.NewIntScalar(i), nil
	}
	if f, err := strconv.ParseFloat(literal, 64); err == nil {
		return model.NewStringScalar(strconv.FormatFloat(f, 'g', -1, 64)), nil
	}

	return model.Scalar{}, fmt.Errorf("unrecognized literal shape")
}

func unescapeString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
