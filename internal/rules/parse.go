package rules

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKeyword is returned for rule lines whose keyword has no container.
var ErrUnknownKeyword = errors.New("unknown rule keyword")

// ParseError reports a rule line that could not be parsed. The line is
// skipped; rules already loaded are unaffected.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid rule %q: %s", e.Line, e.Reason)
}

// Line is one tokenized rule.
type Line struct {
	Raw     string
	Keyword string
	Args    []string
	// Options maps an option name without leading dashes to its values in
	// declaration order. Bare flags map to an empty slice.
	Options map[string][]string
}

// HasOption returns true if the option was given at least once.
func (l Line) HasOption(name string) bool {
	_, ok := l.Options[name]
	return ok
}

// OptionValue returns the last value given for name.
func (l Line) OptionValue(name string) (string, bool) {
	values, ok := l.Options[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

// listOptions take comma separated values which accumulate.
var listOptions = map[string]bool{
	"mountoptions": true,
	"add":          true,
	"remove":       true,
}

// valueOptions require a value; everything else is a flag.
var valueOptions = map[string]bool{
	"mountoptions": true,
	"add":          true,
	"remove":       true,
	"minlen":       true,
}

// ParseLine tokenizes a rule line. ok is false for blank lines.
func ParseLine(raw string) (line Line, ok bool, err error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Line{}, false, nil
	}

	tokens, err := tokenize(text)
	if err != nil {
		return Line{}, false, &ParseError{Line: text, Reason: err.Error()}
	}
	if len(tokens) == 0 {
		return Line{}, false, nil
	}

	line = Line{
		Raw:     text,
		Keyword: tokens[0],
		Options: make(map[string][]string),
	}

	for idx := 1; idx < len(tokens); idx++ {
		token := tokens[idx]
		if !strings.HasPrefix(token, "--") || token == "--" {
			line.Args = append(line.Args, token)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimPrefix(token, "--"), "=")
		if name == "" {
			return Line{}, false, &ParseError{Line: text, Reason: fmt.Sprintf("malformed option %q", token)}
		}

		if !valueOptions[name] {
			if hasValue {
				line.Options[name] = append(line.Options[name], value)
			} else if _, seen := line.Options[name]; !seen {
				line.Options[name] = []string{}
			}
			continue
		}

		// optparse style "--opt value"
		if !hasValue && idx+1 < len(tokens) && !strings.HasPrefix(tokens[idx+1], "--") {
			value = tokens[idx+1]
			hasValue = true
			idx++
		}
		if !hasValue {
			return Line{}, false, &ParseError{Line: text, Reason: fmt.Sprintf("option --%s requires a value", name)}
		}

		if listOptions[name] {
			line.Options[name] = append(line.Options[name], splitList(value)...)
		} else {
			line.Options[name] = append(line.Options[name], value)
		}
	}

	return line, true, nil
}

// splitList splits a comma separated value, dropping empty items.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// quoteArg returns s in a form tokenize reads back as a single token.
func quoteArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// tokenize splits a rule into tokens, respecting quotes.
func tokenize(text string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false
	escaped := false
	// a quoted empty string is still a token
	pending := false

	for _, r := range text {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch r {
		case '\\':
			if inSingleQuote {
				current.WriteRune(r)
			} else {
				escaped = true
			}
		case '\'':
			if !inDoubleQuote {
				inSingleQuote = !inSingleQuote
				pending = true
			} else {
				current.WriteRune(r)
			}
		case '"':
			if !inSingleQuote {
				inDoubleQuote = !inDoubleQuote
				pending = true
			} else {
				current.WriteRune(r)
			}
		case ' ', '\t':
			if inSingleQuote || inDoubleQuote {
				current.WriteRune(r)
			} else if current.Len() > 0 || pending {
				tokens = append(tokens, current.String())
				current.Reset()
				pending = false
			}
		default:
			current.WriteRune(r)
		}
	}

	if inSingleQuote || inDoubleQuote {
		return nil, errors.New("unterminated quote")
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if current.Len() > 0 || pending {
		tokens = append(tokens, current.String())
	}

	return tokens, nil
}
