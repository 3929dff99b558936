package nml

import (
	"fmt"
	"strconv"
	"strings"
)

// Decode parses namelist text. Text outside groups is ignored.
// Quoted strings, logicals and integers are decoded into string,
// bool and int values; anything else is kept as Raw.
func Decode(text string) (*File, error) {
	f := &File{}
	lines := strings.Split(text, "\n")

	var current *Group
	var body strings.Builder
	for n, line := range lines {
		line = stripComment(line)
		trimmed := strings.TrimSpace(line)

		if current == nil {
			if !strings.HasPrefix(trimmed, "&") && !strings.HasPrefix(trimmed, "$") {
				continue
			}
			fields := strings.Fields(trimmed[1:])
			if len(fields) == 0 {
				return nil, fmt.Errorf("line %d: group without a name", n+1)
			}
			current = NewGroup(fields[0])
			body.Reset()
			line = strings.TrimSpace(trimmed[1+len(fields[0]):])
		}

		rest, closed := cutTerminator(line)
		body.WriteString(rest)
		body.WriteString("\n")
		if closed {
			if err := parseAssignments(current, body.String()); err != nil {
				return nil, fmt.Errorf("group `%s`: %w", current.Name, err)
			}
			f.Groups = append(f.Groups, current)
			current = nil
		}
	}

	if current != nil {
		return nil, fmt.Errorf("group `%s` is not terminated", current.Name)
	}
	return f, nil
}

// stripComment removes a `!` comment outside quotes.
func stripComment(line string) string {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '!':
			return line[:i]
		}
	}
	return line
}

// cutTerminator returns line up to the group terminator (`/`, `&end`
// or `$end` outside quotes), and whether a terminator was found.
func cutTerminator(line string) (string, bool) {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '/':
			return line[:i], true
		case r == '&' || r == '$':
			if strings.HasPrefix(strings.ToLower(line[i+1:]), "end") {
				return line[:i], true
			}
		}
	}
	return line, false
}

func isKeyChar(b byte) bool {
	return b == '_' || b == '%' || b == '(' || b == ')' ||
		b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// parseAssignments splits a group body in `key = value` pairs.
func parseAssignments(g *Group, body string) error {
	var quote byte
	key := ""
	valueStart := 0
	for i := 0; i < len(body); i++ {
		c := body[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		if c != '=' {
			continue
		}

		end := i
		for end > 0 && (body[end-1] == ' ' || body[end-1] == '\t') {
			end--
		}
		start := end
		for start > 0 && isKeyChar(body[start-1]) {
			start--
		}
		if start == end {
			return fmt.Errorf("assignment without a key near `%s`", strings.TrimSpace(body[:i]))
		}
		if key != "" {
			g.Set(key, parseValue(body[valueStart:start]))
		} else if strings.TrimSpace(strings.Trim(body[:start], ", \t\n")) != "" {
			return fmt.Errorf("unexpected text `%s`", strings.TrimSpace(body[:start]))
		}
		key = body[start:end]
		valueStart = i + 1
	}
	if quote != 0 {
		return fmt.Errorf("unterminated string for key `%s`", key)
	}
	if key != "" {
		g.Set(key, parseValue(body[valueStart:]))
	}
	return nil
}

func parseValue(s string) interface{} {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ", \t\n")
	s = strings.TrimSpace(s)

	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		q := string(s[0])
		inner := s[1 : len(s)-1]
		if !strings.Contains(strings.ReplaceAll(inner, q+q, ""), q) {
			return strings.ReplaceAll(inner, q+q, q)
		}
	}

	switch strings.ToLower(s) {
	case ".true.", ".t.", "t", ".true":
		return true
	case ".false.", ".f.", "f", ".false":
		return false
	}

	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return Raw(s)
}
