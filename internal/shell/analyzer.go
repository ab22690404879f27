// Package shell inspects shell command strings without executing them. It
// splits compound commands into independently evaluable parts and detects
// output redirection, both quote-aware so that string literals containing
// shell metacharacters do not count.
package shell

import "strings"

// Split breaks a compound command into its top-level sub-commands,
// splitting on &&, ||, ;, | and newlines outside of quotes. It returns nil
// when the command cannot be decomposed (unbalanced quoting), which callers
// treat as a parser failure.
func Split(command string) []string {
	var parts []string
	var current strings.Builder

	flush := func() {
		if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
			parts = append(parts, trimmed)
		}
		current.Reset()
	}

	var inSingle, inDouble bool
	escaped := false

	for i := 0; i < len(command); i++ {
		c := command[i]

		if escaped {
			current.WriteByte(c)
			escaped = false
			continue
		}

		switch {
		case c == '\\' && !inSingle:
			current.WriteByte(c)
			escaped = true
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			current.WriteByte(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			current.WriteByte(c)
		case inSingle || inDouble:
			current.WriteByte(c)
		case c == ';' || c == '\n':
			flush()
		case c == '&':
			if i+1 < len(command) && command[i+1] == '&' {
				flush()
				i++
			} else {
				// background job marker stays part of the command
				current.WriteByte(c)
			}
		case c == '|':
			flush()
			if i+1 < len(command) && command[i+1] == '|' {
				i++
			}
		default:
			current.WriteByte(c)
		}
	}

	if inSingle || inDouble {
		return nil
	}
	flush()
	return parts
}

// HasRedirection reports whether the command performs output or input
// redirection (>, >>, <, 2>, &>) outside of quoted strings.
func HasRedirection(command string) bool {
	var inSingle, inDouble bool
	escaped := false

	for i := 0; i < len(command); i++ {
		c := command[i]

		if escaped {
			escaped = false
			continue
		}

		switch {
		case c == '\\' && !inSingle:
			escaped = true
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case inSingle || inDouble:
		case c == '>' || c == '<':
			return true
		}
	}
	return false
}
