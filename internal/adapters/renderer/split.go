package renderer

import (
	"strings"

	"go.trai.ch/zerr"
)

// splitCommand splits a command template into argv, honoring single and
// double quotes and backslash escapes outside single quotes. No variable
// expansion or globbing happens; the template is not handed to a shell.
func splitCommand(command string) ([]string, error) {
	var (
		argv    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range command {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote == '\'' && r != '\'':
			current.WriteRune(r)
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case r == quote:
			quote = 0
		case (r == '\'' || r == '"') && quote == 0:
			quote = r
			inWord = true
		case quote == 0 && (r == ' ' || r == '\t'):
			if inWord {
				argv = append(argv, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if escaped {
		return nil, zerr.New("command template ends with a dangling escape")
	}
	if quote != 0 {
		return nil, zerr.With(zerr.New("command template has an unterminated quote"), "quote", string(quote))
	}
	if inWord {
		argv = append(argv, current.String())
	}
	return argv, nil
}
