package cli

import (
	"strings"
)

// indentation of example lines in help text.
const indentation = `  `

// longDesc normalizes a command's long description.
func longDesc(s string) string {
	return strings.TrimSpace(s)
}

// examples trims every example line and indents it.
func examples(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	lines := make([]string, 0, strings.Count(s, "\n")+1)
	for line := range strings.SplitSeq(s, "\n") {
		lines = append(lines, indentation+strings.TrimSpace(line))
	}

	return strings.Join(lines, "\n")
}
