package runtime

import "strings"

func splitLines(src string) []string {
	return strings.Split(src, "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// lineBreaks returns only the line breaks of s, so that dropping a region
// keeps the line numbers of the text around it.
func lineBreaks(s string) string {
	return strings.Repeat("\n", strings.Count(s, "\n"))
}

// compactBlankLines collapses runs of blank lines into one.
func compactBlankLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	previousBlank := false
	for _, line := range lines {
		blank := isBlank(line)
		if blank && previousBlank {
			continue
		}
		previousBlank = blank
		out = append(out, line)
	}
	return out
}

// trimBody trims every line of a body and drops its leading and trailing
// empty lines.
func trimBody(body string) []string {
	lines := splitLines(body)
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lineNumber returns the one-based line of offset in src.
func lineNumber(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return strings.Count(src[:offset], "\n") + 1
}

// lineAt returns the full line of src containing offset.
func lineAt(src string, offset int) string {
	if offset > len(src) {
		offset = len(src)
	}
	start := strings.LastIndex(src[:offset], "\n") + 1
	end := strings.Index(src[offset:], "\n")
	if end < 0 {
		return src[start:]
	}
	return src[start : offset+end]
}
