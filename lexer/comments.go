package lexer

import "strings"

// StripComments removes `{-- ... --}` comments from the lines. Comments may
// span lines: interior lines become empty, the text before the opener and
// after the closer is kept. The input slice is not modified.
func StripComments(lines []string, delims Delimiters) []string {
	out := make([]string, len(lines))
	inComment := false
	for i, line := range lines {
		if !inComment && !strings.Contains(line, delims.CommentStart) {
			out[i] = line
			continue
		}
		var kept strings.Builder
		pos := 0
		for pos <= len(line) {
			if inComment {
				end := strings.Index(line[pos:], delims.CommentEnd)
				if end < 0 {
					break
				}
				pos += end + len(delims.CommentEnd)
				inComment = false
				continue
			}
			start := strings.Index(line[pos:], delims.CommentStart)
			if start < 0 {
				kept.WriteString(line[pos:])
				break
			}
			kept.WriteString(line[pos : pos+start])
			pos += start + len(delims.CommentStart)
			inComment = true
		}
		out[i] = kept.String()
	}
	return out
}
