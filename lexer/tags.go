package lexer

import (
	"fmt"
	"strings"
)

// TagKind identifies a directive grammar.
type TagKind int

const (
	TagUnknown TagKind = iota
	TagExtend
	TagInclude
	TagShowBlock
	TagBlock
	TagEndBlock
	TagDefine
	TagIf
	TagElseIf
	TagElse
	TagEndIf
	TagFor
	TagBreak
	TagContinue
	TagEndFor
	TagCustom
)

var tagKindNames = map[TagKind]string{
	TagUnknown:   "unknown",
	TagExtend:    "extend",
	TagInclude:   "include",
	TagShowBlock: "show_block",
	TagBlock:     "block",
	TagEndBlock:  "end_block",
	TagDefine:    "define",
	TagIf:        "if",
	TagElseIf:    "else_if",
	TagElse:      "else",
	TagEndIf:     "end_if",
	TagFor:       "for",
	TagBreak:     "break",
	TagContinue:  "continue",
	TagEndFor:    "end_for",
	TagCustom:    "custom",
}

func (k TagKind) String() string {
	if name, ok := tagKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TagKind(%d)", k)
}

// Tag is one recognized `{% ... %}` directive occurrence.
type Tag struct {
	Kind TagKind
	// Text is the full tag as it appears in the source.
	Text string
	// Start and End are byte offsets of the tag in the scanned source.
	Start int
	End   int
	// Line is the zero-based line index of the tag.
	Line int

	// Name holds the template or block name, or the custom directive name.
	Name string
	// Variable holds the bound variable of define and for tags.
	Variable string
	// Expr holds the expression of define/if/else_if/for/break/continue tags
	// and the raw argument list of custom directive calls.
	Expr string
	// Label holds the optional numeric label of else/end_if/for/break/
	// continue/end_for tags.
	Label string
}

// HasName reports whether the tag carries an explicit name label.
func (t Tag) HasName() bool {
	return t.Name != ""
}

// IsControl reports whether the tag belongs to an if or for construct.
func (t Tag) IsControl() bool {
	switch t.Kind {
	case TagIf, TagElseIf, TagElse, TagEndIf, TagFor, TagBreak, TagContinue, TagEndFor:
		return true
	}
	return false
}

// NormalizeTag rewrites the spacing of a single `{% ... %}` tag so that it can
// be matched by the directive grammars.
func NormalizeTag(tag string) string {
	tag = tagCloseSpaceRegex.ReplaceAllString(tag, " %}")
	tag = tagOpenSpaceRegex.ReplaceAllString(tag, "{% ")
	tag = keywordSpaceRegex.ReplaceAllString(tag, "{% ${1} ${2}")
	tag = keywordParenRegex.ReplaceAllString(tag, "{% ${1} (")
	tag = defineAssignRegex.ReplaceAllString(tag, "${1} = ")
	return tag
}

// NormalizeLine normalizes every tag of a line, leaving the literal text
// around them untouched.
func NormalizeLine(line string) string {
	if !strings.Contains(line, "{%") {
		return line
	}
	var out strings.Builder
	for _, seg := range segments(line, 0) {
		if seg.tagEnd < 0 {
			out.WriteString(line[seg.start:seg.end])
			continue
		}
		out.WriteString(NormalizeTag(line[seg.start:seg.tagEnd]))
		out.WriteString(line[seg.tagEnd:seg.end])
	}
	return out.String()
}

// ClassifyTag matches a normalized tag against the directive grammars.
func ClassifyTag(text string) Tag {
	tag := Tag{Kind: TagUnknown, Text: text}
	if m := IfTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Expr = TagIf, m[1]
	} else if m := ElseIfTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Expr = TagElseIf, m[1]
	} else if m := ElseTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Label = TagElse, m[1]
	} else if m := EndIfTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Label = TagEndIf, m[1]
	} else if m := ForTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Variable, tag.Expr, tag.Label = TagFor, m[1], m[2], m[3]
	} else if m := BreakTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Expr, tag.Label = TagBreak, m[1], m[2]
	} else if m := ContinueTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Expr, tag.Label = TagContinue, m[1], m[2]
	} else if m := EndForTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Label = TagEndFor, m[1]
	} else if m := BlockTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Name = TagBlock, quotedValue(m[1:])
	} else if m := EndBlockTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Name = TagEndBlock, quotedValue(m[1:])
	} else if m := ShowBlockTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Name = TagShowBlock, quotedValue(m[1:])
	} else if m := ExtendTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Name = TagExtend, quotedValue(m[1:])
	} else if m := IncludeTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Name = TagInclude, quotedValue(m[1:])
	} else if m := DefineTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Variable, tag.Expr = TagDefine, m[1], m[2]
	} else if m := CustomTagRegex.FindStringSubmatch(text); m != nil {
		tag.Kind, tag.Name, tag.Expr = TagCustom, m[1], m[2]
	}
	return tag
}

func quotedValue(groups []string) string {
	for _, g := range groups {
		if g != "" {
			return g
		}
	}
	return ""
}

// ScanTags returns the recognized tags of src in order of appearance. src may
// hold several lines joined with "\n"; a tag never spans a line break. When
// kinds is non-empty only tags of those kinds are returned.
func ScanTags(src string, kinds ...TagKind) []Tag {
	var tags []Tag
	offset := 0
	for lineIndex, line := range strings.Split(src, "\n") {
		if strings.Contains(line, "{%") {
			for _, seg := range segments(line, offset) {
				if seg.tagEnd < 0 {
					continue
				}
				tag := ClassifyTag(src[seg.start:seg.tagEnd])
				if tag.Kind == TagUnknown || !wanted(tag.Kind, kinds) {
					continue
				}
				tag.Start, tag.End, tag.Line = seg.start, seg.tagEnd, lineIndex
				tags = append(tags, tag)
			}
		}
		offset += len(line) + 1
	}
	return tags
}

func wanted(kind TagKind, kinds []TagKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ValidateLine checks that every opening delimiter on the line starts a
// recognized directive. It returns the number of opening delimiters and the
// number of recognized directives when they differ.
func ValidateLine(line string) (opened, matched int, ok bool) {
	opened = strings.Count(line, "{%")
	if opened == 0 {
		return 0, 0, true
	}
	for _, seg := range segments(line, 0) {
		if seg.tagEnd < 0 {
			continue
		}
		if ClassifyTag(line[seg.start:seg.tagEnd]).Kind != TagUnknown {
			matched++
		}
	}
	return opened, matched, opened == matched
}

// segment is one `{%`-delimited piece of a line. start..end covers the
// piece; tagEnd is the end of the tag inside it or -1 when the piece does not
// start a closed tag (the leading text before the first `{%`, or an
// unterminated tag).
type segment struct {
	start, end, tagEnd int
}

func segments(line string, offset int) []segment {
	var segs []segment
	pos := 0
	first := strings.Index(line, "{%")
	if first != 0 {
		if first < 0 {
			return []segment{{start: offset, end: offset + len(line), tagEnd: -1}}
		}
		segs = append(segs, segment{start: offset, end: offset + first, tagEnd: -1})
		pos = first
	}
	for pos < len(line) {
		next := strings.Index(line[pos+2:], "{%")
		end := len(line)
		if next >= 0 {
			end = pos + 2 + next
		}
		seg := segment{start: offset + pos, end: offset + end, tagEnd: -1}
		if close := strings.Index(line[pos:end], "%}"); close >= 0 {
			seg.tagEnd = offset + pos + close + 2
		}
		segs = append(segs, seg)
		pos = end
	}
	return segs
}

// Expression is one `{{ ... }}` occurrence inside a line.
type Expression struct {
	Start, End int
	Source     string
}

// ScanExpressions finds the expression tags of a single line. An opening
// delimiter without a closing one on the same line is not an expression.
func ScanExpressions(line string) []Expression {
	var exprs []Expression
	pos := 0
	for {
		open := strings.Index(line[pos:], "{{")
		if open < 0 {
			return exprs
		}
		open += pos
		close := strings.Index(line[open+2:], "}}")
		if close < 0 {
			return exprs
		}
		close += open + 2
		if nested := strings.Index(line[open+2:close], "{{"); nested >= 0 {
			pos = open + 2 + nested
			continue
		}
		exprs = append(exprs, Expression{
			Start:  open,
			End:    close + 2,
			Source: strings.TrimSpace(line[open+2 : close]),
		})
		pos = close + 2
	}
}

// HasExpression reports whether the line holds at least one complete
// expression tag.
func HasExpression(line string) bool {
	return len(ScanExpressions(line)) > 0
}
