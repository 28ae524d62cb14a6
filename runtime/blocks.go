package runtime

import (
	"strings"

	"github.com/deicod/sigma/lexer"
)

// blockFrame is an open block collecting its body
type blockFrame struct {
	tag  lexer.Tag
	body strings.Builder
}

// parseBlocks registers every block of src and removes the definitions,
// keeping their line breaks. A block nested in another is registered on its
// own and cut out of the enclosing body. Later definitions of a name replace
// earlier ones.
func (r *renderState) parseBlocks(src string) (string, error) {
	tags := lexer.ScanTags(src, lexer.TagBlock, lexer.TagEndBlock)
	if len(tags) == 0 {
		return src, nil
	}

	var out strings.Builder
	var stack []*blockFrame
	write := func(s string) {
		if len(stack) > 0 {
			stack[len(stack)-1].body.WriteString(s)
			return
		}
		out.WriteString(s)
	}

	last := 0
	for _, tag := range tags {
		write(src[last:tag.Start])
		last = tag.End

		switch tag.Kind {
		case lexer.TagBlock:
			if _, numeric := parseNumericString(tag.Name); numeric {
				return "", r.parsingError(src, tag.Start, "invalid block name '%s'", tag.Name)
			}
			stack = append(stack, &blockFrame{tag: tag})

		case lexer.TagEndBlock:
			if len(stack) == 0 {
				return "", r.parsingError(src, tag.Start, "end_block used without block start")
			}
			top := stack[len(stack)-1]
			if tag.HasName() && tag.Name != top.tag.Name {
				return "", r.parsingError(src, tag.Start, "missing end_block for '%s'", top.tag.Name)
			}
			stack = stack[:len(stack)-1]

			body := top.body.String()
			if top.tag.Line == tag.Line {
				r.blocks[top.tag.Name] = []string{strings.TrimSpace(body)}
			} else {
				r.blocks[top.tag.Name] = trimBody(body)
			}
			write(lineBreaks(src[top.tag.Start:tag.End]))
		}
	}
	if len(stack) > 0 {
		open := stack[len(stack)-1].tag
		return "", r.parsingError(src, open.Start, "missing end_block for '%s'", open.Name)
	}

	write(src[last:])
	return out.String(), nil
}
