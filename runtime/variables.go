package runtime

import (
	"strings"

	"github.com/deicod/sigma/lexer"
)

var scopeTags = []lexer.TagKind{
	lexer.TagIf, lexer.TagEndIf,
	lexer.TagFor, lexer.TagEndFor,
	lexer.TagBlock, lexer.TagEndBlock,
	lexer.TagDefine,
}

// parseVariables executes the define tags of src and removes them. A define
// inside an if, for or block is an error.
func (r *renderState) parseVariables(src string) (string, error) {
	if !strings.Contains(src, "{% define") {
		return src, nil
	}

	tracker := newNestingTracker()
	var out strings.Builder
	last := 0
	for _, tag := range lexer.ScanTags(src, scopeTags...) {
		if tag.Kind != lexer.TagDefine {
			tracker.track(tag)
			continue
		}
		if tracker.open() {
			return "", r.parsingError(src, tag.Start, "define is not allowed inside if/for/block")
		}

		line := tag.Line + 1
		if err := r.eval.At(r.name, line).Assign(tag.Variable, tag.Expr); err != nil {
			return "", withSnippet(WrapError(err, r.name, line, lineAt(src, tag.Start)), snippetAt(src, tag.Start))
		}
		out.WriteString(src[last:tag.Start])
		last = tag.End
	}
	out.WriteString(src[last:])
	return out.String(), nil
}

// checkDefines reports a define inside an if, for or block without
// executing any of them.
func (r *renderState) checkDefines(src string) error {
	tracker := newNestingTracker()
	for _, tag := range lexer.ScanTags(src, scopeTags...) {
		if tag.Kind != lexer.TagDefine {
			tracker.track(tag)
			continue
		}
		if tracker.open() {
			return r.parsingError(src, tag.Start, "define is not allowed inside if/for/block")
		}
	}
	return nil
}
