package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/deicod/sigma/lexer"
	"github.com/deicod/sigma/parser"
)

// stringTemplateName names templates rendered from a string
const stringTemplateName = "<string>"

// escapedBrace stands in for `{` in text produced by expressions and
// directives until the render is done, so that output is never read as
// template syntax by a later pass. Literal occurrences of either private-use
// character are carried as escapedMarker plus a digit.
const (
	escapedBrace  = "\uE000"
	escapedMarker = "\uE001"
)

var (
	sourceEscaper  = strings.NewReplacer(escapedBrace, escapedMarker+"0", escapedMarker, escapedMarker+"1")
	outputEscaper  = strings.NewReplacer(escapedBrace, escapedMarker+"0", escapedMarker, escapedMarker+"1", "{", escapedBrace)
	outputRestorer = strings.NewReplacer(escapedBrace, "{", escapedMarker+"0", escapedBrace, escapedMarker+"1", escapedMarker)
	sourceRestorer = strings.NewReplacer(escapedMarker+"0", escapedBrace, escapedMarker+"1", escapedMarker)
)

var errNoLoader = errors.New("no loader configured")

// loopMarkerRegex matches the preserved-value marker placed after the start
// tag of a nested loop. The number indexes renderState.bindings.
var loopMarkerRegex = regexp.MustCompile("\x00loop:(\\d+)\x00")

// renderState is the state of one render: the variables, the block
// registry and the loop bindings carried across passes.
type renderState struct {
	ctx        context.Context
	name       string
	data       map[string]interface{}
	vars       *Context
	eval       *Evaluator
	loader     Loader
	directives map[string]DirectiveFunc
	cache      Cache
	limits     Limits
	logger     *slog.Logger
	delims     lexer.Delimiters

	blocks     map[string][]string
	bindings   []map[string]Value
	iterations int
	passes     int

	sources  map[string][]string
	verified map[string]bool
}

// run drives the passes until nothing is left to expand
func (r *renderState) run(lines []string) (string, error) {
	for {
		if err := r.ctx.Err(); err != nil {
			return "", err
		}
		if r.passes >= r.limits.MaxPasses {
			return "", passLimitError(r.name, r.passes)
		}
		r.passes++

		var recheck bool
		var err error
		lines, recheck, err = r.pass(lines)
		if err != nil {
			return "", r.locate(err)
		}
		if !recheck {
			break
		}
	}

	output := loopMarkerRegex.ReplaceAllString(joinLines(lines), "")
	output = outputRestorer.Replace(output)
	if r.limits.MaxOutputSize > 0 && len(output) > r.limits.MaxOutputSize {
		return "", outputLimitError(r.name, r.limits.MaxOutputSize)
	}
	return output, nil
}

// pass runs the construct parsers once over the lines and expands what
// they leave behind. It reports whether another pass is needed.
func (r *renderState) pass(lines []string) ([]string, bool, error) {
	lines, err := r.prepare(lines)
	if err != nil {
		return nil, false, err
	}

	for extended := 0; len(lines) > 0; extended++ {
		tags := lexer.ScanTags(lines[0], lexer.TagExtend)
		if len(tags) == 0 {
			break
		}
		if extended >= r.limits.MaxPasses {
			return nil, false, passLimitError(r.name, extended)
		}
		parent, err := r.template(tags[0].Name)
		if err != nil {
			return nil, false, WrapError(err, r.name, 1, lines[0])
		}
		parent, err = r.prepare(parent)
		if err != nil {
			return nil, false, err
		}
		lines[0] = lines[0][:tags[0].Start] + lines[0][tags[0].End:]
		r.logger.Debug("extending template", "template", r.name, "parent", tags[0].Name)
		lines = append(parent, lines...)
	}

	src := joinLines(lines)
	if src, err = r.parseVariables(src); err != nil {
		return nil, false, err
	}
	if src, err = r.parseBlocks(src); err != nil {
		return nil, false, err
	}
	if src, err = r.parseLoops(src); err != nil {
		return nil, false, err
	}
	if src, err = r.parseConditions(src); err != nil {
		return nil, false, err
	}

	return r.expand(splitLines(src))
}

// prepare strips comments, normalizes the tags and rejects lines with
// malformed tags.
func (r *renderState) prepare(lines []string) ([]string, error) {
	lines = lexer.StripComments(lines, r.delims)
	for i := range lines {
		lines[i] = lexer.NormalizeLine(lines[i])
		if opened, matched, ok := lexer.ValidateLine(lines[i]); !ok {
			err := NewErrorf(ErrorTypeInvalidStatement, "line opens %d directive tags but only %d are valid", opened, matched)
			err.Template, err.Line, err.LineText = r.name, i+1, lines[i]
			return nil, err
		}
	}
	return lines, nil
}

// expand compacts blank lines, splices extend/include/show_block tags and
// resolves expressions and custom directives on lines no construct is
// pending on.
func (r *renderState) expand(lines []string) ([]string, bool, error) {
	lines = compactBlankLines(lines)
	out := make([]string, 0, len(lines))
	recheck := false
	loopDepth := 0

	for i, line := range lines {
		if isBlank(line) {
			out = append(out, line)
			continue
		}

		hasTag := strings.Contains(line, "{%")
		if !hasTag && !lexer.HasExpression(line) {
			out = append(out, line)
			continue
		}

		tags := lexer.ScanTags(line)
		pending := loopDepth > 0
		for _, tag := range tags {
			switch tag.Kind {
			case lexer.TagFor:
				loopDepth++
			case lexer.TagEndFor:
				if loopDepth > 0 {
					loopDepth--
				}
			}
			switch {
			case tag.IsControl(), tag.Kind == lexer.TagDefine, tag.Kind == lexer.TagBlock, tag.Kind == lexer.TagEndBlock:
				pending = true
			}
		}
		if pending {
			out = append(out, line)
			recheck = true
			continue
		}

		if tag, ok := firstSplice(tags); ok {
			body, err := r.spliceBody(tag)
			if err != nil {
				return nil, false, withSnippet(WrapError(err, r.name, i+1, line), line[tag.Start:tag.End])
			}
			out = append(out, spliceLines(line, tag, body)...)
			recheck = true
			continue
		}

		resolved, err := r.resolveLine(line, i+1)
		if err != nil {
			return nil, false, err
		}
		out = append(out, resolved)
	}
	return out, recheck, nil
}

func firstSplice(tags []lexer.Tag) (lexer.Tag, bool) {
	for _, tag := range tags {
		switch tag.Kind {
		case lexer.TagExtend, lexer.TagInclude, lexer.TagShowBlock:
			return tag, true
		}
	}
	return lexer.Tag{}, false
}

// spliceBody returns the lines an extend, include or show_block tag stands
// for.
func (r *renderState) spliceBody(tag lexer.Tag) ([]string, error) {
	if tag.Kind == lexer.TagShowBlock {
		body, ok := r.blocks[tag.Name]
		if !ok {
			return nil, NewErrorf(ErrorTypeTemplateParsing, "undefined block '%s'", tag.Name)
		}
		return append([]string(nil), body...), nil
	}
	r.logger.Debug("including template", "template", r.name, "include", tag.Name)
	return r.template(tag.Name)
}

// spliceLines replaces tag on line with body. The text before the tag joins
// the first body line and the text after it joins the last one.
func spliceLines(line string, tag lexer.Tag, body []string) []string {
	before, after := line[:tag.Start], line[tag.End:]
	switch len(body) {
	case 0:
		return []string{before + after}
	case 1:
		return []string{before + body[0] + after}
	}
	body[0] = before + body[0]
	body[len(body)-1] += after
	return body
}

// expandComposites splices every include and show_block of src in place.
// Loop bodies are expanded before they are executed so that included
// content sees the iteration's bindings.
func (r *renderState) expandComposites(src string) (string, error) {
	for depth := 0; ; depth++ {
		tags := lexer.ScanTags(src, lexer.TagExtend, lexer.TagInclude, lexer.TagShowBlock)
		if len(tags) == 0 {
			return src, nil
		}
		if depth >= r.limits.MaxPasses {
			return "", passLimitError(r.name, depth)
		}

		tag := tags[0]
		body, err := r.spliceBody(tag)
		if err != nil {
			return "", withSnippet(WrapError(err, r.name, 0, lineAt(src, tag.Start)), src[tag.Start:tag.End])
		}
		if tag.Kind != lexer.TagShowBlock {
			if body, err = r.prepare(body); err != nil {
				return "", err
			}
		}
		src = src[:tag.Start] + joinLines(body) + src[tag.End:]
	}
}

// resolveLine replaces the expressions and custom directive calls of a line
// with their results, left to right. Results are not scanned again.
func (r *renderState) resolveLine(line string, number int) (string, error) {
	exprs := lexer.ScanExpressions(line)
	var calls []lexer.Tag
	if strings.Contains(line, "{%") {
		calls = lexer.ScanTags(line, lexer.TagCustom)
	}
	if len(exprs) == 0 && len(calls) == 0 {
		return line, nil
	}

	eval := r.eval.At(r.name, number)
	var out strings.Builder
	last := 0
	i, j := 0, 0
	for i < len(exprs) || j < len(calls) {
		if j >= len(calls) || (i < len(exprs) && exprs[i].Start < calls[j].Start) {
			expr := exprs[i]
			i++
			if expr.Start < last {
				continue
			}
			out.WriteString(line[last:expr.Start])
			if expr.Source != "" {
				value, err := eval.EvaluateString(expr.Source)
				if err != nil {
					return "", withSnippet(WrapError(err, r.name, number, line), line[expr.Start:expr.End])
				}
				out.WriteString(escapeOutput(value.String()))
			}
			last = expr.End
			continue
		}

		call := calls[j]
		j++
		if call.Start < last {
			continue
		}
		out.WriteString(line[last:call.Start])
		result, err := r.callDirective(eval, call, number)
		if err != nil {
			return "", withSnippet(WrapError(err, r.name, number, line), line[call.Start:call.End])
		}
		out.WriteString(escapeOutput(result))
		last = call.End
	}
	out.WriteString(line[last:])
	return out.String(), nil
}

// resolveText resolves every line of a multi-line text
func (r *renderState) resolveText(text string, firstLine int) (string, error) {
	lines := splitLines(text)
	for i, line := range lines {
		resolved, err := r.resolveLine(line, firstLine+i)
		if err != nil {
			return "", err
		}
		lines[i] = resolved
	}
	return joinLines(lines), nil
}

func (r *renderState) callDirective(eval *Evaluator, call lexer.Tag, number int) (string, error) {
	fn, ok := r.directives[call.Name]
	if !ok {
		return "", NewErrorf(ErrorTypeUndefinedDirective, "directive '%s' is not registered", call.Name)
	}

	exprs, err := parser.ParseArguments(sourceRestorer.Replace(call.Expr), r.name, number)
	if err != nil {
		return "", NewErrorWithCause(ErrorTypeInvalidExpression, syntaxMessage(call.Expr, err), err)
	}
	args := make([]interface{}, len(exprs))
	for k, expr := range exprs {
		value, err := eval.Evaluate(expr)
		if err != nil {
			return "", err
		}
		args[k] = value.Interface()
	}

	result, err := fn(args...)
	if err != nil {
		return "", NewErrorWithCause(ErrorTypeInvalidExpression, fmt.Sprintf("directive %s(): %v", call.Name, err), err)
	}
	return ValueOf(result).String(), nil
}

func escapeOutput(s string) string {
	return outputEscaper.Replace(s)
}

// parsingError reports a structural error at offset of src
func (r *renderState) parsingError(src string, offset int, format string, args ...interface{}) error {
	err := NewErrorf(ErrorTypeTemplateParsing, format, args...)
	err.Template = r.name
	err.Line = lineNumber(src, offset)
	err.LineText = lineAt(src, offset)
	err.snippet = snippetAt(src, offset)
	return err
}

// snippetAt returns the tag or expression that starts at offset of src
func snippetAt(src string, offset int) string {
	rest := src[offset:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	closer := "%}"
	if strings.HasPrefix(rest, "{{") {
		closer = "}}"
	}
	if i := strings.Index(rest, closer); i >= 0 {
		return rest[:i+len(closer)]
	}
	return rest
}

// locate moves err to the template and line whose source holds the text it
// was raised for. Included and parent templates are spliced into the lines
// being rendered, so the position a pass reports can belong to another
// template. A position that already holds the text is kept. Otherwise the
// rendered template is searched first, then the others by name.
func (r *renderState) locate(err error) error {
	base := asError(err)
	if base == nil || strings.TrimSpace(base.snippet) == "" {
		return err
	}
	if lines := r.sources[base.Template]; base.Line > 0 && base.Line <= len(lines) && strings.Contains(lines[base.Line-1], base.snippet) {
		return err
	}

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		if name != r.name {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range append([]string{r.name}, names...) {
		for i, line := range r.sources[name] {
			if strings.Contains(line, base.snippet) {
				base.Template, base.Line, base.LineText = name, i+1, line
				return err
			}
		}
	}
	return err
}
