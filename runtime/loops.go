package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deicod/sigma/lexer"
)

const (
	loopMarkerPrefix = "\x00loop:"
	nestedLoopFormat = "\x00nested:%d\x00"
)

// loop is one for/end_for construct
type loop struct {
	start      lexer.Tag
	end        lexer.Tag
	executable bool
}

func (l *loop) inline() bool {
	return l.start.Line == l.end.Line
}

// loopBody is a loop body ready to be unrolled: its own break and continue
// guards taken out and its nested loops replaced by placeholders.
type loopBody struct {
	text      string
	breaks    []lexer.Tag
	continues []lexer.Tag
	nested    []string
}

var loopTags = []lexer.TagKind{
	lexer.TagFor, lexer.TagEndFor, lexer.TagBreak, lexer.TagContinue,
	lexer.TagIf, lexer.TagEndIf,
}

func hasLoopTags(src string) bool {
	for _, prefix := range []string{"{% for", "{% end_for", "{% break", "{% continue"} {
		if strings.Contains(src, prefix) {
			return true
		}
	}
	return false
}

// parseLoops unrolls the loops of src until none is left to execute. Each
// round executes the outermost loops; the loops nested in them come back
// into src as copies and run in a later round. A loop inside an if waits
// for the if to be resolved.
func (r *renderState) parseLoops(src string) (string, error) {
	for hasLoopTags(src) {
		loops, err := r.scanLoops(src)
		if err != nil {
			return "", err
		}

		var out strings.Builder
		last := 0
		executed := false
		for _, l := range loops {
			if !l.executable {
				continue
			}
			replacement, from, to, err := r.executeLoop(src, l)
			if err != nil {
				return "", err
			}
			out.WriteString(src[last:from])
			out.WriteString(replacement)
			last = to
			executed = true
		}
		if !executed {
			break
		}
		out.WriteString(src[last:])
		src = out.String()

		if err := r.ctx.Err(); err != nil {
			return "", err
		}
	}
	return src, nil
}

// scanLoops pairs the loop tags of src and returns the outermost loops.
// Break and continue outside any loop are errors.
func (r *renderState) scanLoops(src string) ([]*loop, error) {
	var top []*loop
	var stack []*loop
	ifDepth := 0

	for _, tag := range lexer.ScanTags(src, loopTags...) {
		switch tag.Kind {
		case lexer.TagIf:
			if len(stack) == 0 {
				ifDepth++
			}
		case lexer.TagEndIf:
			if len(stack) == 0 && ifDepth > 0 {
				ifDepth--
			}
		case lexer.TagFor:
			l := &loop{start: tag, executable: len(stack) == 0 && ifDepth == 0}
			if len(stack) == 0 {
				top = append(top, l)
			}
			stack = append(stack, l)
		case lexer.TagEndFor:
			if len(stack) == 0 {
				return nil, r.parsingError(src, tag.Start, "end_for used without for")
			}
			stack[len(stack)-1].end = tag
			stack = stack[:len(stack)-1]
		case lexer.TagBreak, lexer.TagContinue:
			if len(stack) == 0 {
				return nil, r.parsingError(src, tag.Start, "%s used outside of a loop", tag.Kind)
			}
		}
	}

	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return nil, r.parsingError(src, open.start.Start, "missing end_for for loop over %s", open.start.Expr)
	}
	return top, nil
}

// executeLoop unrolls l and returns its output together with the span of
// src it replaces.
func (r *renderState) executeLoop(src string, l *loop) (string, int, int, error) {
	bodyStart := l.start.End
	carried := make(map[string]Value)
	if index, length, ok := markerAt(src, bodyStart); ok && index < len(r.bindings) {
		for name, value := range r.bindings[index] {
			carried[name] = value
			r.vars.Set(name, value)
		}
		bodyStart += length
	}

	line := l.start.Line + 1
	lineText := lineAt(src, l.start.Start)
	eval := r.eval.At(r.name, line)

	items, err := r.loopDomain(eval, l.start.Expr)
	if err != nil {
		return "", 0, 0, withSnippet(WrapError(err, r.name, line, lineText), snippetAt(src, l.start.Start))
	}

	raw := src[bodyStart:l.end.Start]
	if !l.inline() {
		raw = trimLoopBody(raw)
	}
	raw, err = r.expandComposites(raw)
	if err != nil {
		return "", 0, 0, err
	}
	body, err := r.compileLoopBody(raw)
	if err != nil {
		return "", 0, 0, err
	}

	outputs := make([]string, 0, len(items))
	for _, item := range items {
		r.iterations++
		if r.iterations > r.limits.MaxLoopIterations {
			return "", 0, 0, loopLimitError(r.name, r.limits.MaxLoopIterations)
		}
		r.vars.Set(l.start.Variable, item)

		stop, err := r.anyGuard(eval, body.breaks)
		if err != nil {
			return "", 0, 0, WrapError(err, r.name, line, lineText)
		}
		if stop {
			break
		}
		skip, err := r.anyGuard(eval, body.continues)
		if err != nil {
			return "", 0, 0, WrapError(err, r.name, line, lineText)
		}
		if skip {
			continue
		}

		text, err := r.resolveConditions(body.text, l.start.Line)
		if err != nil {
			return "", 0, 0, err
		}
		if text, err = r.resolveText(text, line); err != nil {
			return "", 0, 0, err
		}
		if len(body.nested) > 0 {
			text = r.restoreNested(text, body.nested, carried, l.start.Variable, item)
		}
		outputs = append(outputs, text)
	}

	if l.inline() {
		return strings.Join(outputs, ""), l.start.Start, l.end.End, nil
	}

	from, to := l.start.Start, l.end.End
	lineStart := strings.LastIndex(src[:from], "\n") + 1
	lineEnd := len(src)
	if i := strings.Index(src[to:], "\n"); i >= 0 {
		lineEnd = to + i
	}
	joined := ""
	if body.text != "" {
		joined = strings.Join(outputs, "\n")
	}

	if isBlank(src[lineStart:from]) {
		from = lineStart
	} else if joined != "" {
		joined = "\n" + joined
	}
	if isBlank(src[to:lineEnd]) {
		to = lineEnd
	} else if joined != "" {
		joined += "\n"
	}
	return joined, from, to, nil
}

// loopDomain evaluates the loop expression and returns the values to
// iterate over. A numeric string counts like the number it spells.
func (r *renderState) loopDomain(eval *Evaluator, expr string) ([]Value, error) {
	value, err := eval.EvaluateString(expr)
	if err != nil {
		return nil, err
	}
	if value.Kind() == KindString {
		if n, ok := parseNumericString(value.String()); ok {
			value = n.value()
		}
	}
	if value.Kind() == KindNumber {
		if n, _ := value.Int(); n > int64(r.limits.MaxLoopIterations-r.iterations) {
			return nil, loopLimitError(r.name, r.limits.MaxLoopIterations)
		}
	}
	items, err := value.Iterate()
	if err != nil {
		return nil, NewErrorWithCause(ErrorTypeInvalidExpression,
			fmt.Sprintf("cannot iterate over %q: %s is not a number, string or sequence", expr, value.Kind()), err)
	}
	return items, nil
}

func (r *renderState) anyGuard(eval *Evaluator, guards []lexer.Tag) (bool, error) {
	for _, guard := range guards {
		value, err := eval.EvaluateString(guard.Expr)
		if err != nil {
			return false, err
		}
		if value.Truthy() {
			return true, nil
		}
	}
	return false, nil
}

// compileLoopBody takes the break and continue guards of the loop out of
// body and replaces its nested loops with placeholders.
func (r *renderState) compileLoopBody(body string) (*loopBody, error) {
	compiled := &loopBody{}
	var out strings.Builder
	last := 0
	depth := 0
	nestedStart := 0

	for _, tag := range lexer.ScanTags(body, lexer.TagFor, lexer.TagEndFor, lexer.TagBreak, lexer.TagContinue) {
		switch tag.Kind {
		case lexer.TagFor:
			if depth == 0 {
				out.WriteString(body[last:tag.Start])
				nestedStart = tag.Start
			}
			depth++
		case lexer.TagEndFor:
			if depth == 0 {
				return nil, r.parsingError(body, tag.Start, "end_for used without for")
			}
			depth--
			if depth == 0 {
				fmt.Fprintf(&out, nestedLoopFormat, len(compiled.nested))
				compiled.nested = append(compiled.nested, body[nestedStart:tag.End])
				last = tag.End
			}
		case lexer.TagBreak, lexer.TagContinue:
			if depth > 0 {
				continue
			}
			out.WriteString(body[last:tag.Start])
			last = tag.End
			if tag.Kind == lexer.TagBreak {
				compiled.breaks = append(compiled.breaks, tag)
			} else {
				compiled.continues = append(compiled.continues, tag)
			}
		}
	}
	if depth > 0 {
		return nil, r.parsingError(body, nestedStart, "missing end_for for loop")
	}

	out.WriteString(body[last:])
	compiled.text = out.String()
	return compiled, nil
}

// restoreNested puts the nested loops back into an iteration's output. Each
// gets a marker after its start tag carrying the bindings active in this
// iteration.
func (r *renderState) restoreNested(text string, nested []string, carried map[string]Value, variable string, item Value) string {
	binding := make(map[string]Value, len(carried)+1)
	for name, value := range carried {
		binding[name] = value
	}
	binding[variable] = item
	r.bindings = append(r.bindings, binding)
	marker := loopMarkerPrefix + strconv.Itoa(len(r.bindings)-1) + "\x00"

	for k, inner := range nested {
		if tags := lexer.ScanTags(inner, lexer.TagFor); len(tags) > 0 {
			end := tags[0].End
			rest := inner[end:]
			if _, length, ok := markerAt(inner, end); ok {
				rest = inner[end+length:]
			}
			inner = inner[:end] + marker + rest
		}
		text = strings.Replace(text, fmt.Sprintf(nestedLoopFormat, k), inner, 1)
	}
	return text
}

// markerAt reads the preserved-value marker starting at pos of src
func markerAt(src string, pos int) (index, length int, ok bool) {
	if !strings.HasPrefix(src[pos:], loopMarkerPrefix) {
		return 0, 0, false
	}
	digits := src[pos+len(loopMarkerPrefix):]
	end := strings.IndexByte(digits, 0)
	if end <= 0 {
		return 0, 0, false
	}
	index, err := strconv.Atoi(digits[:end])
	if err != nil {
		return 0, 0, false
	}
	return index, len(loopMarkerPrefix) + end + 1, true
}

// trimLoopBody drops the blank text after the start tag and before the end
// tag of a multi-line loop.
func trimLoopBody(body string) string {
	lines := splitLines(body)
	if len(lines) > 1 && isBlank(lines[0]) {
		lines = lines[1:]
	}
	if len(lines) > 1 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 1 && isBlank(lines[0]) {
		return ""
	}
	return joinLines(lines)
}
