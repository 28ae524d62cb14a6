package runtime

import (
	"strings"

	"github.com/deicod/sigma/lexer"
)

// condition is one if construct with its branches
type condition struct {
	id       int
	start    lexer.Tag
	end      lexer.Tag
	branches []*conditionBranch
	hasElse  bool
}

// conditionBranch is the text an if, else_if or else tag guards, with the
// conditions nested in it.
type conditionBranch struct {
	tag      lexer.Tag
	from, to int
	children []*condition
}

func (c *condition) current() *conditionBranch {
	return c.branches[len(c.branches)-1]
}

func (c *condition) inline() bool {
	return c.start.Line == c.end.Line
}

var conditionTags = []lexer.TagKind{
	lexer.TagIf, lexer.TagElseIf, lexer.TagElse, lexer.TagEndIf,
	lexer.TagFor, lexer.TagEndFor,
}

// parseConditions resolves the conditions of src. Conditions inside a loop
// are left for the loop to resolve per iteration.
func (r *renderState) parseConditions(src string) (string, error) {
	return r.resolveConditions(src, 0)
}

// resolveConditions resolves the conditions of src, reporting evaluation
// errors at lineOffset plus the line inside src.
func (r *renderState) resolveConditions(src string, lineOffset int) (string, error) {
	if !strings.Contains(src, "{% if") && !strings.Contains(src, "{% else") && !strings.Contains(src, "{% end_if") {
		return src, nil
	}

	top, err := r.matchConditions(src, true)
	if err != nil {
		return "", err
	}
	return r.resolveRegion(src, 0, len(src), top, lineOffset)
}

// matchConditions pairs the condition tags of src and returns the outermost
// conditions. When skipLoops is set, tags inside for/end_for regions are not
// considered.
func (r *renderState) matchConditions(src string, skipLoops bool) ([]*condition, error) {
	var top []*condition
	var stack []*condition
	tracker := newNestingTracker()
	loopDepth := 0

	for _, tag := range lexer.ScanTags(src, conditionTags...) {
		switch tag.Kind {
		case lexer.TagFor:
			loopDepth++
			continue
		case lexer.TagEndFor:
			if loopDepth > 0 {
				loopDepth--
			}
			continue
		}
		if skipLoops && loopDepth > 0 {
			continue
		}

		switch tag.Kind {
		case lexer.TagIf:
			c := &condition{
				id:       tracker.push(constructCondition, tag),
				start:    tag,
				branches: []*conditionBranch{{tag: tag, from: tag.End}},
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1].current()
				parent.children = append(parent.children, c)
			} else {
				top = append(top, c)
			}
			stack = append(stack, c)

		case lexer.TagElseIf:
			if len(stack) == 0 {
				return nil, r.parsingError(src, tag.Start, "else_if used without if")
			}
			c := stack[len(stack)-1]
			if c.hasElse {
				return nil, r.parsingError(src, tag.Start, "else_if used after else")
			}
			c.current().to = tag.Start
			c.branches = append(c.branches, &conditionBranch{tag: tag, from: tag.End})

		case lexer.TagElse:
			if len(stack) == 0 {
				return nil, r.parsingError(src, tag.Start, "else used without if")
			}
			c := stack[len(stack)-1]
			if c.hasElse {
				return nil, r.parsingError(src, tag.Start, "more than one else in if")
			}
			c.hasElse = true
			c.current().to = tag.Start
			c.branches = append(c.branches, &conditionBranch{tag: tag, from: tag.End})

		case lexer.TagEndIf:
			if len(stack) == 0 {
				return nil, r.parsingError(src, tag.Start, "end_if used without if")
			}
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			tracker.pop(constructCondition)
			c.current().to = tag.Start
			c.end = tag
		}
	}

	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return nil, r.parsingError(src, open.start.Start, "missing end_if for if #%d", open.id)
	}
	return top, nil
}

// resolveRegion copies src[from:to], replacing each condition with the
// text of its selected branch.
func (r *renderState) resolveRegion(src string, from, to int, conditions []*condition, lineOffset int) (string, error) {
	var out strings.Builder
	last := from
	for _, c := range conditions {
		out.WriteString(src[last:c.start.Start])
		resolved, err := r.resolveCondition(src, c, lineOffset)
		if err != nil {
			return "", err
		}
		out.WriteString(resolved)
		last = c.end.End
	}
	out.WriteString(src[last:to])
	return out.String(), nil
}

// resolveCondition evaluates the branches of c in order and returns the
// resolved text of the first one that holds. Branches after it are not
// evaluated.
func (r *renderState) resolveCondition(src string, c *condition, lineOffset int) (string, error) {
	var selected *conditionBranch
	for _, branch := range c.branches {
		if branch.tag.Kind == lexer.TagElse {
			selected = branch
			break
		}
		line := lineOffset + branch.tag.Line + 1
		value, err := r.eval.At(r.name, line).EvaluateString(branch.tag.Expr)
		if err != nil {
			return "", withSnippet(WrapError(err, r.name, line, lineAt(src, branch.tag.Start)), snippetAt(src, branch.tag.Start))
		}
		if value.Truthy() {
			selected = branch
			break
		}
	}

	if selected == nil {
		if c.inline() {
			return "", nil
		}
		return lineBreaks(src[c.start.Start:c.end.End]), nil
	}

	body, err := r.resolveRegion(src, selected.from, selected.to, selected.children, lineOffset)
	if err != nil {
		return "", err
	}
	if c.inline() {
		return strings.TrimSpace(body), nil
	}
	return lineBreaks(src[c.start.Start:selected.from]) + body + lineBreaks(src[selected.to:c.end.End]), nil
}
