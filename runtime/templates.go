package runtime

import (
	"strings"

	"github.com/deicod/sigma/lexer"
)

// template returns a copy of the lines of the named template. The first
// load of a name also walks the templates it extends or includes and
// rejects reference cycles.
func (r *renderState) template(name string) ([]string, error) {
	lines, err := r.load(name)
	if err != nil {
		return nil, err
	}
	if !r.verified[name] {
		if err := r.checkReferences(name, lines, nil); err != nil {
			return nil, err
		}
	}
	return append([]string(nil), lines...), nil
}

// load reads a template through the loader once per render
func (r *renderState) load(name string) ([]string, error) {
	if lines, ok := r.sources[name]; ok {
		return lines, nil
	}
	if r.loader == nil {
		return nil, NewTemplateNotFound(name, nil, errNoLoader)
	}

	source, err := r.loader.Load(name)
	if err != nil {
		if asError(err) != nil {
			return nil, err
		}
		return nil, NewTemplateNotFound(name, nil, err)
	}
	return r.prepareSource(name, source), nil
}

// prepareSource splits source into lines, normalizes their tags and
// rewrites relative extend/include names against the directory of name.
func (r *renderState) prepareSource(name, source string) []string {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.ReplaceAll(source, "\r", "\n")
	source = sourceEscaper.Replace(source)

	lines := splitLines(source)
	dir := ""
	if i := strings.LastIndex(name, "."); i >= 0 && name != stringTemplateName {
		dir = name[:i]
	}
	for i, line := range lines {
		if !strings.Contains(line, "{%") {
			continue
		}
		lines[i] = lexer.NormalizeLine(line)
		if strings.Contains(line, "./") {
			lines[i] = resolveRelative(lines[i], dir)
		}
	}
	r.sources[name] = lines
	return lines
}

// resolveRelative rewrites `./name` in the extend and include tags of line
// to a name relative to dir.
func resolveRelative(line, dir string) string {
	tags := lexer.ScanTags(line, lexer.TagExtend, lexer.TagInclude)
	for i := len(tags) - 1; i >= 0; i-- {
		tag := tags[i]
		if !strings.HasPrefix(tag.Name, "./") {
			continue
		}
		target := strings.TrimPrefix(tag.Name, "./")
		if dir != "" {
			target = dir + "." + target
		}
		text := strings.Replace(tag.Text, tag.Name, target, 1)
		line = line[:tag.Start] + text + line[tag.End:]
	}
	return line
}

// checkReferences walks the extend/include graph below name and reports a
// template that reaches itself. Missing templates are skipped here; they
// fail when a render reaches them.
func (r *renderState) checkReferences(name string, lines []string, stack []string) error {
	for i, seen := range stack {
		if seen == name {
			path := append(append([]string(nil), stack[i:]...), name)
			err := NewErrorf(ErrorTypeTemplateParsing, "circular template reference %s", strings.Join(path, " -> "))
			err.Template = stack[len(stack)-1]
			return err
		}
	}
	if r.verified[name] {
		return nil
	}

	stack = append(stack, name)
	for _, tag := range lexer.ScanTags(joinLines(lines), lexer.TagExtend, lexer.TagInclude) {
		child, err := r.load(tag.Name)
		if err != nil {
			continue
		}
		if err := r.checkReferences(tag.Name, child, stack); err != nil {
			return err
		}
	}
	r.verified[name] = true
	return nil
}

// check validates a template and everything it references without
// evaluating expressions.
func (r *renderState) check(name string, checked map[string]bool) error {
	if checked[name] {
		return nil
	}
	checked[name] = true

	lines, err := r.template(name)
	if err != nil {
		return err
	}

	saved := r.name
	r.name = name
	defer func() { r.name = saved }()

	if lines, err = r.prepare(lines); err != nil {
		return err
	}
	src := joinLines(lines)
	if err := r.checkDefines(src); err != nil {
		return err
	}
	if _, err := r.parseBlocks(src); err != nil {
		return err
	}
	if _, err := r.scanLoops(src); err != nil {
		return err
	}
	if _, err := r.matchConditions(src, false); err != nil {
		return err
	}

	for _, tag := range lexer.ScanTags(src, lexer.TagExtend, lexer.TagInclude) {
		if err := r.check(tag.Name, checked); err != nil {
			return WrapError(err, name, tag.Line+1, lineAt(src, tag.Start))
		}
	}
	return nil
}
