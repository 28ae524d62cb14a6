package runtime

import "github.com/deicod/sigma/lexer"

type constructKind int

const (
	constructCondition constructKind = iota
	constructLoop
	constructBlock
)

func (k constructKind) String() string {
	switch k {
	case constructCondition:
		return "if"
	case constructLoop:
		return "for"
	default:
		return "block"
	}
}

// constructOf reports which construct a tag opens or closes.
func constructOf(kind lexer.TagKind) (construct constructKind, opens, closes bool) {
	switch kind {
	case lexer.TagIf:
		return constructCondition, true, false
	case lexer.TagEndIf:
		return constructCondition, false, true
	case lexer.TagFor:
		return constructLoop, true, false
	case lexer.TagEndFor:
		return constructLoop, false, true
	case lexer.TagBlock:
		return constructBlock, true, false
	case lexer.TagEndBlock:
		return constructBlock, false, true
	}
	return 0, false, false
}

// openConstruct is a start tag waiting for its end tag.
type openConstruct struct {
	tag lexer.Tag
	id  int
}

// nestingTracker keeps one stack of open constructs per construct kind.
// Every construct parser feeds it tags left to right and asks it which
// construct an end or mid tag belongs to.
type nestingTracker struct {
	stacks map[constructKind][]openConstruct
	nextID int
}

func newNestingTracker() *nestingTracker {
	return &nestingTracker{stacks: make(map[constructKind][]openConstruct)}
}

// push opens a construct and returns its id. Ids are assigned in discovery
// order starting at 1.
func (t *nestingTracker) push(kind constructKind, tag lexer.Tag) int {
	t.nextID++
	t.stacks[kind] = append(t.stacks[kind], openConstruct{tag: tag, id: t.nextID})
	return t.nextID
}

// pop closes the innermost open construct of kind.
func (t *nestingTracker) pop(kind constructKind) (openConstruct, bool) {
	stack := t.stacks[kind]
	if len(stack) == 0 {
		return openConstruct{}, false
	}
	top := stack[len(stack)-1]
	t.stacks[kind] = stack[:len(stack)-1]
	return top, true
}

// open reports whether any construct of any kind is open.
func (t *nestingTracker) open() bool {
	for _, stack := range t.stacks {
		if len(stack) > 0 {
			return true
		}
	}
	return false
}

// track feeds a tag through the tracker, opening or closing whatever
// construct it belongs to. Unbalanced end tags are ignored here; the parser
// owning that construct reports them.
func (t *nestingTracker) track(tag lexer.Tag) {
	kind, opens, closes := constructOf(tag.Kind)
	switch {
	case opens:
		t.push(kind, tag)
	case closes:
		t.pop(kind)
	}
}
