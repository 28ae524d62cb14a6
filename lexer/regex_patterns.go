package lexer

import (
	"regexp"
	"sort"
	"strings"
)

// Precompiled regular expressions for tokenizing expressions. All of them are
// anchored so they can be applied to the remaining input.
var (
	// Whitespace detection
	WhitespaceRegex = regexp.MustCompile(`^\s+`)

	// Newline detection (handles \r\n, \r, \n)
	NewlineRegex = regexp.MustCompile(`\r\n|\r|\n`)

	// String literals (single and double quoted, with escape sequences)
	StringRegex = regexp.MustCompile(`^('([^'\\]*(?:\\.[^'\\]*)*)'|"([^"\\]*(?:\\.[^"\\]*)*)")`)

	// Float literals need a digit on both sides of the dot so that `$a.1`
	// stays a concatenation.
	FloatRegex = regexp.MustCompile(`^(\d+\.\d+(?:[eE][+\-]?\d+)?|\d+[eE][+\-]?\d+)`)

	// Integer literals
	IntegerRegex = regexp.MustCompile(`^\d+`)

	// Variables carry a `$` sigil
	VariableRegex = regexp.MustCompile(`^\$([a-zA-Z_][a-zA-Z0-9_]*)`)

	// Identifier/names
	NameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`)

	// Operators (sorted by length for correct matching)
	OperatorPatterns = []string{
		"===", "!==", "**", "==", "!=", "<>", "<=", ">=", "&&", "||", "->", "=>",
		"=", "<", ">", "+", "-", "*", "/", "%", ".", "!", "?", ":", ",",
		"(", ")", "[", "]",
	}

	// Combined operator regex
	OperatorRegex = func() *regexp.Regexp {
		escaped := make([]string, 0, len(OperatorPatterns))
		for _, op := range OperatorPatterns {
			escaped = append(escaped, regexp.QuoteMeta(op))
		}
		sort.SliceStable(escaped, func(i, j int) bool {
			return len(escaped[i]) > len(escaped[j])
		})
		return regexp.MustCompile("^(" + strings.Join(escaped, "|") + ")")
	}()
)

// Delimiters holds the template tag delimiters.
type Delimiters struct {
	BlockStart    string
	BlockEnd      string
	VariableStart string
	VariableEnd   string
	CommentStart  string
	CommentEnd    string
}

func DefaultDelimiters() Delimiters {
	return Delimiters{
		BlockStart:    "{%",
		BlockEnd:      "%}",
		VariableStart: "{{",
		VariableEnd:   "}}",
		CommentStart:  "{--",
		CommentEnd:    "--}",
	}
}

// quoted matches a single- or double-quoted template or block name. It uses
// two capture groups, one per quote style.
const quoted = `(?:"([\w.\-/]+)"|'([\w.\-/]+)')`

// Directive grammars, applied to a whole normalized tag (`{% ... %}`).
var (
	ExtendTagRegex    = regexp.MustCompile(`^\{% extend ` + quoted + ` %\}$`)
	IncludeTagRegex   = regexp.MustCompile(`^\{% include ` + quoted + ` %\}$`)
	ShowBlockTagRegex = regexp.MustCompile(`^\{% show_block ` + quoted + ` %\}$`)
	BlockTagRegex     = regexp.MustCompile(`^\{% block ` + quoted + ` %\}$`)
	EndBlockTagRegex  = regexp.MustCompile(`^\{% end_block(?: ` + quoted + `)? %\}$`)
	DefineTagRegex    = regexp.MustCompile(`^\{% define \$(\w+)\s*=\s*(.*) %\}$`)
	IfTagRegex        = regexp.MustCompile(`^\{% if \((.*)\) %\}$`)
	ElseIfTagRegex    = regexp.MustCompile(`^\{% else_if \((.*)\) %\}$`)
	ElseTagRegex      = regexp.MustCompile(`^\{% else(?: (\d+))? %\}$`)
	EndIfTagRegex     = regexp.MustCompile(`^\{% end_if(?: (\d+))? %\}$`)
	ForTagRegex       = regexp.MustCompile(`^\{% for \$(\w+) in (.*?)(?: \((\d+)\))? %\}$`)
	BreakTagRegex     = regexp.MustCompile(`^\{% break \((.*)\)(?: <(\d+)>)? %\}$`)
	ContinueTagRegex  = regexp.MustCompile(`^\{% continue \((.*)\)(?: <(\d+)>)? %\}$`)
	EndForTagRegex    = regexp.MustCompile(`^\{% end_for(?: (\d+))? %\}$`)
	CustomTagRegex    = regexp.MustCompile(`^\{% ([a-zA-Z_][a-zA-Z0-9_]*)\((.*)\) %\}$`)
)

// Normalization rules applied to the inside of every tag before matching.
var (
	tagOpenSpaceRegex  = regexp.MustCompile(`^\{%\s*`)
	tagCloseSpaceRegex = regexp.MustCompile(`\s*%\}$`)
	keywordSpaceRegex  = regexp.MustCompile(`^\{% (define|show_block|extend|include|block|end_block)(?:\s+|\s*(["'$]))`)
	keywordParenRegex  = regexp.MustCompile(`^\{% (if|else_if|break|continue)\s*\(`)
	defineAssignRegex  = regexp.MustCompile(`^(\{% define \$\w+)\s*=\s*`)
)

// ReservedDirectives lists the keywords that custom directives cannot use.
var ReservedDirectives = []string{
	"extend", "include", "show_block", "block", "end_block", "define",
	"if", "else_if", "else", "end_if", "for", "break", "continue", "end_for",
}

// IsReservedDirective reports whether name is a built-in directive keyword.
func IsReservedDirective(name string) bool {
	for _, reserved := range ReservedDirectives {
		if reserved == name {
			return true
		}
	}
	return false
}

// IsValidDirectiveName reports whether name can be used in a custom
// directive call.
func IsValidDirectiveName(name string) bool {
	return NameRegex.FindString(name) == name && name != ""
}
