// Package directives provides a stock set of custom directives: markdown
// rendering, title casing, locale-aware number formatting and joining.
package directives

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/deicod/sigma/runtime"
)

// DefaultLocale is used when a formatting directive gets no locale argument
const DefaultLocale = "en"

// Registry is anything directives can be registered with
type Registry interface {
	RegisterDirective(name string, fn runtime.DirectiveFunc) error
}

// All returns the stock directives by name
func All() map[string]runtime.DirectiveFunc {
	return map[string]runtime.DirectiveFunc{
		"markdown":        Markdown,
		"title":           Title,
		"format_number":   FormatNumber,
		"format_currency": FormatCurrency,
		"format_percent":  FormatPercent,
		"join":            Join,
	}
}

// Register registers every stock directive with r
func Register(r Registry) error {
	for name, fn := range All() {
		if err := r.RegisterDirective(name, fn); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}

// Markdown converts its argument from Markdown to HTML:
// `{% markdown($post) %}`.
func Markdown(args ...interface{}) (interface{}, error) {
	if err := arity("markdown", args, 1, 1); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	md := goldmark.New()
	if err := md.Convert([]byte(text(args[0])), &buf); err != nil {
		return nil, fmt.Errorf("failed to convert markdown: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Title upper-cases the first letter of every word:
// `{% title($name) %}`, `{% title($name, 'nl') %}`.
func Title(args ...interface{}) (interface{}, error) {
	if err := arity("title", args, 1, 2); err != nil {
		return nil, err
	}
	tag, err := locale(args, 1)
	if err != nil {
		return nil, err
	}
	return cases.Title(tag).String(text(args[0])), nil
}

// FormatNumber formats a number with the grouping of a locale:
// `{% format_number(1234.5) %}` gives `1,234.5`.
func FormatNumber(args ...interface{}) (interface{}, error) {
	if err := arity("format_number", args, 1, 2); err != nil {
		return nil, err
	}
	value, err := float(args[0])
	if err != nil {
		return nil, err
	}
	tag, err := locale(args, 1)
	if err != nil {
		return nil, err
	}

	p := message.NewPrinter(tag)
	return p.Sprintf("%v", number.Decimal(value)), nil
}

// FormatCurrency formats an amount in an ISO 4217 currency:
// `{% format_currency($total, 'EUR', 'de') %}`.
func FormatCurrency(args ...interface{}) (interface{}, error) {
	if err := arity("format_currency", args, 2, 3); err != nil {
		return nil, err
	}
	value, err := float(args[0])
	if err != nil {
		return nil, err
	}
	cur, err := currency.ParseISO(text(args[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid currency code: %s", text(args[1]))
	}
	tag, err := locale(args, 2)
	if err != nil {
		return nil, err
	}

	p := message.NewPrinter(tag)
	amount := cur.Amount(value)
	return p.Sprintf("%v", currency.Symbol(amount)), nil
}

// FormatPercent formats a ratio as a percentage:
// `{% format_percent(0.25) %}` gives `25%`.
func FormatPercent(args ...interface{}) (interface{}, error) {
	if err := arity("format_percent", args, 1, 2); err != nil {
		return nil, err
	}
	value, err := float(args[0])
	if err != nil {
		return nil, err
	}
	tag, err := locale(args, 1)
	if err != nil {
		return nil, err
	}

	p := message.NewPrinter(tag)
	return p.Sprintf("%v", number.Percent(value)), nil
}

// Join concatenates its arguments. A sequence argument contributes its
// elements: `{% join(', ', $tags) %}` or `{% join(' ', 'a', 'b') %}`.
func Join(args ...interface{}) (interface{}, error) {
	if err := arity("join", args, 1, -1); err != nil {
		return nil, err
	}

	var parts []string
	for _, arg := range args[1:] {
		if items, ok := arg.([]interface{}); ok {
			for _, item := range items {
				parts = append(parts, text(item))
			}
			continue
		}
		parts = append(parts, text(arg))
	}
	return strings.Join(parts, text(args[0])), nil
}

func arity(name string, args []interface{}, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		switch {
		case max < 0:
			return fmt.Errorf("%s expects at least %d arguments, got %d", name, min, len(args))
		case min == max:
			return fmt.Errorf("%s expects %d arguments, got %d", name, min, len(args))
		default:
			return fmt.Errorf("%s expects %d to %d arguments, got %d", name, min, max, len(args))
		}
	}
	return nil
}

func text(arg interface{}) string {
	return runtime.ValueOf(arg).String()
}

func float(arg interface{}) (float64, error) {
	if f, ok := runtime.ValueOf(arg).Float(); ok {
		return f, nil
	}
	return 0, fmt.Errorf("expected a number, got %v", arg)
}

func locale(args []interface{}, index int) (language.Tag, error) {
	name := DefaultLocale
	if len(args) > index {
		name = text(args[index])
	}
	tag, err := language.Parse(name)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", name, err)
	}
	return tag, nil
}
