package runtime

import "fmt"

const (
	DefaultMaxPasses         = 1000
	DefaultMaxLoopIterations = 100000
)

// Limits bounds the work a single render may do. A zero field means the
// default for MaxPasses and MaxLoopIterations, and no limit for
// MaxOutputSize.
type Limits struct {
	// MaxPasses caps the rounds of the fixed-point driver.
	MaxPasses int
	// MaxLoopIterations caps the loop iterations unrolled in one render.
	MaxLoopIterations int
	// MaxOutputSize caps the rendered output in bytes.
	MaxOutputSize int
}

// DefaultLimits returns the limits every environment starts with
func DefaultLimits() Limits {
	return Limits{
		MaxPasses:         DefaultMaxPasses,
		MaxLoopIterations: DefaultMaxLoopIterations,
	}
}

func (l Limits) withDefaults() Limits {
	if l.MaxPasses <= 0 {
		l.MaxPasses = DefaultMaxPasses
	}
	if l.MaxLoopIterations <= 0 {
		l.MaxLoopIterations = DefaultMaxLoopIterations
	}
	if l.MaxOutputSize < 0 {
		l.MaxOutputSize = 0
	}
	return l
}

func (l Limits) String() string {
	return fmt.Sprintf("passes=%d loop_iterations=%d output_size=%d", l.MaxPasses, l.MaxLoopIterations, l.MaxOutputSize)
}

func passLimitError(template string, passes int) *Error {
	err := NewErrorf(ErrorTypeTemplateParsing, "template did not settle after %d passes", passes)
	err.Template = template
	return err
}

func loopLimitError(template string, iterations int) *Error {
	err := NewErrorf(ErrorTypeTemplateParsing, "loops unrolled more than %d iterations", iterations)
	err.Template = template
	return err
}

func outputLimitError(template string, size int) *Error {
	err := NewErrorf(ErrorTypeTemplateParsing, "output exceeds %d bytes", size)
	err.Template = template
	return err
}
