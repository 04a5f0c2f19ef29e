// Package engine provides the Lisp evaluation engine for instrument
// descriptions. It wraps zygomys in a sandboxed environment and produces
// an Instrument from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/aulos/pkg/instrument"
)

// DefaultName names an instrument whose source never calls (instrument ...).
const DefaultName = "instrument"

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandboxed environment for
// determinism.
type Engine struct {
	// Defaults seed every evaluated instrument; (instrument ...) in the
	// source overrides them.
	Defaults instrument.Defaults
	// Timeout bounds one evaluation; <= 0 uses DefaultTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine with the default instrument settings.
func NewEngine() *Engine {
	return &Engine{Defaults: instrument.New("").Defaults}
}

// NewEngineWithDefaults creates an Engine seeded with d.
func NewEngineWithDefaults(d instrument.Defaults) *Engine {
	return &Engine{Defaults: d}
}

// Evaluate takes Lisp source code and produces a new Instrument.
//
// Return semantics:
//   - On success: returns instrument + nil errors + nil error
//   - On parse/eval failure: returns nil instrument + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*instrument.Instrument, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	defaults := e.Defaults
	e.mu.Unlock()

	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{gen: gen, err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		in, evalErrs, err := evaluate(source, defaults)
		if in != nil {
			in.Version = gen
		}
		ch <- outcome{gen: gen, instrument: in, errors: evalErrs, err: err}
	}()

	return e.await(ch)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func evaluate(source string, defaults instrument.Defaults) (*instrument.Instrument, []EvalError, error) {
	in := instrument.New(DefaultName)
	in.Defaults = defaults
	if in.Defaults.Units == "" {
		in.Defaults.Units = "mm"
	}

	// Empty source is a valid program that produces an empty instrument.
	if strings.TrimSpace(source) == "" {
		return in, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder(in)
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	b.finish()
	return in, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?is)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?is)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
