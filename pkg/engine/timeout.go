package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/aulos/pkg/instrument"
)

// DefaultTimeout bounds one script evaluation when Engine.Timeout is unset.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's timeout.
	ErrTimeout = errors.New("instrument script timed out")
	// ErrSuperseded is returned for a script whose result arrived after a
	// newer Evaluate call started.
	ErrSuperseded = errors.New("instrument script superseded by a newer evaluation")
)

// outcome carries one evaluation back from its goroutine.
type outcome struct {
	gen        uint64
	instrument *instrument.Instrument
	errors     []EvalError
	err        error
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

// await blocks for the outcome of evaluation gen. A script still running
// at the deadline is abandoned; whatever it builds later is dropped, since
// ch is buffered and nobody reads it.
func (e *Engine) await(ch <-chan outcome) (*instrument.Instrument, []EvalError, error) {
	limit := e.timeout()
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.gen != e.currentGeneration() {
			return nil, nil, ErrSuperseded
		}
		return out.instrument, out.errors, out.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
	}
}

func (e *Engine) currentGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}
