package engine

import (
	"fmt"
	"sync"
	"time"
)

// EvalTimeout is the hard limit for a single evaluation. Generous because
// a script may tessellate a solid before indexing it.
const EvalTimeout = 30 * time.Second

// evalOutcome passes evaluation results through the completion channel.
type evalOutcome struct {
	result *Result
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, giving up after EvalTimeout.
// A generation counter discards stale results from superseded evaluations.
//
// On timeout the goroutine may still be running; the generation check
// ensures its eventual result is dropped.
func waitWithTimeout(
	ch <-chan evalOutcome,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*Result, []EvalError, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.result, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", EvalTimeout)
	}
}
