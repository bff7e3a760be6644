// Package mocks provides test doubles for testing.
package mocks

import "sync"

// Call is a recorded invocation of a mock method.
type Call struct {
	Method string
	Args   []any
}

// recorder records calls and hands out queued failures per method.
type recorder struct {
	mu       sync.RWMutex
	calls    []Call
	failures map[string][]error
}

func (r *recorder) record(method string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Method: method, Args: args})
	queue := r.failures[method]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	r.failures[method] = queue[1:]
	return err
}

// FailNext makes the next call of method return err. Failures queue up.
func (r *recorder) FailNext(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures == nil {
		r.failures = make(map[string][]error)
	}
	r.failures[method] = append(r.failures[method], err)
}

// Calls returns all recorded invocations.
func (r *recorder) Calls() []Call {
	r.mu.RLock()
	defer r.mu.RUnlock()

	calls := make([]Call, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// CallsTo returns the recorded invocations of one method.
func (r *recorder) CallsTo(method string) []Call {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var calls []Call
	for _, c := range r.calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

// Reset clears recorded calls and queued failures.
func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.failures = nil
}
