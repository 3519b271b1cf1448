// Package pre evaluates ordered precondition checks in front of a handler.
//
// Each check either passes, optionally assigning a value to a named slot
// visible to later checks and to the handler, or ends the request with a
// terminal result. Checks must not write to persistent state.
package pre

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-admins/internal/platform/httpx"
)

// Result is the outcome of a single check.
type Result struct {
	terminal bool
	status   int
	body     any
	err      error
	value    any
}

// Continue passes and stores v in the check's slot.
func Continue(v any) Result {
	return Result{value: v}
}

// Pass passes without a value.
func Pass() Result {
	return Result{}
}

// Fail ends the request; err is mapped to a status by httpx.RespondError.
func Fail(err error) Result {
	return Result{terminal: true, err: err}
}

// Respond ends the request with an explicit response, for example an
// early success when there is nothing left to do.
func Respond(status int, body any) Result {
	return Result{terminal: true, status: status, body: body}
}

// Terminal reports whether the result stops the chain.
func (r Result) Terminal() bool {
	return r.terminal
}

// Err returns the failure carried by a terminal result, if any.
func (r Result) Err() error {
	return r.err
}

// Status returns the explicit status of a Respond result.
func (r Result) Status() int {
	return r.status
}

// Body returns the explicit body of a Respond result.
func (r Result) Body() any {
	return r.body
}

// Check is one named precondition. Assign may be empty when the check only
// gates the request.
type Check struct {
	Assign string
	Run    func(ctx context.Context, req *Request) Result
}

// Request carries the incoming HTTP request and the slots filled so far.
type Request struct {
	HTTP  *http.Request
	slots map[string]any
}

// NewRequest wraps an HTTP request.
func NewRequest(r *http.Request) *Request {
	return &Request{HTTP: r, slots: map[string]any{}}
}

// Get returns the value stored in slot name.
func (r *Request) Get(name string) (any, bool) {
	v, ok := r.slots[name]
	return v, ok
}

// Set stores v in slot name.
func (r *Request) Set(name string, v any) {
	r.slots[name] = v
}

// Value returns slot name as T, or the zero value when absent or of
// another type.
func Value[T any](r *Request, name string) T {
	var zero T
	if r == nil {
		return zero
	}
	v, ok := r.slots[name]
	if !ok {
		return zero
	}
	typed, ok := v.(T)
	if !ok {
		return zero
	}
	return typed
}

// Handler runs once every check has passed.
type Handler func(w http.ResponseWriter, req *Request)

// Chain is an ordered, immutable list of checks.
type Chain struct {
	logger *slog.Logger
	checks []Check
}

// New builds a chain.
func New(logger *slog.Logger, checks ...Check) Chain {
	return Chain{logger: logger, checks: append([]Check(nil), checks...)}
}

// Append returns a new chain with checks added at the end.
func (c Chain) Append(checks ...Check) Chain {
	out := make([]Check, 0, len(c.checks)+len(checks))
	out = append(out, c.checks...)
	out = append(out, checks...)
	return Chain{logger: c.logger, checks: out}
}

// Len returns the number of checks.
func (c Chain) Len() int {
	return len(c.checks)
}

// Evaluate runs the checks in order and returns the first terminal result.
// ok is true when every check passed.
func (c Chain) Evaluate(ctx context.Context, req *Request) (Result, bool) {
	for _, check := range c.checks {
		if err := ctx.Err(); err != nil {
			return Fail(err), false
		}
		res := check.Run(ctx, req)
		if res.terminal {
			return res, false
		}
		if check.Assign != "" {
			req.Set(check.Assign, res.value)
		}
	}
	return Result{}, true
}

// Then returns an http.Handler that evaluates the chain before h.
func (c Chain) Then(h Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := NewRequest(r)
		res, ok := c.Evaluate(r.Context(), req)
		if !ok {
			c.write(w, res)
			return
		}
		h(w, req)
	})
}

func (c Chain) write(w http.ResponseWriter, res Result) {
	if res.err != nil {
		httpx.RespondError(w, c.logger, res.err)
		return
	}
	status := res.status
	if status == 0 {
		status = http.StatusOK
	}
	httpx.JSON(w, status, res.body)
}
