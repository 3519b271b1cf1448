package pre

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admins/internal/shared"
)

func record(trace *[]string, name string, res Result) Check {
	return Check{
		Assign: name,
		Run: func(ctx context.Context, req *Request) Result {
			*trace = append(*trace, name)
			return res
		},
	}
}

func TestChainRunsChecksInOrderAndAssignsSlots(t *testing.T) {
	var trace []string
	chain := New(nil,
		record(&trace, "first", Continue(1)),
		Check{Assign: "second", Run: func(ctx context.Context, req *Request) Result {
			trace = append(trace, "second")
			return Continue(Value[int](req, "first") + 1)
		}},
		record(&trace, "", Pass()),
	)

	var handled *Request
	h := chain.Then(func(w http.ResponseWriter, req *Request) {
		handled = req
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"first", "second", ""}, trace)
	require.NotNil(t, handled)
	assert.Equal(t, 1, Value[int](handled, "first"))
	assert.Equal(t, 2, Value[int](handled, "second"))
}

func TestChainFailureShortCircuits(t *testing.T) {
	var trace []string
	notFound := shared.NewMessageError(shared.ErrNotFound, "Document not found.")
	chain := New(nil,
		record(&trace, "a", Pass()),
		record(&trace, "b", Fail(notFound)),
		record(&trace, "c", Pass()),
	)

	called := false
	rr := httptest.NewRecorder()
	chain.Then(func(w http.ResponseWriter, req *Request) { called = true }).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, called)
	assert.Equal(t, []string{"a", "b"}, trace)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Document not found.", body["message"])
}

func TestChainRespondTakesOver(t *testing.T) {
	chain := New(nil, Check{Run: func(ctx context.Context, req *Request) Result {
		return Respond(0, map[string]string{"id": "a1"})
	}})

	rr := httptest.NewRecorder()
	chain.Then(func(w http.ResponseWriter, req *Request) {
		t.Fatal("handler must not run")
	}).ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"a1"}`, rr.Body.String())
}

func TestChainUnexpectedErrorIsOpaque(t *testing.T) {
	chain := New(nil, Check{Run: func(ctx context.Context, req *Request) Result {
		return Fail(fmt.Errorf("dial tcp 10.0.0.1:5432: refused"))
	}})

	rr := httptest.NewRecorder()
	chain.Then(func(w http.ResponseWriter, req *Request) {}).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "10.0.0.1")
}

func TestAppendDoesNotMutateBase(t *testing.T) {
	base := New(nil, Check{Run: func(context.Context, *Request) Result { return Pass() }})
	extended := base.Append(Check{Run: func(context.Context, *Request) Result { return Pass() }})

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, extended.Len())
}

func TestEvaluateStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	chain := New(nil, Check{Run: func(context.Context, *Request) Result {
		ran = true
		return Pass()
	}})

	res, ok := chain.Evaluate(ctx, NewRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.False(t, ok)
	assert.False(t, ran)
	assert.ErrorIs(t, res.Err(), context.Canceled)
}

func TestValueWrongTypeReturnsZero(t *testing.T) {
	req := NewRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	req.Set("n", "not an int")
	assert.Equal(t, 0, Value[int](req, "n"))
	assert.Equal(t, "", Value[string](req, "missing"))
}
