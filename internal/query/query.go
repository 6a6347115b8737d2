// Package query runs data fetches under a fixed time budget and classifies the outcome
// into a small lifecycle: idle, loading, success, empty or error.
package query

import (
	"context"
	"errors"
	"reflect"
	"time"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned, unwrapped, when a fetch exceeds its budget. The message is shown
// to users as is.
var ErrTimeout = errors.New("Demorou demais") //nolint:staticcheck // user facing text

const genericFailureMessage = "Não foi possível carregar. Tente novamente."

type Fetcher[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Status Status
	Data   T
	Err    error
}

func (r Result[T]) TimedOut() bool {
	return errors.Is(r.Err, ErrTimeout)
}

// Message is the user facing text for an error result.
func (r Result[T]) Message() string {
	if r.Status != StatusError {
		return ""
	}
	if r.TimedOut() {
		return ErrTimeout.Error()
	}
	return genericFailureMessage
}

// Do runs fetch once with DefaultTimeout.
func Do[T any](ctx context.Context, fetch Fetcher[T]) Result[T] {
	return DoWithTimeout(ctx, DefaultTimeout, fetch)
}

// DoWithTimeout runs fetch once. The fetch receives a context cancelled at the deadline;
// a fetch that ignores it is abandoned and the result is ErrTimeout all the same.
func DoWithTimeout[T any](ctx context.Context, timeout time.Duration, fetch Fetcher[T]) Result[T] {
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, ErrTimeout)
	defer cancel()

	type outcome struct {
		data T
		err  error
	}

	ch := make(chan outcome, 1)
	go func() {
		data, err := fetch(ctx)
		ch <- outcome{data: data, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil && errors.Is(context.Cause(ctx), ErrTimeout) {
			return Result[T]{Status: StatusError, Err: ErrTimeout}
		}
		return classify(out.data, out.err)
	case <-ctx.Done():
		if errors.Is(context.Cause(ctx), ErrTimeout) {
			return Result[T]{Status: StatusError, Err: ErrTimeout}
		}
		return Result[T]{Status: StatusError, Err: ctx.Err()}
	}
}

func classify[T any](data T, err error) Result[T] {
	if err != nil {
		return Result[T]{Status: StatusError, Err: err}
	}
	if IsEmpty(data) {
		return Result[T]{Status: StatusEmpty, Data: data}
	}
	return Result[T]{Status: StatusSuccess, Data: data}
}

// ItemsLener is implemented by result envelopes that carry a list of items.
type ItemsLener interface {
	ItemsLen() int
}

// IsEmpty reports whether v is nil, a zero length slice or array, or an envelope whose
// items list is empty. Envelopes are recognised through ItemsLener, an exported Items
// slice field, or an "items" key in a map.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}

	if l, ok := v.(ItemsLener); ok {
		return l.ItemsLen() == 0
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice:
		return rv.IsNil() || rv.Len() == 0
	case reflect.Array:
		return rv.Len() == 0
	case reflect.Struct:
		items := rv.FieldByName("Items")
		if items.IsValid() && items.CanInterface() && isList(items) {
			return items.Len() == 0
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return false
		}
		items := rv.MapIndex(reflect.ValueOf("items").Convert(rv.Type().Key()))
		if !items.IsValid() {
			return false
		}
		for items.Kind() == reflect.Interface && !items.IsNil() {
			items = items.Elem()
		}
		if isList(items) {
			return items.Len() == 0
		}
	}

	return false
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}
