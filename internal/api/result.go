package api

import "errors"

// Result holds either a value or the error that prevented producing it.
// It lets an accessor compose a primary remote call with an explicit
// fallback instead of nesting error checks.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a value
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail wraps an error
func Fail[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Attempt runs fn and captures its outcome
func Attempt[T any](fn func() (T, error)) Result[T] {
	v, err := fn()
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// OK reports whether the result holds a value
func (r Result[T]) OK() bool { return r.err == nil }

// Err returns the error, or nil on success
func (r Result[T]) Err() error { return r.err }

// Get returns the value and error
func (r Result[T]) Get() (T, error) { return r.value, r.err }

// ValueOr returns the value, or def when the result failed
func (r Result[T]) ValueOr(def T) T {
	if r.err != nil {
		return def
	}
	return r.value
}

// OrElse returns r when it succeeded, otherwise the result of fallback.
// When the fallback fails too, both errors are kept.
func (r Result[T]) OrElse(fallback func(error) Result[T]) Result[T] {
	if r.err == nil {
		return r
	}
	next := fallback(r.err)
	if next.err != nil {
		return Fail[T](errors.Join(r.err, next.err))
	}
	return next
}
