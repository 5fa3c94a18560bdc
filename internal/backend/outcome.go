package backend

import "errors"

// Status classifies the result of one backend read.
type Status int

const (
	StatusOK Status = iota
	// StatusNetworkFailed covers transport errors, timeouts, cancellation
	// and non-2xx responses.
	StatusNetworkFailed
	// StatusDecodeFailed means the body was not the expected JSON shape.
	StatusDecodeFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNetworkFailed:
		return "network_failed"
	case StatusDecodeFailed:
		return "decode_failed"
	default:
		return "unknown"
	}
}

// ErrStatus is wrapped by errors for non-2xx responses.
var ErrStatus = errors.New("backend: unexpected response status")

// Outcome is the result of a backend read. Callers choose whether to
// surface failures or collapse them with OrEmpty.
type Outcome[T any] struct {
	Value  T
	Status Status
	Err    error
}

func (o Outcome[T]) OK() bool {
	return o.Status == StatusOK
}

// OrEmpty returns Value on success and the zero value otherwise, so a
// failed list read looks exactly like an empty one.
func (o Outcome[T]) OrEmpty() T {
	if o.OK() {
		return o.Value
	}
	var zero T
	return zero
}

func ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Status: StatusOK}
}

func failed[T any](status Status, err error) Outcome[T] {
	return Outcome[T]{Status: status, Err: err}
}
