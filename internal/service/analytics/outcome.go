package analytics

// Outcome is what a reducer returns. A degraded outcome carries the zero-valued metrics and the
// error that caused the fallback; callers always read Value.
type Outcome[T any] struct {
	Value    T
	Degraded bool
	Err      error
}

// Complete wraps a successfully computed value
func Complete[T any](value T) Outcome[T] {
	return Outcome[T]{Value: value}
}

// Degrade returns the empty value of T annotated with the failure
func Degrade[T any](empty T, err error) Outcome[T] {
	return Outcome[T]{Value: empty, Degraded: true, Err: err}
}
