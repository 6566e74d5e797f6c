package pipeline

// ResultKind tags a stage result.
type ResultKind int

const (
	// KindOk means the capability produced a real output.
	KindOk ResultKind = iota
	// KindDegraded means the capability fell back to a designed substitute
	// (usually the unchanged input) and the pipeline should continue.
	KindDegraded
	// KindFailed means the capability failed hard and the caller must stop.
	KindFailed
)

func (k ResultKind) String() string {
	switch k {
	case KindOk:
		return "ok"
	case KindDegraded:
		return "degraded"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of a capability invocation. Exactly one of the
// three constructors produces it; callers branch on Kind instead of treating
// degradation as an error.
type Result[T any] struct {
	kind   ResultKind
	value  T
	reason string
	err    error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{kind: KindOk, value: v}
}

// Degraded wraps a substitute value together with the machine-readable reason
// the real capability was skipped or failed softly.
func Degraded[T any](v T, reason string) Result[T] {
	return Result[T]{kind: KindDegraded, value: v, reason: reason}
}

// Failed wraps a hard failure. The zero value of T is carried but must not be
// used.
func Failed[T any](err error) Result[T] {
	return Result[T]{kind: KindFailed, err: err}
}

// Kind reports the tag.
func (r Result[T]) Kind() ResultKind { return r.kind }

// Value returns the carried value. Meaningful for Ok and Degraded only.
func (r Result[T]) Value() T { return r.value }

// Reason returns the degradation reason, empty unless Kind is Degraded.
func (r Result[T]) Reason() string { return r.reason }

// Err returns the hard failure, nil unless Kind is Failed.
func (r Result[T]) Err() error { return r.err }

// Usable reports whether the carried value may be consumed by the next stage.
func (r Result[T]) Usable() bool { return r.kind != KindFailed }
