package invoker

// OnFailure controls whether a non-success outcome is surfaced as an
// error from Invoke, or as a populated command.Result whose Err field is
// set and whose Status is not RanToCompletion. The exception is a
// programming error (command reused, or a non-positive default
// timeout), which is always surfaced as an error regardless of this
// setting.
type OnFailure int

const (
	// Throw surfaces a non-success outcome as Invoke's returned error.
	Throw OnFailure = iota
	// Return surfaces a non-success outcome only in the Result's Err
	// field; Invoke's returned error is nil.
	Return
)

type timeoutKind int

const (
	timeoutDefault timeoutKind = iota
	timeoutMillis
	timeoutToken
)

// Timeout selects how a single invocation's deadline is determined, per
// spec.md §4.6: an explicit millisecond count (Millis, where 0 means
// "already expired"), caller-supplied cancellation with no numeric
// timeout (Token), or the command's configured default (the zero value).
type Timeout struct {
	kind timeoutKind
	ms   int64
}

// Millis requests an explicit timeout in milliseconds. A value of 0
// means the call is already expired: the invoker classifies it as
// TimedOut without running the body or performing admission.
func Millis(ms int64) Timeout {
	return Timeout{kind: timeoutMillis, ms: ms}
}

// Token requests that only the caller's context cancellation govern the
// call; no additional timeout layer is composed. If ctx is already
// canceled at entry, the invoker classifies the call as Canceled without
// running the body or performing admission.
func Token() Timeout {
	return Timeout{kind: timeoutToken}
}

// DefaultTimeout is the zero value: resolve per command.<name>.Timeout
// config, falling back to the descriptor's own default.
var DefaultTimeout = Timeout{kind: timeoutDefault}
