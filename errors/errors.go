package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in a bridge operation the error occurred.
type Phase string

const (
	PhaseLoad    Phase = "load"    // runtime library loading and creation
	PhaseAttach  Phase = "attach"  // per-thread attachment
	PhaseResolve Phase = "resolve" // class/method/signature resolution
	PhaseInvoke  Phase = "invoke"  // outbound call execution
	PhaseReenter Phase = "reenter" // inbound stack primitives
)

// Kind categorizes the error.
type Kind string

const (
	KindAlreadyInitialized Kind = "already_initialized"
	KindNotInitialized     Kind = "not_initialized"
	KindLoadFailure        Kind = "load_failure"
	KindAttachFailed       Kind = "attach_failed"
	KindNotFound           Kind = "not_found"
	KindSignatureMismatch  Kind = "signature_mismatch"
	KindInvocation         Kind = "invocation"
	KindNoActiveState      Kind = "no_active_state"
	KindAllocation         Kind = "allocation"
	KindOutOfBounds        Kind = "out_of_bounds"
	KindInvalidInput       Kind = "invalid_input"
)

// Error is the structured error type used throughout the bridge.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two Errors match when
// their phase and kind are equal, regardless of detail text.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Convenience constructors for the bridge's error taxonomy.

// AlreadyInitialized reports a second attempt to create the runtime.
func AlreadyInitialized() *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindAlreadyInitialized,
		Detail: "runtime has already been initialized",
	}
}

// NotInitialized reports an operation attempted before a runtime exists.
func NotInitialized(what string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s has not been initialized", what),
	}
}

// LoadFailure reports a failure to load or create the managed runtime.
func LoadFailure(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoadFailure,
		Detail: detail,
		Cause:  cause,
	}
}

// AttachFailed reports a failure to attach the calling thread.
func AttachFailed(cause error) *Error {
	return &Error{
		Phase:  PhaseAttach,
		Kind:   KindAttachFailed,
		Detail: "attach current thread to runtime",
		Cause:  cause,
	}
}

// NotFound reports an unresolvable class or method.
func NotFound(what, name string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// SignatureMismatch reports a method whose actual type does not match the
// requested signature.
func SignatureMismatch(name, signature, detail string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindSignatureMismatch,
		Detail: fmt.Sprintf("method %q does not match signature %q: %s", name, signature, detail),
	}
}

// Invocation reports an exception raised by the managed runtime during a
// call. The full runtime-native detail travels in Cause; callers surface a
// generic failure after logging it.
func Invocation(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindInvocation,
		Detail: fmt.Sprintf("call to %q failed", name),
		Cause:  cause,
	}
}

// NoActiveState reports an inbound primitive invoked outside the dynamic
// extent of an outbound call.
func NoActiveState(primitive string) *Error {
	return &Error{
		Phase:  PhaseReenter,
		Kind:   KindNoActiveState,
		Detail: fmt.Sprintf("no active script state for %q", primitive),
	}
}

// Allocation reports a failed guest memory allocation.
func Allocation(size uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("allocate %d bytes in guest memory", size),
		Cause:  cause,
	}
}

// OutOfBounds reports a guest memory access outside linear memory.
func OutOfBounds(ptr, length uint32) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("memory range [%d, %d) out of bounds", ptr, ptr+length),
	}
}

// InvalidInput creates an invalid input error.
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with phase and kind context.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
