package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic turns a value returned by recover() into an INTERNAL_ERROR that
// carries the panic type and stack. It returns nil for a nil value.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", r)
	}

	return ErrInternal.
		WithCause(cause).
		WithDetail("panic_type", fmt.Sprintf("%T", r)).
		WithDetail("stack_trace", string(debug.Stack())).
		AsFatal()
}
