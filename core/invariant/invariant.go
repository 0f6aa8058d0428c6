// Package invariant provides contract assertions for the iScheme engine.
//
// A failed assertion is a programming error inside the interpreter, never a
// problem with the user's script. Every check panics with a *Violation; the
// public entry points of the engine convert that panic into an error with
// Recover so that a broken internal contract aborts the run cleanly.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// Violation is the panic value raised by every failed check.
type Violation struct {
	Kind    string // PRECONDITION, POSTCONDITION or INVARIANT
	Message string
	File    string
	Line    int
}

// Error renders the violation with the location of the failed check.
func (v *Violation) Error() string {
	msg := fmt.Sprintf("%s VIOLATION: %s", v.Kind, v.Message)
	if v.File != "" {
		msg += fmt.Sprintf("\n  at %s:%d", v.File, v.Line)
	}
	return msg
}

// Precondition checks an input contract at function entry.
//
// Example:
//
//	func (s *ScopeStack) Pop() *OptionsBlock {
//	    invariant.Precondition(len(s.blocks) > 1, "cannot pop the main block")
//	    // ...
//	}
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks internal consistency during execution.
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including typed nils such as (*T)(nil).
func NotNil(value interface{}, name string) {
	if isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

func isNilValue(value interface{}) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// InRange panics if value is outside [min, max].
func InRange(value, minVal, maxVal int, name string) {
	if value < minVal || value > maxVal {
		fail("PRECONDITION", "%s must be in range [%d, %d], got %d",
			name, minVal, maxVal, value)
	}
}

// ExpectNoError panics if err is not nil.
// Use it for operations that cannot fail given the caller's own checks.
func ExpectNoError(err error, msg string) {
	if err != nil {
		fail("POSTCONDITION", "%s must not fail: %v", msg, err)
	}
}

// Recover converts a *Violation panic into an error stored in *errp.
// Any other panic value is re-raised. Use it deferred:
//
//	defer invariant.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	v, ok := r.(*Violation)
	if !ok {
		panic(r)
	}
	*errp = v
}

// fail panics with a *Violation carrying the caller's location.
func fail(kind, format string, args ...interface{}) {
	v := &Violation{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}

	// Skip runtime.Callers, fail and the exported wrapper.
	pc := make([]uintptr, 1)
	if n := runtime.Callers(3, pc); n > 0 {
		frame, _ := runtime.CallersFrames(pc[:n]).Next()
		v.File = frame.File
		v.Line = frame.Line
	}

	panic(v)
}
