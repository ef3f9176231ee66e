// Package kcore holds the narrow contracts and error vocabulary shared by
// the scheduler, signal, and buffer-cache packages, without pulling any of
// them into a dependency cycle. Nothing here touches a concrete driver,
// filesystem, or platform; it only states what the core core needs from
// its surroundings.
package kcore

import (
	"errors"
	"fmt"
)

// Errno is a sentinel error kind, comparable with errors.Is. It distinguishes
// argument, resource, permission, and retry failures without naming a
// specific operation - callers branch on kind, not on message text.
type Errno struct {
	kind string
}

func (e *Errno) Error() string { return e.kind }

var (
	// ErrNoThread is returned by thread creation when the thread table is full.
	ErrNoThread = &Errno{"no free thread slot"}
	// ErrParameter is returned for an unknown tid/pid, bad signum, or bad how.
	ErrParameter = &Errno{"invalid parameter"}
	// ErrPermission is returned when a credential check rejects a signal send.
	ErrPermission = &Errno{"permission denied"}
	// ErrAgain is returned when a lock could not be acquired without blocking
	// and the caller is expected to retry (or be retried by the next tick).
	ErrAgain = &Errno{"try again"}
	// ErrNoMem is returned when a ksiginfo or buffer could not be allocated.
	ErrNoMem = &Errno{"out of memory"}
	// ErrNotSupported is returned by operations the source left unimplemented
	// (e.g. breadn, altstack).
	ErrNotSupported = &Errno{"not supported"}
	// ErrIO is returned by buffer-cache I/O failures (b_error = EIO).
	ErrIO = &Errno{"i/o error"}
)

// FatalSignal is the error carried out of an operation that resulted in a
// thread being torn down by a fatal signal, as opposed to an ordinary
// argument/resource failure. Callers that need the signal number or code to
// build a process exit status should errors.As into this type.
type FatalSignal struct {
	Signum int
	Code   int // e.g. CLD_KILLED, CLD_DUMPED, ILL_BADSTK
	Err    error
}

func (f *FatalSignal) Error() string {
	return fmt.Sprintf("fatal signal %d (code %d): %v", f.Signum, f.Code, f.Err)
}

func (f *FatalSignal) Unwrap() error { return f.Err }

// InvariantViolation is panicked (never returned) when an internal
// invariant is broken - a bug, not a runtime condition a caller can recover
// from. Examples: double-inserting a buffer for the same (vnode, blkno),
// popping from an empty pending queue believed non-empty.
type InvariantViolation struct {
	What string
}

func (i *InvariantViolation) Error() string { return "invariant violation: " + i.What }

// Panic raises an InvariantViolation. Named so call sites read as intent,
// not as a raw panic().
func Panic(what string) {
	panic(&InvariantViolation{What: what})
}

// IsAgain reports whether err is (or wraps) ErrAgain.
func IsAgain(err error) bool { return errors.Is(err, ErrAgain) }
