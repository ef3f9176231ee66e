package kcore

import "time"

// TimerSource is the platform timer contract (§6): periodic ticks at a
// fixed frequency and a monotonic clock for timeout bookkeeping. The core
// never reads a wall clock directly.
type TimerSource interface {
	// Now returns a monotonic timestamp; only differences between calls
	// are meaningful.
	Now() time.Time
	// TickInterval is the platform's configured timer-interrupt period.
	TickInterval() time.Duration
}

// AddressSpace is the MMU contract (§6) used by the signal post-scheduling
// hook and the syscall-exit path to safely touch user memory. A real
// implementation traps user faults and reports them as an error rather
// than crashing the kernel.
type AddressSpace interface {
	// CopyOut writes data to a user virtual address, returning an error if
	// the destination faults.
	CopyOut(addr uintptr, data []byte) error
	// CopyIn reads len(data) bytes from a user virtual address.
	CopyIn(addr uintptr, data []byte) error
	// UserAccessible reports whether addr..addr+size is mapped and
	// writable by user code, without performing the access.
	UserAccessible(addr uintptr, size uintptr) bool
}

// VnodeFile is the narrow slice of VFS/vnode (§6) the buffer cache needs:
// seek-then-read/write against a backing file or block device.
type VnodeFile interface {
	ReadAt(p []byte, off int64) (n int, err error)
	WriteAt(p []byte, off int64) (n int, err error)
}

// ProcessTable is the process-table contract (§6): reference counting,
// thread iteration, and credential checks, none of which this core
// implements concretely.
type ProcessTable interface {
	// PrivCheck reports whether the caller (by uid) may signal the target
	// (by uid), mirroring priv_check in the source.
	PrivCheck(callerUID, targetUID int) bool
}

// CoreDumper is the coredumper contract (§6): given an open file, write an
// ELF32 core image for the process. Invoked only on fatal-with-CORE.
type CoreDumper interface {
	Dump(w VnodeFile, threadID int) error
}
