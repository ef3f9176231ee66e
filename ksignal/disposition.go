package ksignal

// Disposition flags making up a signal's default behaviour, carried over
// from the source's default_sigproptbl. A signal's default is a bitwise
// combination of these.
type Disposition uint8

const (
	DispKill     Disposition = 1 << iota // terminate the process
	DispCore                             // ... and produce a core dump
	DispIgnore                           // no-op by default
	DispContinue                         // resumes a stopped process
	DispStop                             // stops the process
	DispTTYStop                          // stop only applies when backgrounded on a tty
)

// Well-known signal numbers, matching the subset the source assigns a
// default disposition to. Names are POSIX-conventional.
const (
	SIGHUP  = 1
	SIGINT  = 2
	SIGQUIT = 3
	SIGILL  = 4
	SIGTRAP = 5
	SIGABRT = 6
	SIGBUS  = 7
	SIGFPE  = 8
	SIGKILL = 9
	SIGUSR1 = 10
	SIGSEGV = 11
	SIGUSR2 = 12
	SIGPIPE = 13
	SIGALRM = 14
	SIGTERM = 15
	SIGSTKFLT = 16
	SIGCHLD = 17
	SIGCONT = 18
	SIGSTOP = 19
	SIGTSTP = 20
	SIGTTIN = 21
	SIGTTOU = 22
	SIGURG  = 23
	SIGXCPU = 24
	SIGXFSZ = 25
	SIGVTALRM = 26
	SIGPROF = 27
	SIGWINCH = 28
	SIGIO   = 29
	SIGPWR  = 30
	SIGSYS  = 31
)

// defaultDisposition is the full 1-31 default-disposition table carried
// over from original_source/kern/ksignal.c's default_sigproptbl (§12.1).
// Index 0 is unused; signal numbers are 1-based.
var defaultDisposition = [MaxSig + 1]Disposition{
	0:         0,
	SIGHUP:    DispKill,
	SIGINT:    DispKill,
	SIGQUIT:   DispKill | DispCore,
	SIGILL:    DispKill | DispCore,
	SIGTRAP:   DispKill | DispCore,
	SIGABRT:   DispKill | DispCore,
	SIGBUS:    DispKill | DispCore,
	SIGFPE:    DispKill | DispCore,
	SIGKILL:   DispKill,
	SIGUSR1:   DispKill,
	SIGSEGV:   DispKill | DispCore,
	SIGUSR2:   DispKill,
	SIGPIPE:   DispKill,
	SIGALRM:   DispKill,
	SIGTERM:   DispKill,
	SIGSTKFLT: DispKill,
	SIGCHLD:   DispIgnore,
	SIGCONT:   DispIgnore | DispContinue,
	SIGSTOP:   DispStop,
	SIGTSTP:   DispStop | DispTTYStop,
	SIGTTIN:   DispStop | DispTTYStop,
	SIGTTOU:   DispStop | DispTTYStop,
	SIGURG:    DispIgnore,
	SIGXCPU:   DispKill,
	SIGXFSZ:   DispKill,
	SIGVTALRM: DispKill,
	SIGPROF:   DispKill,
	SIGWINCH:  DispIgnore,
	SIGIO:     DispIgnore,
	SIGPWR:    DispIgnore,
	SIGSYS:    DispKill | DispCore,
}

// DefaultDisposition returns the default disposition for signum, or 0 for
// an out-of-range signum.
func DefaultDisposition(signum int) Disposition {
	if signum <= 0 || signum > MaxSig {
		return 0
	}
	return defaultDisposition[signum]
}
