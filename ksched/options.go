package ksched

import (
	"github.com/Ninjaware/zeke/kcore"
	"github.com/Ninjaware/zeke/ksignal"
)

// schedOptions holds the resolved construction parameters for a
// Scheduler. Shaped on the teacher's eventloop/options.go functional
// options pattern: an unexported options struct, an Option interface
// wrapping a closure, and a resolve helper that nil-skips.
type schedOptions struct {
	maxThreads         int
	ticksPerKernelTick uint64
	loadFreqTicks      uint64
	logger             kcore.Logger
	dumper             kcore.CoreDumper
	munger             ksignal.StackMunger
}

// SchedOption configures a Scheduler at construction time.
type SchedOption interface {
	applySched(*schedOptions)
}

type schedOptionFunc func(*schedOptions)

func (f schedOptionFunc) applySched(o *schedOptions) { f(o) }

// WithMaxThreads bounds the size of the thread table. Default 256.
func WithMaxThreads(n int) SchedOption {
	return schedOptionFunc(func(o *schedOptions) { o.maxThreads = n })
}

// WithTicksPerKernelTick sets how many platform timer ticks make up one
// "kernel tick" - the boundary at which timers and load averages are
// evaluated (§4.2). Default 1 (every tick is a kernel tick).
func WithTicksPerKernelTick(n uint64) SchedOption {
	return schedOptionFunc(func(o *schedOptions) {
		if n == 0 {
			n = 1
		}
		o.ticksPerKernelTick = n
	})
}

// WithLoadAvgPeriod sets the number of kernel ticks between load-average
// recalculations (LOAD_FREQ). Default 5 * 20 = 100 (5 seconds at a 20Hz
// kernel tick, a stand-in for the platform's configured frequency).
func WithLoadAvgPeriod(kernelTicks uint64) SchedOption {
	return schedOptionFunc(func(o *schedOptions) {
		if kernelTicks == 0 {
			kernelTicks = 1
		}
		o.loadFreqTicks = kernelTicks
	})
}

// WithLogger supplies the ambient structured logger (§10.1). Defaults to
// a discarding logger.
func WithLogger(l kcore.Logger) SchedOption {
	return schedOptionFunc(func(o *schedOptions) { o.logger = l })
}

// WithCoreDumper supplies the §6 core-dumper contract, invoked on
// fatal-with-CORE signals against a process's main thread.
func WithCoreDumper(d kcore.CoreDumper) SchedOption {
	return schedOptionFunc(func(o *schedOptions) { o.dumper = d })
}

// WithStackMunger supplies the §4.3.5 user-stack rewrite implementation.
// Required for signal delivery to actually reach a user handler; without
// it, PostSchedule is skipped entirely (signals remain queued).
func WithStackMunger(m ksignal.StackMunger) SchedOption {
	return schedOptionFunc(func(o *schedOptions) { o.munger = m })
}

func resolveSchedOptions(opts []SchedOption) schedOptions {
	o := schedOptions{
		maxThreads:         256,
		ticksPerKernelTick: 1,
		loadFreqTicks:      100,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applySched(&o)
		}
	}
	if o.logger == nil {
		o.logger = kcore.NewDiscardLogger()
	}
	return o
}
