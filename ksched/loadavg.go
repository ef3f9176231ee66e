package ksched

// Fixed-point load-average constants, carried over unchanged from the
// source (5-second sampling period variant; FSHIFT and the exponential
// decay constants are the same family as Linux's CALC_LOAD/SCALE_LOAD).
const (
	fshift = 11
	fixed1 = 1 << fshift

	exp1  = 1884 // 1-minute window decay constant
	exp5  = 2014 // 5-minute window decay constant
	exp15 = 2037 // 15-minute window decay constant
)

// loadavg holds the three fixed-point EMA accumulators (§4.2).
type loadavg struct {
	one, five, fifteen int64 // fixed-point, scale fixed1
}

// calcLoad applies CALC_LOAD(load, exp, n) for one window:
// load <- (load*exp + n*(FIXED_1-exp)) >> FSHIFT
func calcLoad(load int64, exp int64, n int64) int64 {
	load = load*exp + n*(fixed1-exp)
	return load >> fshift
}

// update runs the EMA step for all three windows given the instantaneous
// runnable count n (= priority queue size).
func (l *loadavg) update(n int64) {
	nFixed := n * fixed1
	l.one = calcLoad(l.one, exp1, nFixed)
	l.five = calcLoad(l.five, exp5, nFixed)
	l.fifteen = calcLoad(l.fifteen, exp15, nFixed)
}

// scale converts a fixed-point accumulator to an integer scaled by 100,
// rounded to nearest - SCALE_LOAD((x*100 + FIXED_1/2) >> FSHIFT).
func scale(x int64) int64 {
	return (x*100 + fixed1/2) >> fshift
}

// Get returns the (1, 5, 15)-minute load averages, each scaled by 100 and
// rounded to nearest integer.
func (l *loadavg) Get() (one, five, fifteen int64) {
	return scale(l.one), scale(l.five), scale(l.fifteen)
}
