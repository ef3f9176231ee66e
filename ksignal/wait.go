package ksignal

// BeginSigwait implements the synchronous half of §4.3.6 sigwait: install
// set into the wait mask, then scan the pending queue for a member.
//
// The caller is responsible for having already triggered a
// process→thread forwarding pass (ForwardOne) against the current
// process before calling this, per the source's ordering.
//
// If a pending signal already matches, it is removed from the queue and
// adopted as the return value immediately (resolved=true); the wait mask
// is not touched. Otherwise wait is set to set and the state is marked
// INTERRUPTIBLE, and the caller must suspend the thread (via the
// scheduler) until ReleaseFromSigwait fires or a timer expires;
// EndSigwait then collects the result.
func (s *State) BeginSigwait(set Sigset) (info KSigInfo, resolved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < s.pending.Len(); i++ {
		item := s.pending.At(i)
		if set.Has(item.Signum) {
			s.pending.RemoveAt(i)
			return item, true
		}
	}

	s.wait = set
	s.flags |= flagInterruptible
	return KSigInfo{}, false
}

// EndSigwait is called once the thread has been woken (either by a
// matching signal via the post-scheduling hook's sigwait-resolved branch,
// or by the caller's own timeout). It clears wait and returns whatever
// retval was stashed by the hook, if any.
func (s *State) EndSigwait() (info KSigInfo, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wait = 0
	if s.hasSigwaitRetval {
		info = s.sigwaitRetval
		s.sigwaitRetval = KSigInfo{}
		s.hasSigwaitRetval = false
		return info, true
	}
	return KSigInfo{}, false
}

// AbandonSigwait clears the wait mask without consuming a retval - used
// when sigtimedwait's timer fires before any signal arrived.
func (s *State) AbandonSigwait() {
	s.mu.Lock()
	s.wait = 0
	s.mu.Unlock()
}

// HasDeliverableSignal implements the sigsleep (§4.3.6) early-return
// check: true if any pending, unblocked signal has a non-IGN, non-DFL
// handler installed. excludeSignum lets the caller exclude the internal
// mutex signal used for priority inheritance, per the source.
func (s *State) HasDeliverableSignal(excludeSignum int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < s.pending.Len(); i++ {
		item := s.pending.At(i)
		if item.Signum == excludeSignum {
			continue
		}
		if s.block.Has(item.Signum) {
			continue
		}
		action, _ := s.actions.Get(item.Signum)
		if action.Kind == ActionHandler {
			return true
		}
	}
	return false
}
