package ddo

import "time"

// startStatsTicker mirrors crillab/gophersat's Solve() stats-reporting
// goroutine: a ticker on the side, reporting incumbent/fringe progress,
// never touching the node-expansion hot path. Returns a function that
// stops the ticker; callers must call it exactly once.
func (s *Solver[S]) startStatsTicker() func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.cfg.statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				value, hasValue, _, _ := s.inc.snapshot()
				s.cfg.logger.WithField("incumbent", value).
					WithField("has_incumbent", hasValue).
					WithField("fringe_len", s.fringeLen()).
					WithField("upper_bound", s.BestUpperBound()).
					Info("ddo: search in progress")
			}
		}
	}()
	var once bool
	return func() {
		if !once {
			once = true
			close(done)
		}
	}
}
