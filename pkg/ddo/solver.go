package ddo

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Result is what Maximize returns: the exposed API's
// maximize() -> { best_value: optional int, is_exact: bool } plus the path
// that reaches best_value, since most callers want it immediately rather
// than a second call to BestSolution.
type Result struct {
	BestValue    int64
	HasValue     bool
	IsExact      bool
	BestSolution []Decision
}

// Option configures a Solver at construction time, mirroring the
// teacher's functional-options pattern (optimize.go's OptimizeOption).
type Option[S comparable] func(*solverConfig[S])

type solverConfig[S comparable] struct {
	workers       int
	logger        logrus.FieldLogger
	statsInterval time.Duration
	dominance     Dominance[S]
}

func defaultConfig[S comparable]() solverConfig[S] {
	return solverConfig[S]{workers: 1, statsInterval: 5 * time.Second}
}

// WithWorkers sets the number of peer workers. k <= 1 runs the
// sequential core directly.
func WithWorkers[S comparable](k int) Option[S] {
	return func(c *solverConfig[S]) {
		if k > 0 {
			c.workers = k
		}
	}
}

// WithLogger attaches a structured logger; when set, a background ticker
// reports incumbent/fringe progress periodically (see stats.go).
func WithLogger[S comparable](l logrus.FieldLogger) Option[S] {
	return func(c *solverConfig[S]) { c.logger = l }
}

// WithStatsInterval overrides the default 5s reporting period.
func WithStatsInterval[S comparable](d time.Duration) Option[S] {
	return func(c *solverConfig[S]) {
		if d > 0 {
			c.statsInterval = d
		}
	}
}

// WithDominance installs the additive dominance-pruning capability.
func WithDominance[S comparable](d Dominance[S]) Option[S] {
	return func(c *solverConfig[S]) { c.dominance = d }
}

// Solver holds the fringe, the incumbent, and everything a worker needs
// to compile DDs.
type Solver[S comparable] struct {
	problem Problem[S]
	relax   Relaxation[S]
	ranking StateRanking[S]
	width   WidthHeuristic
	cutoff  Cutoff

	cfg solverConfig[S]
	inc *incumbent[S]
	dom *dominanceTable[S]

	fringeMu sync.Mutex
	fringe   Fringe[S]

	ubMu     sync.Mutex
	inFlight map[int]int64
	nextTok  int
}

// New constructs a Solver. fringe may be nil, in which case a
// SimpleFringe ordered by ranking is used.
func New[S comparable](problem Problem[S], relax Relaxation[S], ranking StateRanking[S], width WidthHeuristic, cutoff Cutoff, fringe Fringe[S], opts ...Option[S]) *Solver[S] {
	if cutoff == nil {
		cutoff = NoCutoff{}
	}
	if fringe == nil {
		fringe = NewSimpleFringe[S](ranking)
	}
	if width == nil {
		width = NbUnassignedWidth(problem.NbVariables())
	}
	cfg := defaultConfig[S]()
	for _, o := range opts {
		o(&cfg)
	}
	s := &Solver[S]{
		problem:  problem,
		relax:    relax,
		ranking:  ranking,
		width:    width,
		cutoff:   cutoff,
		cfg:      cfg,
		inc:      newIncumbent[S](),
		fringe:   fringe,
		inFlight: make(map[int]int64),
	}
	if cfg.dominance != nil {
		s.dom = newDominanceTable[S](cfg.dominance)
	}
	return s
}

// SetPrimal seeds the incumbent with an externally-known feasible value
// before Maximize runs, for warm-starting or resuming a search.
func (s *Solver[S]) SetPrimal(value int64, path []Decision) {
	s.inc.setPrimal(value, path)
}

// Maximize runs the branch-and-bound search to completion, to
// exhaustion, or until ctx is done / the configured Cutoff fires.
func (s *Solver[S]) Maximize(ctx context.Context) Result {
	s.cutoff.Start()

	s.fringeMu.Lock()
	s.fringe.Clear()
	s.fringe.Push(Subproblem[S]{
		State: s.problem.InitialState(),
		Value: s.problem.InitialValue(),
		UB:    math.MaxInt64,
		Depth: 0,
	})
	s.fringeMu.Unlock()

	var stopStats func()
	if s.cfg.logger != nil {
		stopStats = s.startStatsTicker()
	}

	var exact bool
	if s.cfg.workers <= 1 {
		exact = s.runSequential(ctx)
	} else {
		exact = s.runParallel(ctx)
	}

	if stopStats != nil {
		stopStats()
	}

	value, hasValue, path, _ := s.inc.snapshot()
	return Result{
		BestValue:    value,
		HasValue:     hasValue,
		IsExact:      exact,
		BestSolution: path,
	}
}

// runSequential is the single-worker branch-and-bound main loop.
func (s *Solver[S]) runSequential(ctx context.Context) bool {
	builder := newDDBuilder[S](s.problem, s.relax, s.ranking, s.width)
	for {
		if ctx.Err() != nil || s.cutoff.Expired() {
			return false
		}
		sub, ok := s.popFringe()
		if !ok {
			return true
		}

		tok := s.beginWork(sub.UB)
		cutset := s.processSubproblem(builder, sub)
		s.endWork(tok)

		if len(cutset) > 0 {
			s.pushFringe(cutset)
		}
	}
}

// runParallel runs k peer workers sharing the fringe, incumbent, cutoff,
// and a busy counter guarded by the same lock that protects the fringe,
// with idle workers sleeping on a condition variable until a push or a
// shutdown broadcast wakes them.
func (s *Solver[S]) runParallel(ctx context.Context) bool {
	cond := sync.NewCond(&s.fringeMu)
	busy := 0
	shutdown := false
	exact := true

	var wg sync.WaitGroup
	wg.Add(s.cfg.workers)
	for i := 0; i < s.cfg.workers; i++ {
		go func() {
			defer wg.Done()
			builder := newDDBuilder[S](s.problem, s.relax, s.ranking, s.width)
		loop:
			for {
				s.fringeMu.Lock()
				for {
					if shutdown {
						s.fringeMu.Unlock()
						return
					}
					if ctx.Err() != nil || s.cutoff.Expired() {
						exact = false
						shutdown = true
						cond.Broadcast()
						s.fringeMu.Unlock()
						return
					}
					sub, ok := s.fringe.Pop()
					if ok {
						busy++
						s.fringeMu.Unlock()

						tok := s.beginWork(sub.UB)
						cutset := s.processSubproblem(builder, sub)
						s.endWork(tok)

						s.fringeMu.Lock()
						busy--
						if len(cutset) > 0 {
							s.fringe.Push(cutset...)
						}
						if busy == 0 && s.fringe.Len() == 0 {
							shutdown = true
						}
						cond.Broadcast()
						s.fringeMu.Unlock()
						continue loop
					}
					if busy == 0 {
						shutdown = true
						cond.Broadcast()
						s.fringeMu.Unlock()
						return
					}
					cond.Wait()
				}
			}
		}()
	}
	wg.Wait()
	return exact
}

// processSubproblem compiles a restricted DD for the subproblem, then a
// relaxed one if the restriction wasn't exact, and returns the relaxed
// DD's exact cutset, if any, for the caller to push.
// The incumbent is updated in place; a nil/empty return means the
// subproblem produced no further work (solved, infeasible, or dominated).
func (s *Solver[S]) processSubproblem(builder *ddBuilder[S], sub Subproblem[S]) []Subproblem[S] {
	if sub.UB <= s.inc.bestValue() {
		return nil
	}
	if s.dom != nil && s.dom.dominated(sub) {
		return nil
	}

	rres := builder.compile(sub, modeRestricted, s.inc.bestValue())
	if rres.feasible {
		if rres.terminalValue > s.inc.bestValue() {
			full := append(append([]Decision{}, sub.Prefix...), rres.bestPath...)
			s.inc.tryUpdate(rres.terminalValue, full, rres.isExact)
		}
		if rres.isExact {
			if s.dom != nil {
				s.dom.record(sub)
			}
			return nil
		}
	} else if rres.isExact {
		// No squash occurred, so the dead end is a genuine DP infeasibility
		// rather than restricted-mode deletion hiding a feasible completion.
		return nil
	}

	lres := builder.compile(sub, modeRelaxed, s.inc.bestValue())
	if !lres.feasible {
		return nil
	}
	if lres.terminalValue <= s.inc.bestValue() {
		return nil
	}
	if lres.isExact {
		full := append(append([]Decision{}, sub.Prefix...), lres.bestPath...)
		s.inc.tryUpdate(lres.terminalValue, full, true)
		return nil
	}

	return lres.cutset
}

func (s *Solver[S]) popFringe() (Subproblem[S], bool) {
	s.fringeMu.Lock()
	defer s.fringeMu.Unlock()
	return s.fringe.Pop()
}

func (s *Solver[S]) pushFringe(items []Subproblem[S]) {
	s.fringeMu.Lock()
	defer s.fringeMu.Unlock()
	s.fringe.Push(items...)
}

func (s *Solver[S]) peekBestUB() (int64, bool) {
	s.fringeMu.Lock()
	defer s.fringeMu.Unlock()
	return s.fringe.PeekBestUB()
}

func (s *Solver[S]) fringeLen() int {
	s.fringeMu.Lock()
	defer s.fringeMu.Unlock()
	return s.fringe.Len()
}

func (s *Solver[S]) beginWork(ub int64) int {
	s.ubMu.Lock()
	defer s.ubMu.Unlock()
	tok := s.nextTok
	s.nextTok++
	s.inFlight[tok] = ub
	return tok
}

func (s *Solver[S]) endWork(tok int) {
	s.ubMu.Lock()
	defer s.ubMu.Unlock()
	delete(s.inFlight, tok)
}

func (s *Solver[S]) maxInFlightUB() (int64, bool) {
	s.ubMu.Lock()
	defer s.ubMu.Unlock()
	best := int64(math.MinInt64)
	found := false
	for _, v := range s.inFlight {
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}

// BestSolution returns the decision sequence reaching the current
// incumbent, if any.
func (s *Solver[S]) BestSolution() ([]Decision, bool) {
	_, hasValue, path, _ := s.inc.snapshot()
	return path, hasValue
}

// BestLowerBound returns the current incumbent value.
func (s *Solver[S]) BestLowerBound() int64 {
	return s.inc.bestValue()
}

// BestUpperBound is the bound used for gap reporting:
// max(peek_best_ub(fringe), max over currently-compiling subproblems of
// their ub).
func (s *Solver[S]) BestUpperBound() int64 {
	best := int64(math.MinInt64)
	found := false
	if peek, ok := s.peekBestUB(); ok {
		best, found = peek, true
	}
	if inFlight, ok := s.maxInFlightUB(); ok && (!found || inFlight > best) {
		best, found = inFlight, true
	}
	if !found {
		return s.inc.bestValue()
	}
	return best
}

// Gap mirrors the original ddo crate's Solver::gap() default, including
// its ub == MaxInt64 || lb == MinInt64 corner case.
func (s *Solver[S]) Gap() float32 {
	ub := s.BestUpperBound()
	lb := s.BestLowerBound()
	if ub == math.MaxInt64 || lb == math.MinInt64 {
		return 1.0
	}
	aub, alb := abs64(ub), abs64(lb)
	u, l := aub, alb
	if alb > aub {
		u, l = alb, aub
	}
	return float32(u-l) / float32(u)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
