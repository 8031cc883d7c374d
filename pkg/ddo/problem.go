package ddo

// Problem is the dynamic-programming transition system supplied by the
// caller. S is the user-defined state type; the engine requires only that
// it be comparable, which gives it value equality and hashing for free
// (used by the engine's layer hash-index) and makes a plain Go
// assignment a correct "clone".
type Problem[S comparable] interface {
	// NbVariables returns n, the number of DP variables.
	NbVariables() int

	// InitialState returns the deterministic initial state.
	InitialState() S

	// InitialValue returns the starting cost g0.
	InitialValue() int64

	// ForEachInDomain calls cb once per decision legal at (v, s).
	ForEachInDomain(v Variable, s S, cb DecisionCallback)

	// Transition computes the successor state reached by applying d to s.
	// Defined exactly when d was produced by ForEachInDomain(d.Variable, s, ...).
	Transition(s S, d Decision) S

	// TransitionCost returns the arc weight of applying d to s.
	TransitionCost(s S, d Decision) int64

	// NextVariable picks the variable the next layer should branch on,
	// given depth and the states present in the current layer, or reports
	// false when no variable remains (the DD should terminate here).
	NextVariable(depth int, currentLayerStates []S) (Variable, bool)
}

// Relaxation supplies the over-approximation the engine needs to keep a
// decision diagram's width bounded by merging, rather than deleting,
// surplus states. states has at least two elements whenever Merge is
// called.
type Relaxation[S comparable] interface {
	// Merge combines states into a single representative that
	// over-approximates all of them: every completion reachable from any
	// state in states must remain reachable (at no lower value) from the
	// merged state, once RelaxEdge has adjusted the incoming arc costs. A
	// relaxation may only widen what's reachable, never narrow it.
	Merge(states []S) S

	// RelaxEdge adjusts the cost of an arc that used to connect src to
	// dst, now redirected to connect src to merged instead, for decision d
	// whose unrelaxed cost was cost. Implementations must return a value
	// >= cost; returning less weakens the relaxation and is a contract
	// violation.
	RelaxEdge(src, dst, merged S, d Decision, cost int64) int64
}

// FastUpperBounder is an optional capability. When a Relaxation implements
// it, the engine tightens the local upper bound of each exact-cutset
// candidate by taking the minimum of the longest-suffix bound and this
// estimate.
type FastUpperBounder[S comparable] interface {
	FastUpperBound(state S, freeVars VarSet) int64
}

func fastUpperBound[S comparable](r Relaxation[S], s S, freeVars VarSet) (int64, bool) {
	if fb, ok := r.(FastUpperBounder[S]); ok {
		return fb.FastUpperBound(s, freeVars), true
	}
	return 0, false
}

// StateRanking is a strict weak ordering over states used to decide which
// nodes in an oversized layer are "most promising" and therefore kept.
// Compare(a, b) > 0 means a is more promising than b.
type StateRanking[S comparable] interface {
	Compare(a, b S) int
}

// Dominance is an optional, additive pruning capability. A subproblem may be discarded without loss if
// some previously recorded subproblem at the same depth dominates it: same
// or better reachable value, and a state the implementation judges "at
// least as good" under a problem-specific partial order. Dominance pruning
// never changes the returned optimum; it only changes how much of the
// search tree is explored.
type Dominance[S comparable] interface {
	// Dominates reports whether state "a" (having reached value "valueA")
	// dominates state "b" (having reached value "valueB"): any completion
	// feasible from b is matched or bettered by some completion from a.
	Dominates(a S, valueA int64, b S, valueB int64) bool
}
