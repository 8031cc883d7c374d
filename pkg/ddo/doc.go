// Package ddo implements a branch-and-bound solver for discrete maximization
// problems expressed as layered dynamic programs, driven by compiled
// decision diagrams (DDs).
//
// A caller supplies three capabilities for a problem over a user-defined
// state type S:
//
//   - Problem[S]: the DP transition system (variables, domains, transitions,
//     costs, and the heuristic that picks the next branching variable).
//   - Relaxation[S]: how to over-approximate a set of states into one
//     representative state when a decision diagram's width is exceeded.
//   - StateRanking[S]: a strict weak ordering used to decide which states
//     are "most promising" when a layer must be trimmed.
//
// The Solver compiles a restricted (width-bounded, states deleted on
// overflow) and a relaxed (width-bounded, states merged on overflow) DD for
// each subproblem popped from a priority fringe, using the restricted DD to
// refine a feasible incumbent and the relaxed DD to refine an upper bound
// and to enqueue new subproblems along the DD's exact cutset. Maximize can
// run this loop sequentially or across a pool of worker goroutines sharing
// one fringe and one incumbent.
package ddo
