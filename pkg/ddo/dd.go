package ddo

import (
	"fmt"
	"math"
	"sort"
)

// ddMode selects which kind of DD a builder compiles: restricted (deletes
// surplus nodes, gives a feasible lower bound) or relaxed (merges surplus
// nodes, gives an upper bound plus an exact cutset).
type ddMode int

const (
	modeRestricted ddMode = iota
	modeRelaxed
)

// compileResult is everything a Solver needs out of one compile call.
// isExact still means something when feasible is false: it tells the
// caller whether the dead end is genuine (no squash happened, so the DP
// itself has no legal completion) or an artifact of restricted-mode
// deletion (in which case the relaxed compile still needs to run).
type compileResult[S comparable] struct {
	feasible      bool
	terminalValue int64
	isExact       bool
	bestPath      []Decision // decisions from the compile's root to the best terminal node
	cutset        []Subproblem[S]
}

// ddBuilder compiles one DD at a time, reusing its layer buffers across
// calls so that compilation doesn't allocate per node on the hot path
// beyond what the layer width requires.
type ddBuilder[S comparable] struct {
	problem Problem[S]
	relax   Relaxation[S]
	ranking StateRanking[S]
	width   WidthHeuristic
	nbVars  int

	layers []*ddLayer[S]

	scratchStates []S
	layerVar      []Variable // layerVar[li] = variable branched on going from layer li to li+1
}

func newDDBuilder[S comparable](problem Problem[S], relax Relaxation[S], ranking StateRanking[S], width WidthHeuristic) *ddBuilder[S] {
	return &ddBuilder[S]{
		problem: problem,
		relax:   relax,
		ranking: ranking,
		width:   width,
		nbVars:  problem.NbVariables(),
	}
}

func (b *ddBuilder[S]) layer(li int) *ddLayer[S] {
	for len(b.layers) <= li {
		b.layers = append(b.layers, newDDLayer[S]())
	}
	return b.layers[li]
}

// compile builds one DD rooted at sub, restricted or relaxed depending on
// mode. lb is the current incumbent lower bound, used to size the exact
// cutset's upper bounds against (nodes whose lub <= lb need not be
// enqueued — dominance pruning applies just as well to cutset nodes as to
// fringe pops).
func (b *ddBuilder[S]) compile(sub Subproblem[S], mode ddMode, lb int64) compileResult[S] {
	b.layerVar = b.layerVar[:0]
	root := b.layer(0)
	root.reset()
	root.nodes = append(root.nodes, nodeRecord[S]{state: sub.State, vp: sub.Value, exact: true})
	root.index[sub.State] = 0

	depth := sub.Depth
	li := 0
	sawSquash := false

	for {
		cur := b.layer(li)
		if len(cur.nodes) == 0 {
			return compileResult[S]{feasible: false, isExact: !sawSquash}
		}

		states := cur.states(b.scratchStates)
		b.scratchStates = states
		v, ok := b.problem.NextVariable(depth, states)
		if !ok {
			return b.finish(sub, li, mode, sawSquash, lb)
		}
		b.layerVar = append(b.layerVar, v)

		next := b.layer(li + 1)
		next.reset()
		if mode == modeRelaxed {
			cur.fwd = make([][]fwdArc[S], len(cur.nodes))
		}

		for pslot := range cur.nodes {
			pn := cur.nodes[pslot]
			b.problem.ForEachInDomain(v, pn.state, func(d Decision) {
				ns := b.problem.Transition(pn.state, d)
				cost := b.problem.TransitionCost(pn.state, d)
				candidateVp := pn.vp + cost

				if mode == modeRelaxed {
					cur.fwd[pslot] = append(cur.fwd[pslot], fwdArc[S]{target: ns, cost: cost, decision: d})
				}

				if exSlot, found := next.index[ns]; found {
					ex := &next.nodes[exSlot]
					if candidateVp > ex.vp || (candidateVp == ex.vp && pslot < ex.parent.slot) {
						ex.vp = candidateVp
						ex.hasParent = true
						ex.parent = nodeID{layer: li, slot: pslot}
						ex.decision = d
						ex.arcCost = cost
						ex.exact = pn.exact
					}
					return
				}
				next.index[ns] = len(next.nodes)
				next.nodes = append(next.nodes, nodeRecord[S]{
					state:     ns,
					vp:        candidateVp,
					hasParent: true,
					parent:    nodeID{layer: li, slot: pslot},
					decision:  d,
					arcCost:   cost,
					exact:     pn.exact,
				})
			})
		}

		if len(next.nodes) == 0 {
			return compileResult[S]{feasible: false, isExact: !sawSquash}
		}

		w := b.width.Width(depth + 1)
		if w < 1 {
			violate(ErrInvalidWidth, fmt.Sprintf("Width(%d) returned %d", depth+1, w))
		}
		if len(next.nodes) > w {
			sawSquash = true
			if mode == modeRestricted {
				b.squashRestricted(next, w)
			} else {
				b.squashRelaxed(next, w)
			}
		}

		depth++
		li++
	}
}

func (b *ddBuilder[S]) squashRestricted(l *ddLayer[S], width int) {
	sort.Slice(l.nodes, func(i, j int) bool { return b.morePromising(l.nodes[i], l.nodes[j]) })
	l.nodes = l.nodes[:width]
	for k := range l.index {
		delete(l.index, k)
	}
	for i, n := range l.nodes {
		l.index[n.state] = i
	}
}

func (b *ddBuilder[S]) morePromising(a, b2 nodeRecord[S]) bool {
	if b.ranking != nil {
		if c := b.ranking.Compare(a.state, b2.state); c != 0 {
			return c > 0
		}
	}
	return a.vp > b2.vp
}

// squashRelaxed keeps the width-1 most promising nodes and merges the
// remainder into a single representative via Relaxation.Merge. index is
// rebuilt so every state that ever occupied this layer — survivor or
// merged-away — resolves to its final slot; that lets computeDown's
// bottom-up local-bounds pass follow forward arcs recorded before this
// squash ran.
func (b *ddBuilder[S]) squashRelaxed(l *ddLayer[S], width int) {
	sort.Slice(l.nodes, func(i, j int) bool { return b.morePromising(l.nodes[i], l.nodes[j]) })
	keep := l.nodes[:width-1]
	merge := l.nodes[width-1:]

	states := make([]S, len(merge))
	mergedAway := make(map[S]bool, len(merge))
	for i, n := range merge {
		states[i] = n.state
		mergedAway[n.state] = true
	}
	if len(states) < 2 {
		violate(ErrEmptyMerge, "squash produced fewer than 2 states to merge")
	}
	m := b.relax.Merge(states)

	// Every forward arc recorded against one of the merged-away states
	// must be re-costed through RelaxEdge before computeDown's
	// longest-suffix pass walks it: once this layer's index redirects
	// that target to m, the arc effectively points at m, and feeding
	// computeDown the true (smaller) pre-merge cost would understate the
	// node's local upper bound.
	var predLayer *ddLayer[S]
	if merge[0].hasParent {
		predLayer = b.layers[merge[0].parent.layer]
		for pslot, arcs := range predLayer.fwd {
			srcState := predLayer.nodes[pslot].state
			for i := range arcs {
				if !mergedAway[arcs[i].target] {
					continue
				}
				relaxed := b.relax.RelaxEdge(srcState, arcs[i].target, m, arcs[i].decision, arcs[i].cost)
				if relaxed < arcs[i].cost {
					violate(ErrRelaxationWeakened, fmt.Sprintf("RelaxEdge returned %d for decision %s, true cost was %d", relaxed, arcs[i].decision, arcs[i].cost))
				}
				arcs[i].cost = relaxed
			}
		}
	}

	bestIdx := -1
	var bestVp int64
	var bestParent nodeID
	var bestHasParent bool
	var bestDecision Decision
	var bestArcCost int64
	for i, n := range merge {
		relaxedCost := n.arcCost
		if predLayer != nil {
			for _, arc := range predLayer.fwd[n.parent.slot] {
				if arc.target == n.state && arc.decision == n.decision {
					relaxedCost = arc.cost
					break
				}
			}
		}
		adjVp := n.vp - n.arcCost + relaxedCost
		if bestIdx == -1 || adjVp > bestVp || (adjVp == bestVp && n.parent.slot < merge[bestIdx].parent.slot) {
			bestIdx = i
			bestVp = adjVp
			bestParent = n.parent
			bestHasParent = n.hasParent
			bestDecision = n.decision
			bestArcCost = relaxedCost
		}
	}

	merged := nodeRecord[S]{
		state:     m,
		vp:        bestVp,
		hasParent: bestHasParent,
		parent:    bestParent,
		decision:  bestDecision,
		arcCost:   bestArcCost,
		exact:     false,
		relaxed:   true,
	}

	survivors := append([]nodeRecord[S]{}, keep...)
	mergedSlot := -1
	for i := range survivors {
		if survivors[i].state == m {
			survivors[i].exact = false
			survivors[i].relaxed = true
			if merged.vp > survivors[i].vp {
				survivors[i] = merged
			}
			mergedSlot = i
			break
		}
	}
	if mergedSlot == -1 {
		mergedSlot = len(survivors)
		survivors = append(survivors, merged)
	}

	for k := range l.index {
		delete(l.index, k)
	}
	for i, n := range survivors {
		l.index[n.state] = i
	}
	// Every pre-merge state not equal to m redirects to the merged slot so
	// forward arcs recorded against it still resolve.
	for _, n := range merge {
		if n.state != m {
			l.index[n.state] = mergedSlot
		}
	}
	l.nodes = survivors
}

// finish is called once NextVariable reports no remaining variable: li is
// the terminal layer, whose best node (by vp) determines the DD's value.
func (b *ddBuilder[S]) finish(sub Subproblem[S], li int, mode ddMode, sawSquash bool, lb int64) compileResult[S] {
	term := b.layers[li]
	bestSlot, bestVp := 0, term.nodes[0].vp
	for i := 1; i < len(term.nodes); i++ {
		if term.nodes[i].vp > bestVp {
			bestVp = term.nodes[i].vp
			bestSlot = i
		}
	}
	isExact := !sawSquash
	res := compileResult[S]{
		feasible:      true,
		terminalValue: bestVp,
		isExact:       isExact,
	}
	if mode == modeRestricted || isExact {
		res.bestPath = b.pathTo(nodeID{layer: li, slot: bestSlot})
	}
	if mode == modeRelaxed && !isExact {
		down := b.computeDown(li)
		res.cutset = b.exactCutset(sub, li, down, lb)
	}
	return res
}

// pathTo reconstructs the sequence of decisions from this compile's root
// down to n, in root-to-n order.
func (b *ddBuilder[S]) pathTo(n nodeID) []Decision {
	var rev []Decision
	cur := n
	for {
		rec := &b.layers[cur.layer].nodes[cur.slot]
		if !rec.hasParent {
			break
		}
		rev = append(rev, rec.decision)
		cur = rec.parent
	}
	path := make([]Decision, len(rev))
	for i, d := range rev {
		path[len(rev)-1-i] = d
	}
	return path
}

const negInf = math.MinInt64 / 2

// computeDown runs the bottom-up longest-suffix local-bounds pass:
// down[n] is the longest path from n to the terminal layer through arcs
// still present in the compiled diagram, independent of which arc
// happened to win vp's duplicate-resolution tie.
func (b *ddBuilder[S]) computeDown(terminalLi int) [][]int64 {
	down := make([][]int64, terminalLi+1)
	down[terminalLi] = make([]int64, len(b.layers[terminalLi].nodes))

	for li := terminalLi - 1; li >= 0; li-- {
		cur := b.layers[li]
		next := b.layers[li+1]
		d := make([]int64, len(cur.nodes))
		for slot := range cur.nodes {
			best := int64(negInf)
			for _, arc := range cur.fwd[slot] {
				childSlot, ok := next.index[arc.target]
				if !ok {
					continue
				}
				v := arc.cost + down[li+1][childSlot]
				if v > best {
					best = v
				}
			}
			d[slot] = best
		}
		down[li] = d
	}
	return down
}

// exactCutset implements the last-exact-layer cutset: a node belongs to
// the cutset if it is exact and every forward arc of it leads to a
// relaxed node, or if it is exact and sits on the last layer where every
// node is still exact.
func (b *ddBuilder[S]) exactCutset(sub Subproblem[S], terminalLi int, down [][]int64, lb int64) []Subproblem[S] {
	lastAllExact := -1
	for li := 0; li < terminalLi; li++ {
		allExact := true
		for _, n := range b.layers[li].nodes {
			if !n.exact {
				allExact = false
				break
			}
		}
		if allExact {
			lastAllExact = li
		}
	}

	seen := make(map[nodeID]bool)
	var out []Subproblem[S]
	add := func(li, slot int) {
		id := nodeID{layer: li, slot: slot}
		if seen[id] {
			return
		}
		n := b.layers[li].nodes[slot]
		if !n.exact {
			return
		}
		lub := n.vp + down[li][slot]
		if fb, ok := fastUpperBound[S](b.relax, n.state, b.freeVars(sub.Prefix, li)); ok {
			bound := n.vp + fb
			if bound < lub {
				lub = bound
			}
		}
		if lub <= lb {
			return
		}
		seen[id] = true
		out = append(out, Subproblem[S]{
			State:  n.state,
			Value:  n.vp,
			UB:     lub,
			Prefix: append(append([]Decision{}, sub.Prefix...), b.pathTo(id)...),
			Depth:  sub.Depth + li,
		})
	}

	for li := 0; li < terminalLi; li++ {
		cur := b.layers[li]
		for slot, n := range cur.nodes {
			if !n.exact {
				continue
			}
			allRelaxedChildren := true
			sawChild := false
			for _, arc := range cur.fwd[slot] {
				childSlot, ok := b.layers[li+1].index[arc.target]
				if !ok {
					continue
				}
				sawChild = true
				if !b.layers[li+1].nodes[childSlot].relaxed {
					allRelaxedChildren = false
					break
				}
			}
			if sawChild && allRelaxedChildren {
				add(li, slot)
			}
		}
	}
	if lastAllExact >= 0 {
		for slot := range b.layers[lastAllExact].nodes {
			add(lastAllExact, slot)
		}
	}
	return out
}

// freeVars reports the variables not yet decided at layer li, counting
// both the decisions fixed before this subproblem was popped (prefix)
// and those taken within the compile currently in progress (every node
// in a layer shares the same decided-variable set, since one
// NextVariable call governs the whole layer).
func (b *ddBuilder[S]) freeVars(prefix []Decision, li int) VarSet {
	vs := AllVars(b.nbVars)
	for _, d := range prefix {
		vs.Remove(d.Variable)
	}
	for i := 0; i < li; i++ {
		vs.Remove(b.layerVar[i])
	}
	return vs
}
