package ddo

import "container/heap"

// Subproblem is a unit of open work popped from the fringe: the state it
// starts from, the path-value-so-far reaching that state, the best upper
// bound known for completions of this subproblem at enqueue time, the
// sequence of decisions taken from the true root to reach it, and its
// depth.
type Subproblem[S comparable] struct {
	State  S
	Value  int64
	UB     int64
	Prefix []Decision
	Depth  int
}

// Fringe is a priority queue of open subproblems. The default ordering is
// best-first on UB (descending), with a deterministic tie-break so
// sequential runs are reproducible. Implementations are not
// required to be safe for concurrent use; the parallel controller guards
// every Fringe method call with its own lock.
type Fringe[S comparable] interface {
	Push(items ...Subproblem[S])
	Pop() (Subproblem[S], bool)
	Len() int
	Clear()
	// PeekBestUB returns the UB of the best subproblem currently queued,
	// used to compute the global upper bound across all open work.
	PeekBestUB() (int64, bool)
}

// pqueue is the container/heap-compatible backing store for SimpleFringe.
// Ordering: UB descending, then Depth ascending, then (if a ranking was
// supplied) state rank descending.
type pqueue[S comparable] struct {
	items   []Subproblem[S]
	ranking StateRanking[S]
}

func (q *pqueue[S]) Len() int { return len(q.items) }

func (q *pqueue[S]) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.UB != b.UB {
		return a.UB > b.UB
	}
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	if q.ranking != nil {
		return q.ranking.Compare(a.State, b.State) > 0
	}
	return false
}

func (q *pqueue[S]) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *pqueue[S]) Push(x any) { q.items = append(q.items, x.(Subproblem[S])) }

func (q *pqueue[S]) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items = q.items[:n-1]
	return item
}

// SimpleFringe is the default Fringe: a binary heap ordered best-first on
// UB with the tie-break described on pqueue.
type SimpleFringe[S comparable] struct {
	pq pqueue[S]
}

// NewSimpleFringe builds a Fringe that breaks UB ties using ranking's
// state-rank (descending). ranking may be nil, in which case only UB and
// depth participate in the ordering.
func NewSimpleFringe[S comparable](ranking StateRanking[S]) *SimpleFringe[S] {
	return &SimpleFringe[S]{pq: pqueue[S]{ranking: ranking}}
}

// Push implements Fringe.
func (f *SimpleFringe[S]) Push(items ...Subproblem[S]) {
	for _, it := range items {
		heap.Push(&f.pq, it)
	}
}

// Pop implements Fringe.
func (f *SimpleFringe[S]) Pop() (Subproblem[S], bool) {
	if f.pq.Len() == 0 {
		return Subproblem[S]{}, false
	}
	return heap.Pop(&f.pq).(Subproblem[S]), true
}

// Len implements Fringe.
func (f *SimpleFringe[S]) Len() int { return f.pq.Len() }

// Clear implements Fringe.
func (f *SimpleFringe[S]) Clear() { f.pq.items = nil }

// PeekBestUB implements Fringe.
func (f *SimpleFringe[S]) PeekBestUB() (int64, bool) {
	if f.pq.Len() == 0 {
		return 0, false
	}
	return f.pq.items[0].UB, true
}
