package ddo_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dpbranch/ddo/examples/knapsack"
	"github.com/dpbranch/ddo/examples/max2sat"
	"github.com/dpbranch/ddo/examples/misp"
	"github.com/dpbranch/ddo/pkg/ddo"
)

func TestKnapsack(t *testing.T) {
	t.Run("A: loose capacity", func(t *testing.T) {
		pb := knapsack.New(50, []int64{60, 100, 120}, []int64{10, 20, 30})
		res := solveKnapsack(t, pb)
		if !res.HasValue || res.BestValue != 220 {
			t.Fatalf("best value = %d (has value %v), want 220", res.BestValue, res.HasValue)
		}
		if !res.IsExact {
			t.Errorf("expected an exact proof")
		}
	})

	t.Run("B: tight capacity", func(t *testing.T) {
		pb := knapsack.New(5, []int64{6, 5, 4}, []int64{3, 2, 2})
		res := solveKnapsack(t, pb)
		if !res.HasValue || res.BestValue != 11 {
			t.Fatalf("best value = %d (has value %v), want 11", res.BestValue, res.HasValue)
		}
	})

	t.Run("C: nothing fits", func(t *testing.T) {
		pb := knapsack.New(1, []int64{10}, []int64{2})
		res := solveKnapsack(t, pb)
		if !res.HasValue || res.BestValue != 0 {
			t.Fatalf("best value = %d (has value %v), want 0", res.BestValue, res.HasValue)
		}
		if !res.IsExact {
			t.Errorf("expected an exact proof")
		}
	})
}

func solveKnapsack(t *testing.T, pb *knapsack.Knapsack) ddo.Result {
	t.Helper()
	relax := knapsack.Relax{Problem: pb}
	s := ddo.New[knapsack.State](pb, relax, knapsack.Ranking{}, nil, nil, nil)
	return s.Maximize(context.Background())
}

func TestMispC5(t *testing.T) {
	weight := []int64{1, 1, 1, 1, 1}
	edges := [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 0}}
	pb := misp.New(5, weight, edges)
	relax := misp.Relax{Problem: pb}
	s := ddo.New[ddo.VarSet](pb, relax, misp.Ranking{}, nil, nil, nil)

	res := s.Maximize(context.Background())
	if !res.HasValue || res.BestValue != 2 {
		t.Fatalf("best value = %d (has value %v), want 2", res.BestValue, res.HasValue)
	}
	if !res.IsExact {
		t.Errorf("expected an exact proof")
	}
}

func TestMax2SatTrivial(t *testing.T) {
	pb := max2sat.Trivial()
	relax := max2sat.Relax{Problem: pb}
	ranking := max2sat.Ranking{Problem: pb}
	s := ddo.New[max2sat.State](pb, relax, ranking, nil, nil, nil)

	res := s.Maximize(context.Background())
	if !res.HasValue || res.BestValue != 3 {
		t.Fatalf("best value = %d (has value %v), want 3", res.BestValue, res.HasValue)
	}
	if !res.IsExact {
		t.Errorf("expected an exact proof")
	}
}

func TestTimeBudgetCutoff(t *testing.T) {
	pb := knapsack.New(50, []int64{60, 100, 120}, []int64{10, 20, 30})
	relax := knapsack.Relax{Problem: pb}
	cutoff := ddo.NewTimeBudget(0)
	s := ddo.New[knapsack.State](pb, relax, knapsack.Ranking{}, nil, cutoff, nil)

	res := s.Maximize(context.Background())
	if res.IsExact {
		t.Errorf("a zero time budget must not yield an exact proof")
	}
	if res.HasValue && res.BestValue > 220 {
		t.Errorf("best value %d exceeds the known optimum 220", res.BestValue)
	}
	if ub := s.BestUpperBound(); res.HasValue && ub < res.BestValue {
		t.Errorf("upper bound %d is below the reported lower bound %d", ub, res.BestValue)
	}
}

func TestMaximizeRespectsContextCancellation(t *testing.T) {
	pb := knapsack.New(50, []int64{60, 100, 120}, []int64{10, 20, 30})
	relax := knapsack.Relax{Problem: pb}
	s := ddo.New[knapsack.State](pb, relax, knapsack.Ranking{}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := s.Maximize(ctx)
	if res.IsExact {
		t.Errorf("a cancelled context must not yield an exact proof")
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	pb := knapsack.New(50, []int64{60, 100, 120}, []int64{10, 20, 30})
	relax := knapsack.Relax{Problem: pb}
	s := ddo.New[knapsack.State](pb, relax, knapsack.Ranking{}, nil, nil, nil,
		ddo.WithWorkers[knapsack.State](4))

	res := s.Maximize(context.Background())
	if !res.HasValue || res.BestValue != 220 || !res.IsExact {
		t.Fatalf("got (value=%d, hasValue=%v, exact=%v), want (220, true, true)", res.BestValue, res.HasValue, res.IsExact)
	}
}

func TestSetPrimalSeedsIncumbent(t *testing.T) {
	pb := knapsack.New(5, []int64{6, 5, 4}, []int64{3, 2, 2})
	relax := knapsack.Relax{Problem: pb}
	s := ddo.New[knapsack.State](pb, relax, knapsack.Ranking{}, nil, nil, nil)
	s.SetPrimal(11, nil)

	if lb := s.BestLowerBound(); lb != 11 {
		t.Fatalf("lower bound after SetPrimal = %d, want 11", lb)
	}
	res := s.Maximize(context.Background())
	if res.BestValue != 11 {
		t.Fatalf("best value = %d, want 11", res.BestValue)
	}
}

func TestFixedWidthStaysSound(t *testing.T) {
	pb := knapsack.New(50, []int64{60, 100, 120}, []int64{10, 20, 30})
	relax := knapsack.Relax{Problem: pb}
	s := ddo.New[knapsack.State](pb, relax, knapsack.Ranking{}, ddo.FixedWidth(1), nil, nil)

	res := s.Maximize(context.Background())
	if !res.HasValue {
		t.Fatalf("expected a feasible value even at width 1")
	}
	if res.BestValue > 220 {
		t.Errorf("best value %d exceeds the known optimum 220", res.BestValue)
	}
}

func TestGapNarrowsToZeroOnExactProof(t *testing.T) {
	pb := knapsack.New(50, []int64{60, 100, 120}, []int64{10, 20, 30})
	relax := knapsack.Relax{Problem: pb}
	s := ddo.New[knapsack.State](pb, relax, knapsack.Ranking{}, nil, nil, nil)
	s.Maximize(context.Background())

	if gap := s.Gap(); gap != 0 {
		t.Errorf("gap after an exact proof = %v, want 0", gap)
	}
}

func TestDominancePrunesWithoutChangingOptimum(t *testing.T) {
	pb := knapsack.New(50, []int64{60, 100, 120}, []int64{10, 20, 30})
	relax := knapsack.Relax{Problem: pb}
	s := ddo.New[knapsack.State](pb, relax, knapsack.Ranking{}, nil, nil, nil,
		ddo.WithDominance[knapsack.State](knapsack.Dominance{}))

	res := s.Maximize(context.Background())
	if !res.HasValue || res.BestValue != 220 || !res.IsExact {
		t.Fatalf("got (value=%d, hasValue=%v, exact=%v), want (220, true, true)", res.BestValue, res.HasValue, res.IsExact)
	}
}

func TestWithStatsIntervalAndLoggerDoesNotBlockCompletion(t *testing.T) {
	pb := knapsack.New(5, []int64{6, 5, 4}, []int64{3, 2, 2})
	relax := knapsack.Relax{Problem: pb}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := ddo.New[knapsack.State](pb, relax, knapsack.Ranking{}, nil, nil, nil,
		ddo.WithLogger[knapsack.State](logger),
		ddo.WithStatsInterval[knapsack.State](time.Millisecond))

	done := make(chan ddo.Result, 1)
	go func() { done <- s.Maximize(context.Background()) }()

	select {
	case res := <-done:
		if res.BestValue != 11 {
			t.Fatalf("best value = %d, want 11", res.BestValue)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Maximize did not return in time")
	}
}
