// Command ddo runs the solver against the example problems bundled with
// this module, reporting the run the way the original crate's example
// binaries do: duration, objective, whether it is proven exact, gap and,
// on request, the decision sequence reached.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dpbranch/ddo/examples/knapsack"
	"github.com/dpbranch/ddo/examples/max2sat"
	"github.com/dpbranch/ddo/examples/mcp"
	"github.com/dpbranch/ddo/examples/misp"
	"github.com/dpbranch/ddo/pkg/ddo"
)

type options struct {
	width        int
	workers      int
	timeBudget   time.Duration
	debug        bool
	showSolution bool
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:          "ddo",
		Short:        "Solves bundled example problems with the branch-and-bound DD solver",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().IntVar(&o.width, "width", 0, "fixed max DD width per layer, 0 uses the default policy")
	cmd.PersistentFlags().IntVar(&o.workers, "workers", 1, "number of peer solver workers")
	cmd.PersistentFlags().DurationVar(&o.timeBudget, "timeout", 0, "abort the proof of optimality after this long, 0 disables the cutoff")
	cmd.PersistentFlags().BoolVar(&o.debug, "debug", false, "use debug log level and periodic progress reporting")
	cmd.PersistentFlags().BoolVar(&o.showSolution, "show-solution", false, "print the decision sequence reaching the best known value")

	cmd.AddCommand(newKnapsackCmd(o), newMispCmd(o), newMax2SatCmd(o), newMcpCmd(o))
	return cmd
}

func (o *options) logger() *logrus.Logger {
	l := logrus.New()
	if o.debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.WarnLevel)
	}
	return l
}

func (o *options) cutoff() ddo.Cutoff {
	if o.timeBudget <= 0 {
		return ddo.NoCutoff{}
	}
	return ddo.NewTimeBudget(o.timeBudget)
}

func (o *options) widthFor(nbVars int) ddo.WidthHeuristic {
	if o.width > 0 {
		return ddo.FixedWidth(o.width)
	}
	return ddo.NbUnassignedWidth(nbVars)
}

func report(cmd *cobra.Command, start time.Time, res ddo.Result, gap float32, o *options) {
	fmt.Fprintf(cmd.OutOrStdout(), "Duration:   %s\n", time.Since(start))
	fmt.Fprintf(cmd.OutOrStdout(), "Has value:  %v\n", res.HasValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Objective:  %d\n", res.BestValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Is exact:   %v\n", res.IsExact)
	fmt.Fprintf(cmd.OutOrStdout(), "Gap:        %.4f\n", gap)
	if o.showSolution {
		fmt.Fprintf(cmd.OutOrStdout(), "Solution:   %v\n", res.BestSolution)
	}
}

func newKnapsackCmd(o *options) *cobra.Command {
	var capacity int64
	var profit, weight []int64
	cmd := &cobra.Command{
		Use:   "knapsack",
		Short: "Solves a 0/1 knapsack instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(profit) != len(weight) {
				return fmt.Errorf("ddo: --profit and --weight must have the same length")
			}
			if len(profit) == 0 {
				capacity, profit, weight = 10, []int64{6, 5, 4, 3}, []int64{5, 4, 3, 2}
			}
			pb := knapsack.New(capacity, profit, weight)
			relax := knapsack.Relax{Problem: pb}
			ranking := knapsack.Ranking{}
			logger := o.logger()

			s := ddo.New[knapsack.State](pb, relax, ranking, o.widthFor(pb.NbVariables()), o.cutoff(), nil,
				ddo.WithWorkers[knapsack.State](o.workers),
				ddo.WithLogger[knapsack.State](logger),
				ddo.WithDominance[knapsack.State](knapsack.Dominance{}),
			)

			start := time.Now()
			res := s.Maximize(context.Background())
			report(cmd, start, res, s.Gap(), o)
			return nil
		},
	}
	cmd.Flags().Int64Var(&capacity, "capacity", 0, "knapsack capacity")
	cmd.Flags().Int64SliceVar(&profit, "profit", nil, "per-item profit")
	cmd.Flags().Int64SliceVar(&weight, "weight", nil, "per-item weight")
	return cmd
}

func newMispCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "misp",
		Short: "Solves the 5-cycle maximum weighted independent set instance from the test suite",
		RunE: func(cmd *cobra.Command, args []string) error {
			weight := []int64{1, 1, 1, 1, 1}
			edges := [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 0}}
			pb := misp.New(5, weight, edges)
			relax := misp.Relax{Problem: pb}
			ranking := misp.Ranking{}
			logger := o.logger()

			s := ddo.New[ddo.VarSet](pb, relax, ranking, o.widthFor(pb.NbVariables()), o.cutoff(), nil,
				ddo.WithWorkers[ddo.VarSet](o.workers),
				ddo.WithLogger[ddo.VarSet](logger),
			)

			start := time.Now()
			res := s.Maximize(context.Background())
			report(cmd, start, res, s.Gap(), o)
			return nil
		},
	}
	return cmd
}

func newMax2SatCmd(o *options) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "max2sat",
		Short: "Solves a weighted MAX-2-SAT instance, or the trivial built-in one without --instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			var pb *max2sat.Max2Sat
			if path == "" {
				pb = max2sat.Trivial()
			} else {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				pb, err = max2sat.ReadInstance(f)
				if err != nil {
					return err
				}
			}
			relax := max2sat.Relax{Problem: pb}
			ranking := max2sat.Ranking{Problem: pb}
			logger := o.logger()

			s := ddo.New[max2sat.State](pb, relax, ranking, o.widthFor(pb.NbVariables()), o.cutoff(), nil,
				ddo.WithWorkers[max2sat.State](o.workers),
				ddo.WithLogger[max2sat.State](logger),
			)

			start := time.Now()
			res := s.Maximize(context.Background())
			report(cmd, start, res, s.Gap(), o)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "instance", "", "path to a weighted clause instance file")
	return cmd
}

func newMcpCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Solves a small built-in maximum cut instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := [][]int64{
				{0, 2, -1, 0, 0},
				{2, 0, 3, -2, 0},
				{-1, 3, 0, 1, 4},
				{0, -2, 1, 0, -3},
				{0, 0, 4, -3, 0},
			}
			pb := mcp.New(w)
			relax := mcp.Relax{Problem: pb}
			ranking := mcp.Ranking{Problem: pb}
			logger := o.logger()

			s := ddo.New[mcp.State](pb, relax, ranking, o.widthFor(pb.NbVariables()), o.cutoff(), nil,
				ddo.WithWorkers[mcp.State](o.workers),
				ddo.WithLogger[mcp.State](logger),
			)

			start := time.Now()
			res := s.Maximize(context.Background())
			report(cmd, start, res, s.Gap(), o)
			return nil
		},
	}
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
