package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/optgrid/simplex-core/internal/solver"
	"github.com/optgrid/simplex-core/internal/transport/local"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole worker group inside this process",
	Long: `Starts every configured worker as a goroutine sharing an
in-process transport and minimizes the configured objective.`,
	RunE: runLocal,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runLocal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	obj, err := buildObjective(cfg)
	if err != nil {
		return err
	}
	opts, err := solverOptions(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, err := local.NewGroup(cfg.Group.Workers)
	if err != nil {
		return err
	}

	slog.Info("starting in-process group",
		"workers", cfg.Group.Workers,
		"dimension", cfg.Solver.Dimension,
		"objective", obj.Name())

	solvers := make([]*solver.Solver, cfg.Group.Workers)
	var eg errgroup.Group
	for rank := 0; rank < cfg.Group.Workers; rank++ {
		rank := rank
		tr, err := group.Member(rank)
		if err != nil {
			return err
		}
		s, err := solver.New(obj, tr, cfg.Solver.Dimension, opts...)
		if err != nil {
			return err
		}
		solvers[rank] = s
		eg.Go(func() error {
			_, err := s.Solve(ctx, cfg.Solver.MaxRounds)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	reportResult(solvers[0])
	return nil
}

// reportResult prints the outcome of a finished solve.
func reportResult(s *solver.Solver) {
	stats := s.Stats()
	slog.Info("minimization finished",
		"best_value", stats.Best,
		"best_point", s.Best(),
		"rounds", stats.Rounds,
		"evaluations", stats.GroupEvaluations)
}
