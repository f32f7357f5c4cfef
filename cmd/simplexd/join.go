package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/optgrid/simplex-core/internal/solver"
	"github.com/optgrid/simplex-core/internal/transport/grpcnet"
)

var (
	joinRank       int
	collectTimeout time.Duration
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a distributed worker group as one rank",
	Long: `Runs a single worker of a multi-process group. Rank 0 also
hosts the coordinator that serves the collective operations; every rank
dials it at group.coordinator from the configuration.

All ranks must share the same configuration file.`,
	RunE: joinGroup,
}

func init() {
	joinCmd.Flags().IntVar(&joinRank, "rank", -1, "Rank of this worker (0-based, required)")
	joinCmd.Flags().DurationVar(&collectTimeout, "collect-timeout", 0, "Per-operation timeout while peers catch up (0 = wait forever)")
	joinCmd.MarkFlagRequired("rank")
	rootCmd.AddCommand(joinCmd)
}

func joinGroup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Group.Coordinator == "" {
		return fmt.Errorf("group.coordinator is required for a distributed run")
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

	if joinRank == 0 {
		srv, err := serveCoordinator(cfg.Group.Workers, cfg.Group.Listen)
		if err != nil {
			return err
		}
		defer srv.GracefulStop()
	}

	var dialOpts []grpcnet.Option
	if collectTimeout > 0 {
		dialOpts = append(dialOpts, grpcnet.WithCollectTimeout(collectTimeout))
	}
	tr, err := grpcnet.Dial(ctx, cfg.Group.Coordinator, joinRank, cfg.Group.Workers, dialOpts...)
	if err != nil {
		return fmt.Errorf("failed to join group: %w", err)
	}
	defer tr.Close()

	slog.Info("joined worker group",
		"rank", joinRank,
		"workers", cfg.Group.Workers,
		"coordinator", cfg.Group.Coordinator)

	s, err := solver.New(obj, tr, cfg.Solver.Dimension, opts...)
	if err != nil {
		return err
	}
	if _, err := s.Solve(ctx, cfg.Solver.MaxRounds); err != nil {
		return err
	}

	if joinRank == 0 {
		reportResult(s)
	}
	return nil
}

// serveCoordinator starts the collective-operation server that the
// whole group dials.
func serveCoordinator(workers int, listen string) (*grpc.Server, error) {
	if listen == "" {
		return nil, fmt.Errorf("group.listen is required on rank 0")
	}
	coord, err := grpcnet.NewCoordinator(workers)
	if err != nil {
		return nil, err
	}
	lis, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", listen, err)
	}

	srv := grpc.NewServer()
	coord.Register(srv)
	go func() {
		if err := srv.Serve(lis); err != nil {
			slog.Error("coordinator server stopped", "error", err)
		}
	}()

	slog.Info("coordinator listening", "address", lis.Addr().String(), "workers", workers)
	return srv, nil
}
