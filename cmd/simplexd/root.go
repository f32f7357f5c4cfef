package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/optgrid/simplex-core/internal/objective"
	"github.com/optgrid/simplex-core/internal/solver"
	"github.com/optgrid/simplex-core/pkg/config"
	"github.com/optgrid/simplex-core/pkg/logger"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "simplexd",
	Short: "Distributed Nelder-Mead simplex minimizer",
	Long: `simplexd minimizes a black-box objective with the parallel
Nelder-Mead simplex method: every worker holds a full replica of the
simplex, transforms its own vertex each round, and the group merges the
results so all replicas stay identical.

Workers can run inside one process (run) or as separate processes
coordinated over gRPC (join).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetDefault(logger.New(logLevel, os.Stdout))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// loadConfig reads the configuration file and lets the config file's
// log level take over unless the flag was set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
		logger.SetDefault(logger.New(cfg.LogLevel, os.Stdout))
	}
	return cfg, nil
}

// solverOptions translates the solver section into functional options.
func solverOptions(cfg *config.Config) ([]solver.Option, error) {
	var opts []solver.Option
	if len(cfg.Solver.Guess) > 0 {
		opts = append(opts, solver.WithGuess(cfg.Solver.Guess))
	}
	if cfg.Solver.Step > 0 {
		opts = append(opts, solver.WithStep(cfg.Solver.Step))
	}
	if c := cfg.Solver.Coefficients; c != nil {
		opts = append(opts, solver.WithCoefficients(solver.Coefficients{
			Rho:   c.Rho,
			Xi:    c.Xi,
			Gamma: c.Gamma,
			Sigma: c.Sigma,
		}))
	}
	if tc := cfg.Solver.Tolerance; tc != nil {
		tol, err := solver.NewTolerance(tc.Policy, tc.Value)
		if err != nil {
			return nil, err
		}
		opts = append(opts, solver.WithTolerance(tol))
	}
	return opts, nil
}

func buildObjective(cfg *config.Config) (objective.Function, error) {
	obj, err := objective.New(cfg.Objective.Name, cfg.Objective.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to build objective: %w", err)
	}
	return obj, nil
}
