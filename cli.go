package testmachine

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"testmachine/oracle"
)

// Main runs the machine as a command-line program and exits the
// process. It must be called before anything with side effects: when
// the process was spawned as an isolation child, Main hands control to
// the oracle worker instead of parsing flags.
func (m *TestMachine) Main() {
	if oracle.IsWorker() {
		os.Exit(oracle.Worker(m.newContext, os.Stdin, os.Stdout))
	}
	if err := m.Command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command builds the cobra command exposing the machine's flags.
func (m *TestMachine) Command() *cobra.Command {
	var trialRun bool

	cmd := &cobra.Command{
		Use:           "testmachine",
		Short:         "Search for and minimize failing programs over the registered languages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := m.initLogger(); err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				m.rand.Seed(m.seed)
			}
			// Flags may have toggled isolation or verbosity.
			m.buildOracle()
			m.logger.Debug("configured",
				zap.Int64("seed", m.seed),
				zap.Int("program_length", m.progLength),
				zap.Int("iterations", m.maxAttempts),
				zap.Bool("fork", m.isolated))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = m.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if trialRun {
				return m.TrialRun()
			}
			_, err := m.Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&trialRun, "trial-run", false, "Generate a single example program and exit")
	cmd.Flags().BoolVar(&m.simulation, "simulation", m.simulation, "Don't actually execute any operations")
	cmd.Flags().BoolVar(&m.verbose, "verbose", m.verbose, "Don't suppress errors during test case generation")
	cmd.Flags().BoolVar(&m.isolated, "fork", m.isolated, "Run tests in a subprocess")
	cmd.Flags().IntVarP(&m.progLength, "program-length", "p", m.progLength, "Size of programs to generate")
	cmd.Flags().IntVarP(&m.maxAttempts, "iterations", "i", m.maxAttempts, "Number of iterations to run")
	cmd.Flags().Int64Var(&m.seed, "seed", m.seed, "Seed for the random operation selector")

	return cmd
}

// initLogger replaces the default no-op logger with a real one. A
// logger installed through the Logger option is kept as is.
func (m *TestMachine) initLogger() error {
	if m.loggerSet {
		return nil
	}
	config := zap.NewProductionConfig()
	if m.verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("testmachine: initializing logger: %w", err)
	}
	m.logger = logger
	return nil
}
