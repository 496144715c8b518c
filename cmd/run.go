package cmd

import (
	"context"
	"fmt"

	"github.com/ethpandaops/t8n-repl/pkg/runner"
	"github.com/ethpandaops/t8n-repl/pkg/session"
	"github.com/spf13/cobra"
)

type runFlags struct {
	t8n       string
	evm       string
	hardFork  string
	stateTest string
	workDir   string
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs a state test once with a t8n tool.",
	Long: `Extracts the session from a state test, writes it to the working
directory and executes it once with the given t8n tool. The persisted
configuration supplies defaults but is not modified.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		initCommon()

		return runOnce(cmd.Context(), &runOpts, cmd)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.t8n, "t8ntool", "t", "", "path of the t8n tool")
	runCmd.Flags().StringVarP(&runOpts.evm, "evm", "e", "", "alternate EVM backend for the t8n tool")
	runCmd.Flags().StringVarP(&runOpts.hardFork, "hard-fork", "f", "", "hard fork to execute with")
	runCmd.Flags().StringVarP(&runOpts.stateTest, "state-test", "s", "", "state test to extract the session from")
	runCmd.Flags().StringVarP(&runOpts.workDir, "work-dir", "w", "", "working directory (default is the configured one)")

	for _, name := range []string{"t8ntool", "hard-fork", "state-test"} {
		if err := runCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(runCmd)
}

func runOnce(ctx context.Context, opts *runFlags, cmd *cobra.Command) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	r := runner.New(log, cmd.OutOrStdout(), runner.NewCommandExecutor())
	sess := session.New(log, cfg, session.WithRunner(r))

	if opts.workDir != "" {
		if err := sess.SetWorkDir(opts.workDir); err != nil {
			return err
		}
	}

	sess.SetExecutor(opts.t8n)
	sess.SetHardFork(opts.hardFork)

	if opts.evm != "" {
		sess.SetBackend(opts.evm)
	}

	if err := sess.Config().Validate(); err != nil {
		return err
	}

	name, err := sess.Extract(opts.stateTest)
	if err != nil {
		return err
	}

	log.WithField("test", name).Info("Running state test")

	return sess.Run(ctx)
}
