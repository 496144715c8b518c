// Package runner prepares the working directory for a state-transition run,
// invokes the executor and forwards its output and traces to the operator.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethpandaops/t8n-repl/pkg/common"
	"github.com/ethpandaops/t8n-repl/pkg/config"
	"github.com/ethpandaops/t8n-repl/pkg/t8n"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// TracePrefix is the file name prefix of executor traces.
	TracePrefix = "trace-"

	AllocFile  = "alloc.json"
	EnvFile    = "env.json"
	TxsFile    = "txs.json"
	ResultFile = "alloc_jsontx.json"
	BodyFile   = "signed_txs.rlp"

	subcommand = "t8n"
)

// Sentinel errors.
var (
	ErrExecutorFailure = errors.New("executor failure")
	ErrArtifactWrite   = errors.New("failed to write session artifacts")
)

// Input is the session content a run operates on.
type Input struct {
	Config *config.Config
	Alloc  map[string]t8n.Alloc
	Env    t8n.Env
	Txs    []t8n.Transaction
}

// Runner executes runs. It is not safe for concurrent use.
type Runner struct {
	log      logrus.FieldLogger
	out      io.Writer
	executor Executor
}

// New creates a runner printing operator output to out.
func New(log logrus.FieldLogger, out io.Writer, executor Executor) *Runner {
	return &Runner{
		log:      log.WithField("component", "runner"),
		out:      out,
		executor: executor,
	}
}

// Run clears stale traces, writes the session artifacts, invokes the executor
// and prints its output followed by every trace it produced. Only an artifact
// write failure stops the run before the executor is invoked.
func (r *Runner) Run(ctx context.Context, in *Input) error {
	start := time.Now()
	workDir := in.Config.WorkDir

	r.removeTraces(workDir)

	if err := writeArtifacts(ctx, workDir, in); err != nil {
		common.RunsTotal.WithLabelValues("artifact_error").Inc()

		return fmt.Errorf("%w: %w", ErrArtifactWrite, err)
	}

	args := BuildArgs(in.Config)

	r.log.WithFields(logrus.Fields{
		"executor": in.Config.T8n,
		"args":     strings.Join(args, " "),
	}).Debug("Invoking executor")

	output, execErr := r.executor.Execute(ctx, in.Config.T8n, args)
	if output != nil {
		r.write(output.Stdout)
		r.write(output.Stderr)
	}

	traces := r.printTraces(workDir)

	common.RunDuration.Observe(time.Since(start).Seconds())
	common.TraceFilesTotal.Add(float64(traces))

	if execErr != nil {
		common.RunsTotal.WithLabelValues("executor_error").Inc()

		return fmt.Errorf("%w: %s: %w", ErrExecutorFailure, in.Config.T8n, execErr)
	}

	common.RunsTotal.WithLabelValues("success").Inc()

	r.log.WithFields(logrus.Fields{
		"traces":   traces,
		"duration": time.Since(start),
	}).Debug("Run completed")

	return nil
}

// BuildArgs returns the executor arguments for cfg. The backend flag, when
// configured, precedes the subcommand.
func BuildArgs(cfg *config.Config) []string {
	workDir := cfg.WorkDir

	args := make([]string, 0, 10)

	if cfg.HasBackend() {
		args = append(args, "--vm.evm="+cfg.EVM)
	}

	return append(args,
		subcommand,
		"--state.fork="+cfg.HardFork,
		"--input.alloc="+filepath.Join(workDir, AllocFile),
		"--input.env="+filepath.Join(workDir, EnvFile),
		"--input.txs="+filepath.Join(workDir, TxsFile),
		"--output.result="+ResultFile,
		"--output.body="+BodyFile,
		"--output.basedir="+workDir,
		"--trace",
	)
}

func writeArtifacts(ctx context.Context, workDir string, in *Input) error {
	alloc := in.Alloc
	if alloc == nil {
		alloc = map[string]t8n.Alloc{}
	}

	txs := in.Txs
	if txs == nil {
		txs = []t8n.Transaction{}
	}

	artifacts := []struct {
		name  string
		value any
	}{
		{name: AllocFile, value: alloc},
		{name: EnvFile, value: in.Env},
		{name: TxsFile, value: txs},
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, artifact := range artifacts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			return writeJSON(filepath.Join(workDir, artifact.name), artifact.value)
		})
	}

	return g.Wait()
}

func writeJSON(path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	return nil
}

// removeTraces deletes traces left by a previous run. Failures are reported
// and otherwise ignored.
func (r *Runner) removeTraces(workDir string) {
	for _, name := range traceFiles(r.log, workDir) {
		if err := os.Remove(filepath.Join(workDir, name)); err != nil {
			r.log.WithError(err).WithField("file", name).Warn("Failed to remove previous trace")
			fmt.Fprintf(r.out, "Error: failed to remove previous trace %s\n", name)
		}
	}
}

// printTraces prints every trace file line by line and returns how many were read.
func (r *Runner) printTraces(workDir string) int {
	printed := 0

	for _, name := range traceFiles(r.log, workDir) {
		data, err := os.ReadFile(filepath.Join(workDir, name))
		if err != nil {
			r.log.WithError(err).WithField("file", name).Warn("Failed to read trace")
			fmt.Fprintf(r.out, "Error reading trace file %s\n", name)

			continue
		}

		for _, line := range strings.Split(string(data), "\n") {
			fmt.Fprintln(r.out, line)
		}

		printed++
	}

	return printed
}

func (r *Runner) write(data []byte) {
	if len(data) == 0 {
		return
	}

	if _, err := r.out.Write(data); err != nil {
		r.log.WithError(err).Warn("Failed to write executor output")
	}
}

// traceFiles lists trace file names in workDir in lexical order.
func traceFiles(log logrus.FieldLogger, workDir string) []string {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		log.WithError(err).WithField("dir", workDir).Warn("Failed to list working directory")

		return nil
	}

	names := make([]string, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), TracePrefix) {
			continue
		}

		names = append(names, entry.Name())
	}

	return names
}
