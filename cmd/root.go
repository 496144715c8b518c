package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/ethpandaops/t8n-repl/pkg/config"
	"github.com/ethpandaops/t8n-repl/pkg/observability"
	"github.com/ethpandaops/t8n-repl/pkg/redis"
	"github.com/ethpandaops/t8n-repl/pkg/repl"
	"github.com/ethpandaops/t8n-repl/pkg/runner"
	"github.com/ethpandaops/t8n-repl/pkg/session"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const historyFileName = ".t8n-repl_history"

var (
	log                 = logrus.New()
	configFile          string
	loggingLevel        string
	metricsAddr         string
	snapshotRedis       string
	snapshotRedisPrefix string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "t8n-repl",
	Short: "Interactive shell for building and running state transitions.",
	Long: `Interactive shell for building and running state transitions.

Accounts, block environment and transactions are assembled with commands,
or extracted from an Ethereum state test, and executed with a t8n tool.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		initCommon()

		return runInteractive(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ~/"+config.FileName+")")
	rootCmd.PersistentFlags().StringVar(&loggingLevel, "logging", "info", "logging level")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve prometheus metrics on (disabled when empty)")
	rootCmd.Flags().StringVar(&snapshotRedis, "snapshot-redis", "", "redis address or url to keep saved sessions in (default is the filesystem)")
	rootCmd.Flags().StringVar(&snapshotRedisPrefix, "snapshot-redis-prefix", redis.DefaultPrefix, "key prefix for sessions kept in redis")
}

func initCommon() {
	level, err := logrus.ParseLevel(loggingLevel)
	if err != nil {
		log.WithError(err).Warn("Invalid logging level, using info")

		level = logrus.InfoLevel
	}

	log.SetLevel(level)
}

func runInteractive(ctx context.Context) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts := []session.Option{session.WithConfigPath(path)}

	if snapshotRedis != "" {
		store, closeStore, err := newRedisSnapshotStore(ctx, &redis.Config{Address: snapshotRedis, Prefix: snapshotRedisPrefix})
		if err != nil {
			return err
		}

		defer closeStore()

		opts = append(opts, session.WithSnapshotStore(store))
	}

	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, historyFileName)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      cfg.HardFork + " > ",
		HistoryFile: history,
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}
	defer rl.Close()

	opts = append(opts, session.WithRunner(runner.New(log, rl.Stdout(), runner.NewCommandExecutor())))
	sess := session.New(log, cfg, opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if metricsAddr != "" {
		g.Go(func() error {
			return observability.NewMetricsServer(log, metricsAddr).Start(ctx)
		})
	}

	g.Go(func() error {
		defer cancel()

		return repl.New(log, rl, rl.Stdout(), sess).Run(ctx)
	})

	return g.Wait()
}

// newRedisSnapshotStore connects to redis and returns a store keyed by the
// validated prefix, together with a function closing the client.
func newRedisSnapshotStore(ctx context.Context, cfg *redis.Config) (*session.RedisStore, func(), error) {
	client, err := redis.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	closeClient := func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close redis client")
		}
	}

	if err := client.Ping(ctx).Err(); err != nil {
		closeClient()

		return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return session.NewRedisStore(client, cfg.Prefix), closeClient, nil
}

// loadConfig reads the persisted configuration, creating it with defaults on
// first use, and returns it together with its path.
func loadConfig() (*config.Config, string, error) {
	path := configFile

	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return nil, "", err
		}

		path = defaultPath
	}

	workDir, err := config.DefaultWorkDir()
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(path, workDir)
	if err != nil {
		return nil, "", err
	}

	return cfg, path, nil
}
