package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/narrative-engine/internal/config"
	"github.com/danielpatrickdp/narrative-engine/internal/logging"
	"github.com/danielpatrickdp/narrative-engine/internal/metrics"
	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
	"github.com/danielpatrickdp/narrative-engine/internal/store"
)

// #region root
var (
	configPath string
	seedFlag   uint64
	dbFlag     string
	levelFlag  string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "narrate",
	Short:         "Deterministic narrative text generation",
	Long:          `Turns structured story events into prose using weighted grammars, voices and phrase models.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("seed") {
			cfg.Seed = seedFlag
		}
		if flags.Changed("db") {
			cfg.DB = dbFlag
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = levelFlag
		}
		logger, err = logging.New(cfg.LogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "narrate.yaml", "configuration file")
	pf.Uint64Var(&seedFlag, "seed", 0, "base seed (overrides config)")
	pf.StringVar(&dbFlag, "db", "", "SQLite database path (overrides config)")
	pf.StringVar(&levelFlag, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(trainCmd, lintCmd, generateCmd, bulkCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// #endregion root

// #region wiring

// recorder bundles the database-backed observers shared by generate and
// serve.
type recorder struct {
	store   *store.Store
	memory  *orchestrator.AttemptMemory
	prov    *logging.Provenance
	metrics *metrics.Metrics
}

func openRecorder() (*recorder, error) {
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	mem, err := orchestrator.NewAttemptMemory(st.DB(), logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("attempt memory: %w", err)
	}
	prov, err := logging.NewProvenance(st.DB(), logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &recorder{store: st, memory: mem, prov: prov, metrics: metrics.New()}, nil
}

func (r *recorder) options() []orchestrator.Option {
	return []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithObserver(r.memory),
		orchestrator.WithObserver(r.prov),
		orchestrator.WithObserver(r.metrics),
	}
}

func (r *recorder) Close() error {
	return r.store.Close()
}

// #endregion wiring
