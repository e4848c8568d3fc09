// File: cmd/root.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/evomap/remedy-cli/internal/config"
	"github.com/evomap/remedy-cli/internal/observability"
)

var (
	cfgFile string

	optOnce     bool
	optLoop     bool
	optStats    bool
	optTest     bool
	optInterval time.Duration

	// appCfg is populated by PersistentPreRunE before any mode runs.
	appCfg config.Interface
)

// rootCmd is the single user-facing command; the pipeline mode is selected by
// mutually exclusive flags.
var rootCmd = &cobra.Command{
	Use:     "remedy",
	Short:   "Remedy is a self-healing remediation agent for tool and command failures.",
	Version: Version,
	Long: `Remedy observes tool failures, classifies them into signals, matches them
against a catalog of repair genes, applies a bounded automated fix, and
publishes validated fixes to the shared EvoMap hub so other agents can reuse
them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initializeConfig()
		if err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "remedy"})
			return err
		}
		appCfg = cfg
		observability.InitializeLogger(cfg.Logger())
		observability.GetLogger().Debug("Starting remedy", zap.String("version", Version))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		switch {
		case optOnce:
			return runOnce(cmd.Context(), appCfg, logger)
		case optStats:
			return runStats(appCfg, logger, cmd.OutOrStdout())
		case optTest:
			return runSelfTest(cmd.Context(), appCfg, logger, cmd.OutOrStdout())
		case optLoop:
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if optInterval > 0 {
				appCfg.SetHealInterval(optInterval)
			}
			return runLoop(ctx, appCfg, logger)
		default:
			return cmd.Help()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer observability.Sync()
	if err := rootCmd.Execute(); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.Flags().BoolVar(&optOnce, "once", false, "run a single remediation cycle and exit")
	rootCmd.Flags().BoolVar(&optLoop, "loop", false, "run remediation cycles continuously")
	rootCmd.Flags().BoolVar(&optStats, "stats", false, "print pipeline statistics and exit")
	rootCmd.Flags().BoolVar(&optTest, "test", false, "inject a synthetic failure and run match-only smoke test")
	rootCmd.Flags().DurationVar(&optInterval, "interval", 0, "cycle interval for --loop (default from config, 5m)")
	rootCmd.MarkFlagsMutuallyExclusive("once", "loop", "stats", "test")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// initializeConfig reads the config file and REMEDY_* environment variables.
func initializeConfig() (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("REMEDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}

	return config.NewConfigFromViper(v)
}
