package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/veb86/GristWidgets-sub001/internal/config"
	"github.com/veb86/GristWidgets-sub001/internal/host"
	"github.com/veb86/GristWidgets-sub001/internal/logger"
	"github.com/veb86/GristWidgets-sub001/internal/managercalc"
	"github.com/veb86/GristWidgets-sub001/internal/version"
)

var (
	cfgFile  string
	table    string
	docFile  string
	logLevel string
	console  bool
)

var rootCmd = &cobra.Command{
	Use:   "managercalc",
	Short: "Electrical group classifier for Grist device tables",
	Long: `managercalc assigns each device of a Grist device table up to three
group labels (level1, level2, level3) derived from its head devices, and
writes back only the rows whose labels changed.

The document is reached through the Grist REST API (GRIST_SERVER,
GRIST_DOC_ID, GRIST_API_KEY) or, with --file, directly in a .grist file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the document is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		api, closeHost := mustOpenHost(cfg)
		defer closeHost()

		pinger, ok := api.(host.Pinger)
		if !ok {
			return fmt.Errorf("host does not support ping")
		}
		if err := pinger.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("host unreachable: %w", err)
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/managercalc/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&table, "table", "", "device table (default AllDevice)")
	rootCmd.PersistentFlags().StringVarP(&docFile, "file", "f", "", "work on a local .grist document instead of the REST API")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&console, "console-log", true, "human-readable log output")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(versionCmd)
}

// mustLoadConfig loads the config, applies global flags and initializes
// logging.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if table != "" {
		cfg.Table = table
	}
	if docFile != "" {
		cfg.Host.File = docFile
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Output: cfg.Log.Output, Console: console}); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func mustOpenHost(cfg *config.Config) (host.API, func()) {
	api, closeFn, err := managercalc.OpenHost(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening document: %v\n", err)
		os.Exit(1)
	}
	return api, func() {
		if err := closeFn(); err != nil {
			log := logger.GetLogger()
			log.Warn().Err(err).Msg("Failed to close document")
		}
	}
}

func componentLogger(name string) zerolog.Logger {
	return logger.WithComponent(name)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
