package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aniketwaliyan/tap-fastly/internal/extract"
	"github.com/aniketwaliyan/tap-fastly/internal/fastly"
	"github.com/aniketwaliyan/tap-fastly/internal/pipeline"
	"github.com/aniketwaliyan/tap-fastly/internal/singer"
	"github.com/aniketwaliyan/tap-fastly/internal/state"
	"github.com/aniketwaliyan/tap-fastly/pkg/config"
	"github.com/aniketwaliyan/tap-fastly/pkg/env"
)

const version = "0.1.0"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("tap failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:           "tap-fastly",
		Short:         "Extract Fastly billing and stats data",
		Long:          "Singer tap that discovers the bills and stats streams and syncs the selected ones incrementally",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTap(cmd, logger)
		},
	}

	rootCmd.Flags().StringP("config", "c", "", "Path to the tap configuration file")
	rootCmd.Flags().StringP("state", "s", "", "Path to a state file to resume from")
	rootCmd.Flags().String("catalog", "", "Path to a catalog file with stream selections")
	rootCmd.Flags().String("properties", "", "Deprecated alias of --catalog")
	rootCmd.Flags().BoolP("discover", "d", false, "Print the catalog and exit")
	rootCmd.Flags().Bool("select-all", false, "Sync every stream regardless of catalog selection")
	rootCmd.MarkFlagRequired("config")
	rootCmd.Flags().MarkDeprecated("properties", "use --catalog")

	var validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate a tap configuration file",
		RunE:  runValidate,
	}
	validateCmd.Flags().StringP("config", "c", "", "Path to the tap configuration file")
	validateCmd.MarkFlagRequired("config")

	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a starter config.yaml and .env.template",
		RunE:  runInit,
	}
	initCmd.Flags().String("dir", ".", "Directory to write the files into")

	rootCmd.AddCommand(validateCmd, initCmd)
	return rootCmd
}

func loadConfig(path string) (*config.Config, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	envConfig, err := env.Load(workDir)
	if err != nil {
		return nil, err
	}
	return config.NewParser(envConfig).Parse(path)
}

func runTap(cmd *cobra.Command, logger *slog.Logger) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if discover, _ := cmd.Flags().GetBool("discover"); discover {
		return pipeline.WriteCatalog(cmd.OutOrStdout())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runSync(ctx, cmd, cfg, logger)
}

func runSync(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (err error) {
	catalogPath, _ := cmd.Flags().GetString("catalog")
	if catalogPath == "" {
		catalogPath, _ = cmd.Flags().GetString("properties")
	}
	selectAll, _ := cmd.Flags().GetBool("select-all")
	cat, err := pipeline.ResolveCatalog(catalogPath, selectAll)
	if err != nil {
		return err
	}

	store, err := state.Open(ctx, cfg.StateOptions())
	if err != nil {
		return err
	}
	defer closeInto(&err, "state store", store)

	var override *state.Document
	if statePath, _ := cmd.Flags().GetString("state"); statePath != "" {
		if override, err = state.ReadFile(statePath); err != nil {
			return err
		}
	}
	st, err := pipeline.InitState(ctx, cfg.StartDate, store, override)
	if err != nil {
		return err
	}

	sink, err := newSink(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeInto(&err, "sink", sink)

	client, err := fastly.NewClient(fastly.NewAuthenticator(cfg.APIToken), fastly.Options{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	syncer := extract.NewSyncer(client, st, store, sink, extract.Options{
		StartDate: cfg.StartTime(),
		Logger:    logger,
	})
	logger.Info("starting sync", "selected", len(cat.Selected()))
	return pipeline.NewOrchestrator(cat, syncer, logger).Execute(ctx)
}

// closeInto closes c and joins any close failure onto *errp.
func closeInto(errp *error, name string, c io.Closer) {
	if cerr := c.Close(); cerr != nil {
		*errp = errors.Join(*errp, fmt.Errorf("close %s: %w", name, cerr))
	}
}

func newSink(cmd *cobra.Command, cfg *config.Config) (singer.Sink, error) {
	if cfg.Sink.Type == "kafka" {
		return singer.NewKafkaSink(cfg.Sink.Brokers, cfg.Sink.Topic)
	}
	return singer.NewWriter(cmd.OutOrStdout()), nil
}
