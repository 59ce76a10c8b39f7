// Gapd is the content-gap detection daemon for knowledge-base assistants.
//
// It watches the interaction log for recurring questions the assistant could
// not answer well, clusters them, synthesizes content-gap records through a
// reasoning service, and serves ranked search, recommendation, and
// suggestion endpoints over the knowledge store.
//
// Usage:
//
//	# Start the server with defaults
//	gapd serve
//
//	# Start with a config file
//	gapd serve --config ~/.config/gapd/config.yaml
//
//	# Run one detection pass and print the report
//	gapd detect
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gapd/internal/config"
	"github.com/fyrsmithlabs/gapd/internal/gapdetect"
	gapdhttp "github.com/fyrsmithlabs/gapd/internal/http"
	"github.com/fyrsmithlabs/gapd/internal/interaction"
	"github.com/fyrsmithlabs/gapd/internal/knowledge"
	"github.com/fyrsmithlabs/gapd/internal/logging"
	"github.com/fyrsmithlabs/gapd/internal/ranking"
	"github.com/fyrsmithlabs/gapd/internal/reasoning"
	"github.com/fyrsmithlabs/gapd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gapd",
	Short: "Content-gap detection daemon",
	Long: `gapd detects gaps in a knowledge base by analyzing assistant
interactions, and serves ranked retrieval over the knowledge store.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ~/.config/gapd/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(versionCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gapd HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		return runServe(ctx)
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run one detection pass and print the report as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetect(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gapd by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

// app holds the wired application services.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	tel      *telemetry.Telemetry
	detector *gapdetect.Detector
	ranker   *ranking.Ranker
}

// newApp loads configuration and wires every service. The returned cleanup
// flushes logs and telemetry.
func newApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return nil, nil, fmt.Errorf("init telemetry: %w", err)
	}

	// The logging section loads onto defaults, so a config file only needs
	// the keys it changes. The OTEL output lights up when telemetry is
	// enabled and logging.output.otel is set.
	logCfg := logging.NewDefaultConfig()
	if err := cfg.Section("logging", logCfg); err != nil {
		_ = tel.Shutdown(ctx)
		return nil, nil, fmt.Errorf("load logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	client, err := reasoning.NewHTTPClient(cfg.Reasoning)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, nil, fmt.Errorf("init reasoning client: %w", err)
	}

	// Embedded stores. Production deployments point these interfaces at
	// the knowledge platform instead.
	store := knowledge.NewMemoryStore()
	events := interaction.NewMemoryLog()

	detector := gapdetect.NewDetector(
		events,
		gapdetect.NewSynthesizer(client),
		gapdetect.NewMergeEngine(store, logger),
		cfg.Detection,
		logger,
	)
	ranker := ranking.NewRanker(store, client, cfg.Ranking, logger)

	cleanup := func() {
		_ = logger.Sync()
		_ = tel.Shutdown(context.Background())
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		tel:      tel,
		detector: detector,
		ranker:   ranker,
	}, cleanup, nil
}

// runServe starts the HTTP server and blocks until ctx is cancelled.
func runServe(ctx context.Context) error {
	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := gapdhttp.NewServer(a.detector, a.ranker, a.logger, a.cfg.Server)
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error(shutdownCtx, "http shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

// runDetect executes one detection pass and prints the report.
func runDetect(ctx context.Context) error {
	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := a.detector.Run(ctx)
	if err != nil {
		return fmt.Errorf("detection run: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
