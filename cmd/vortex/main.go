package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/amaumene/vortex/internal/config"
	"github.com/amaumene/vortex/internal/controllers"
	"github.com/amaumene/vortex/internal/metrics"
	"github.com/amaumene/vortex/internal/models"
	"github.com/amaumene/vortex/internal/scheduler"
	"github.com/amaumene/vortex/internal/services/backend"
	"github.com/amaumene/vortex/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", models.UserMessage(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.teardown()

	return newRootCommand(a).ExecuteContext(ctx)
}

// app holds the wiring shared by all commands
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	metrics *metrics.Collector
	tracer  *sdktrace.TracerProvider
	client  *backend.Client

	acceptTerms bool
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "vortex",
		Short:         "Analyze media URLs and download them through the conversion backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("backend", "", "backend base URL (BACKEND_URL)")
	flags.String("log-level", "", "log level (LOG_LEVEL)")
	flags.String("download-dir", "", "directory for downloaded files (DOWNLOAD_DIR)")
	flags.BoolVar(&a.acceptTerms, "accept-terms", false, "accept the usage terms without prompting")

	root.AddCommand(
		newAnalyzeCommand(a),
		newDownloadCommand(a),
		newPlaylistCommand(a),
		newWatchCommand(a),
	)

	return root
}

// setup loads configuration and builds shared services
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	a.logger = utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	a.logger.WithFields(logrus.Fields{
		"backend":  cfg.BackendURL,
		"database": cfg.DatabaseFile,
	}).Debug("Configuration loaded")

	if err := a.ensureConsent(cmd); err != nil {
		return err
	}

	a.tracer = utils.NewTracerProvider(
		a.logger.IsLevelEnabled(logrus.DebugLevel),
		utils.NewLogSpanProcessor(a.logger),
	)
	a.metrics = metrics.NewCollector()

	a.client, err = backend.NewClient(cfg, a.metrics, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize backend client: %w", err)
	}
	return nil
}

func (a *app) teardown() {
	if a.tracer == nil {
		return
	}
	if err := utils.ShutdownTracer(context.Background(), a.tracer); err != nil {
		a.logger.WithError(err).Debug("Failed to shut down tracer")
	}
}

// newOrchestrator creates a job pipeline writing into the download dir
func (a *app) newOrchestrator() *controllers.Orchestrator {
	return controllers.NewOrchestrator(
		a.client,
		backend.NewDownloader(a.client, a.cfg.DownloadDir),
		scheduler.NewCronTicker(a.logger),
		controllers.OptionsFromConfig(a.cfg),
		a.metrics,
		a.logger,
	)
}

func (a *app) analyzeController() *controllers.AnalyzeController {
	return controllers.NewAnalyzeController(a.client, a.logger)
}

func (a *app) playlistController() *controllers.PlaylistController {
	return controllers.NewPlaylistController(
		a.analyzeController(),
		func() controllers.JobRunner { return a.newOrchestrator() },
		controllers.PlaylistOptions{
			URLTemplate: a.cfg.EntryURLTemplate,
			Parallel:    a.cfg.PlaylistParallel,
			Rate:        a.cfg.PlaylistRate,
		},
		a.logger,
	)
}

// errTermsDeclined is returned when the usage terms were not accepted
var errTermsDeclined = errors.New("usage terms were not accepted")
