package cli

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smerrill/worktrace/internal/core/capture"
	"github.com/smerrill/worktrace/internal/core/classify"
	"github.com/smerrill/worktrace/internal/core/config"
	"github.com/smerrill/worktrace/internal/core/daemon"
	syncer "github.com/smerrill/worktrace/internal/core/sync"
	"github.com/smerrill/worktrace/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the recorder in the foreground",
	Long: `Run the capture, sync, and classification loops until interrupted.

The recorder needs a window probe command in config.toml:

  [capture]
  probe_command = ["worktrace-probe"]

The probe prints the active window as one JSON object on stdout. A
screenshot_command is optional; without it only metadata is recorded.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})

	windows, err := daemon.NewProbeSource(cfg.Capture.ProbeCommand)
	if err != nil {
		return fmt.Errorf("no window probe configured: set capture.probe_command in %s", configPath)
	}

	var screenshots daemon.ScreenshotSource
	if len(cfg.Capture.ScreenshotCommand) > 0 {
		dir := cfg.Capture.ScreenshotDir
		if dir == "" {
			dir = filepath.Join(config.Dir(), "screenshots")
		}
		probe, err := daemon.NewScreenshotProbe(cfg.Capture.ScreenshotCommand, dir)
		if err != nil {
			return err
		}
		screenshots = probe
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	outbox := syncer.NewOutbox(database,
		syncer.NewBillingClient(cfg.Sync.APIURL, cfg.Sync.APIKey),
		syncer.Config{
			BatchSize:     cfg.Sync.BatchSize,
			RetentionDays: cfg.Sync.RetentionDays,
			Source:        cfg.SourceID,
			Template:      cfg.Classify.DescriptionTemplate,
		}, log)

	var worker *classify.Worker
	if cfg.Classify.Enabled && cfg.Classify.ServiceURL != "" {
		analyzer := classify.NewHTTPAnalyzer(cfg.Classify.ServiceURL, cfg.Classify.APIKey)
		worker = classify.NewWorker(database, analyzer, cfg.Classify.QueueSize, log)
	}

	d, err := daemon.New(daemon.Options{
		Config:      cfg,
		ConfigPath:  configPath,
		Store:       database,
		Windows:     windows,
		Screenshots: screenshots,
		Activity:    capture.NewActivityMonitor(30 * time.Second),
		Outbox:      outbox,
		Worker:      worker,
		Log:         log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Start(ctx)
}
