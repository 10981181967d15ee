// Package daemon runs the recorder: a capture loop on an adaptive cadence,
// a sync loop on a fixed one, an optional classification worker, and a
// config watcher for live rule reloads.
package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/smerrill/worktrace/internal/core/attribution"
	"github.com/smerrill/worktrace/internal/core/capture"
	"github.com/smerrill/worktrace/internal/core/classify"
	"github.com/smerrill/worktrace/internal/core/config"
	"github.com/smerrill/worktrace/internal/core/db"
	"github.com/smerrill/worktrace/internal/core/models"
	syncer "github.com/smerrill/worktrace/internal/core/sync"
)

// stopTimeout bounds how long shutdown waits for in-flight work
const stopTimeout = 5 * time.Second

// attributionTimeout bounds the remote lookup inside one capture tick
const attributionTimeout = 5 * time.Second

// WindowSource supplies the active window's identity on demand. Best
// effort: fields may be empty, and an error means "skip this tick."
type WindowSource interface {
	Snapshot(ctx context.Context) (models.CaptureSignal, error)
}

// FingerprintSource supplies a perceptual fingerprint of current visual
// content, or nil when unavailable
type FingerprintSource interface {
	Fingerprint(ctx context.Context) ([]byte, error)
}

// ScreenshotSource persists a screenshot under the given reference
type ScreenshotSource interface {
	Save(ctx context.Context, ref string) error
}

// Stats tracks daemon activity
type Stats struct {
	StartTime   time.Time
	Captures    int
	Skips       int
	Attributed  int
	Errors      int
	LastCapture time.Time
}

// Daemon owns the recorder's background loops
type Daemon struct {
	cfg     *config.Config
	cfgPath string
	store   *db.DB
	log     zerolog.Logger

	windows      WindowSource
	fingerprints FingerprintSource
	screenshots  ScreenshotSource
	activity     *capture.ActivityMonitor

	detector *capture.ChangeDetector
	rate     *capture.RateController
	outbox   *syncer.Outbox
	worker   *classify.Worker

	mu       sync.Mutex
	resolver *attribution.Resolver
	stats    Stats
}

// Options wires the daemon's collaborators. Fingerprints, Screenshots, and
// Worker are optional.
type Options struct {
	Config       *config.Config
	ConfigPath   string
	Store        *db.DB
	Windows      WindowSource
	Fingerprints FingerprintSource
	Screenshots  ScreenshotSource
	Activity     *capture.ActivityMonitor
	Outbox       *syncer.Outbox
	Worker       *classify.Worker
	Log          zerolog.Logger
}

// New assembles a daemon from its collaborators
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil || opts.Store == nil || opts.Windows == nil || opts.Outbox == nil {
		return nil, fmt.Errorf("daemon: config, store, window source, and outbox are required")
	}

	cfg := opts.Config
	d := &Daemon{
		cfg:          cfg,
		cfgPath:      opts.ConfigPath,
		store:        opts.Store,
		log:          opts.Log,
		windows:      opts.Windows,
		fingerprints: opts.Fingerprints,
		screenshots:  opts.Screenshots,
		activity:     opts.Activity,
		outbox:       opts.Outbox,
		worker:       opts.Worker,
		detector: capture.NewChangeDetector(capture.DetectorConfig{
			MinInterval:   cfg.Capture.MinInterval.Duration,
			MaxInterval:   cfg.Capture.MaxInterval.Duration,
			HashThreshold: cfg.Capture.HashThreshold,
		}),
		rate: capture.NewRateController(capture.RateConfig{
			MinInterval: cfg.Capture.MinInterval.Duration,
			MaxInterval: cfg.Capture.MaxInterval.Duration,
		}),
		stats: Stats{StartTime: time.Now()},
	}
	d.resolver = buildResolver(cfg, opts.Log)

	return d, nil
}

func buildResolver(cfg *config.Config, log zerolog.Logger) *attribution.Resolver {
	engine := attribution.NewEngine(cfg.AttributionClients())

	var remote *attribution.RemoteClient
	if cfg.Attribution.RemoteEnabled && cfg.Attribution.RemoteURL != "" {
		remote = attribution.NewRemoteClient(cfg.Attribution.RemoteURL, cfg.Attribution.RemoteAPIKey, log)
	}
	return attribution.NewResolver(engine, remote)
}

// Start runs all loops until ctx is cancelled, then waits up to
// stopTimeout for in-flight work before returning.
func (d *Daemon) Start(ctx context.Context) error {
	d.log.Info().
		Str("source", d.cfg.SourceID).
		Dur("min_interval", d.cfg.Capture.MinInterval.Duration).
		Dur("max_interval", d.cfg.Capture.MaxInterval.Duration).
		Msg("daemon starting")

	// Seed content baseline so a restart doesn't force a spurious capture
	if fp, err := d.store.LatestFingerprint(); err != nil {
		d.log.Warn().Err(err).Msg("could not seed fingerprint history")
	} else if fp != nil {
		d.detector.SetLastFingerprint(fp)
	}

	inner, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.captureLoop(inner)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.outbox.Run(inner, d.cfg.Sync.Interval.Duration)
	}()

	if d.worker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.worker.Run(inner)
		}()
	}

	if d.cfgPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.watchConfig(inner)
		}()
	}

	<-ctx.Done()
	d.log.Info().Msg("daemon shutting down")
	cancel()

	// Bounded wait: let in-flight ticks finish, then proceed regardless
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		d.log.Warn().Msg("shutdown wait expired with work in flight")
	}
	return nil
}

// captureLoop is the single-flight capture driver. Each tick runs to
// completion before the next is scheduled; the interval is re-read from
// the rate controller every iteration.
func (d *Daemon) captureLoop(ctx context.Context) {
	timer := time.NewTimer(d.rate.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.tick(ctx)
			timer.Reset(d.rate.Interval())
		}
	}
}

// tick evaluates one moment: decide, attribute, persist, classify
func (d *Daemon) tick(ctx context.Context) {
	sig, err := d.windows.Snapshot(ctx)
	if err != nil {
		// Signal unavailable: skip this tick, never fatal
		d.log.Debug().Err(err).Msg("window snapshot unavailable")
		return
	}

	if d.activity != nil {
		sig.KeyboardActive = d.activity.IsKeyboardActive()
		sig.MouseActive = d.activity.IsMouseActive()
	}
	d.rate.Update(sig.KeyboardActive, sig.MouseActive)

	if d.fingerprints != nil {
		if fp, err := d.fingerprints.Fingerprint(ctx); err == nil {
			sig.Fingerprint = fp
		}
	}

	decision := d.detector.Evaluate(sig.WindowTitle, sig.ProcessName, sig.Fingerprint)
	if !decision.ShouldCapture {
		d.noteSkip()
		return
	}

	event := &models.CaptureEvent{
		Timestamp:      time.Now().UTC(),
		WindowTitle:    sig.WindowTitle,
		ProcessName:    sig.ProcessName,
		URL:            sig.URL,
		Hostname:       sig.Hostname,
		CaptureType:    models.CaptureMetadataOnly,
		CaptureReason:  decision.Reason,
		Fingerprint:    sig.Fingerprint,
		KeyboardActive: sig.KeyboardActive,
		MouseActive:    sig.MouseActive,
	}

	// Attribution with a bounded remote lookup
	attrCtx, cancel := context.WithTimeout(ctx, attributionTimeout)
	match := d.resolverSnapshot().Detect(attrCtx, sig)
	cancel()
	if match != nil {
		event.ClientCode = match.ClientCode
		event.Confidence = match.Confidence
	}

	if d.screenshots != nil {
		ref := ulid.Make().String()
		if err := d.screenshots.Save(ctx, ref); err != nil {
			d.log.Warn().Err(err).Msg("screenshot failed")
			event.CaptureType = models.CaptureFailed
		} else {
			event.CaptureType = models.CaptureFull
			event.ScreenshotRef = ref
		}
	}

	id, err := d.store.InsertEvent(event)
	if err != nil {
		// This tick is lost; the next one retries persistence
		d.log.Error().Err(err).Msg("persist capture failed")
		d.noteError()
		return
	}

	d.detector.RecordCapture(sig.WindowTitle, sig.ProcessName, sig.Fingerprint)
	d.noteCapture(match != nil)

	d.log.Debug().
		Int64("event", id).
		Str("reason", string(decision.Reason)).
		Str("client", event.ClientCode).
		Msg("captured")

	if d.worker != nil && event.ScreenshotRef != "" {
		d.worker.Submit(classify.Job{
			EventID: id,
			Request: classify.Request{
				ImageRef:    event.ScreenshotRef,
				WindowTitle: sig.WindowTitle,
				ProcessName: sig.ProcessName,
				ClientCode:  event.ClientCode,
			},
		})
	}
}

// watchConfig reloads client rules when config.toml changes on disk
func (d *Daemon) watchConfig(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.log.Warn().Err(err).Msg("config watcher unavailable")
		return
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(d.cfgPath); err != nil {
		d.log.Warn().Err(err).Str("path", d.cfgPath).Msg("cannot watch config")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			d.reloadRules()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (d *Daemon) reloadRules() {
	cfg, err := config.Load(d.cfgPath)
	if err != nil {
		d.log.Warn().Err(err).Msg("config reload failed, keeping current rules")
		return
	}

	resolver := buildResolver(cfg, d.log)
	d.mu.Lock()
	d.resolver = resolver
	d.mu.Unlock()
	d.log.Info().Int("clients", len(cfg.Clients)).Msg("detection rules reloaded")
}

func (d *Daemon) resolverSnapshot() *attribution.Resolver {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolver
}

// GetStats returns a copy of current daemon statistics
func (d *Daemon) GetStats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Daemon) noteCapture(attributed bool) {
	d.mu.Lock()
	d.stats.Captures++
	if attributed {
		d.stats.Attributed++
	}
	d.stats.LastCapture = time.Now()
	d.mu.Unlock()
}

func (d *Daemon) noteSkip() {
	d.mu.Lock()
	d.stats.Skips++
	d.mu.Unlock()
}

func (d *Daemon) noteError() {
	d.mu.Lock()
	d.stats.Errors++
	d.mu.Unlock()
}
