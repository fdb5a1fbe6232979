// Package app wires the tracker's components together and owns their
// lifecycle: the sqlite store, GitHub fetcher, summarizer, notifier, report
// writer, cron schedule, config watcher and the optional dashboard.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ghtracker/internal/api"
	"ghtracker/internal/config"
	"ghtracker/internal/github"
	"ghtracker/internal/notify"
	"ghtracker/internal/report"
	"ghtracker/internal/storage"
	"ghtracker/internal/summary"
	"ghtracker/internal/tracker"
	"ghtracker/pkg/logx"
)

type App struct {
	cfgPath string

	log  logx.Logger
	logs *logx.Service

	store   *storage.Store
	notif   *notify.Dispatcher
	tracker *tracker.Tracker

	cron      *cron.Cron
	dashboard *api.Server
	schedule  string

	wg      sync.WaitGroup
	running sync.Mutex // held while a tracking run is in flight
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	store, err := storage.Open(storage.Config{
		Path:        filepath.Join(cfg.DataDir, "tracker.db"),
		BusyTimeout: 5 * time.Second,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	source, err := github.NewAPISource(cfg.GitHubToken)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("github client: %w", err)
	}
	fetcher := github.NewFetcher(source, store, log.With(logx.String("comp", "github")))

	ai, err := summary.NewOpenAIClient(cfg.AI, cfg.ProxyURL)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("ai client: %w", err)
	}

	notif, err := notify.New(cfg.Telegram, cfg.ProxyURL, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	reports, err := report.NewWriter(cfg.ReportsDir)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("reports dir: %w", err)
	}

	trk := tracker.New(store, fetcher, ai, notif, reports, ai, cfg.Repos,
		log.With(logx.String("comp", "tracker")))
	trk.RateLimit = source.RateLimit

	a := &App{
		cfgPath:  cfgPath,
		log:      log,
		logs:     logSvc,
		store:    store,
		notif:    notif,
		tracker:  trk,
		schedule: cfg.Schedule,
	}

	if cfg.Dashboard.Enabled {
		h := api.NewHandler(store, reports, log.With(logx.String("comp", "api")))
		a.dashboard = api.NewServer(cfg.Dashboard.Addr, h, log.With(logx.String("comp", "api")))
	}
	return a, nil
}

// RunOnce executes a single tracking cycle and returns.
func (a *App) RunOnce(ctx context.Context) error {
	_, err := a.runCycle(ctx)
	return err
}

// RunRepo processes one repo immediately, ignoring the rest of the set.
func (a *App) RunRepo(ctx context.Context, fullName string) error {
	a.running.Lock()
	defer a.running.Unlock()
	return a.tracker.RunOne(ctx, fullName)
}

// Start begins scheduled operation: an immediate first run, then the cron
// schedule, plus the config watcher and dashboard. It returns once the
// background goroutines are launched.
func (a *App) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(a.schedule, func() {
		if _, err := a.runCycle(ctx); err != nil {
			a.log.Error("scheduled run failed", logx.Err(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", a.schedule, err)
	}
	a.cron = c

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if _, err := a.runCycle(ctx); err != nil {
			a.log.Error("initial run failed", logx.Err(err))
		}
	}()

	c.Start()
	a.log.Info("scheduler started", logx.String("schedule", a.schedule))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := config.Watch(ctx, a.cfgPath, a.log.With(logx.String("comp", "config")), func(cfg *config.Config) {
			a.tracker.SetRepos(cfg.Repos)
			a.log.Info("tracked repo set reloaded", logx.Int("repos", len(cfg.Repos)))
		})
		if err != nil {
			a.log.Error("config watcher failed", logx.Err(err))
		}
	}()

	if a.dashboard != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.dashboard.Start(); err != nil {
				a.log.Error("dashboard failed", logx.Err(err))
			}
		}()
	}
	return nil
}

// Stop halts the schedule, waits for an in-flight cycle to finish, and
// releases all resources.
func (a *App) Stop(ctx context.Context) error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	// Wait out any run still in flight.
	a.running.Lock()
	a.running.Unlock() //nolint:staticcheck

	if a.dashboard != nil {
		if err := a.dashboard.Shutdown(ctx); err != nil {
			a.log.Warn("dashboard shutdown", logx.Err(err))
		}
	}
	a.wg.Wait()

	err := a.store.Close()
	a.log.Info("tracker stopped")
	_ = a.logs.Close()
	return err
}

func (a *App) runCycle(ctx context.Context) (tracker.Stats, error) {
	a.running.Lock()
	defer a.running.Unlock()

	stats, err := a.tracker.Run(ctx)
	if err != nil && a.notif.Enabled() {
		if nerr := a.notif.SendError(ctx, err.Error()); nerr != nil {
			a.log.Warn("error notification failed", logx.Err(nerr))
		}
	}
	return stats, err
}
