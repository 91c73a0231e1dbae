// Command torfbot runs the peatland hotspot alerting pipeline.
//
// Usage:
//
//	torfbot run                  # one pipeline cycle (online FIRMS feeds)
//	torfbot run --source local   # replay local archive CSVs
//	torfbot resend               # re-dispatch the cached alert snapshot
//	torfbot daemon               # scheduled runs (cron from config)
//	torfbot clean                # prune stale alert snapshots
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"torfbot/internal/alert"
	"torfbot/internal/config"
	"torfbot/internal/dispatch"
	"torfbot/internal/firms"
	"torfbot/internal/geo"
	"torfbot/internal/ledger"
	"torfbot/internal/pipeline"
	"torfbot/internal/subs"
	"torfbot/internal/telegram"
	"torfbot/internal/wiki"

	logx "torfbot/pkg/logx"
)

var cfgPath string

func main() {
	// Load .env if present (TELEGRAM_TOKEN lives there in dev).
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "torfbot",
		Short:         "Peatland hotspot alerting pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")

	root.AddCommand(runCmd())
	root.AddCommand(resendCmd())
	root.AddCommand(daemonCmd())
	root.AddCommand(cleanCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// app bundles everything one pipeline run needs, plus its closers.
type app struct {
	pipe *pipeline.Pipeline
	led  ledger.Store
	log  logx.Logger
}

func (a *app) Close() {
	if a.led != nil {
		_ = a.led.Close()
	}
	_ = a.log.Close()
}

func buildApp(cfg *config.Config) (*app, error) {
	log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console || !cfg.Logging.File.Enabled,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})

	token, err := config.Token()
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	sender, err := telegram.NewSender(telegram.Config{Token: token})
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	// The ledger is required; fail closed before any send can happen.
	led, err := ledger.Open(ledger.Config{
		Driver:      cfg.Ledger.Driver,
		Path:        cfg.Ledger.Path,
		BusyTimeout: cfg.LedgerBusyTimeout(),
	}, log)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	store := geo.NewStore(cfg.Data.Polygons, log)
	matcher := geo.NewMatcher(geo.Tolerances{
		RadiusM:  cfg.Sources.ToleranceM,
		DefaultM: cfg.Sources.DefaultToleranceM,
	}, log)
	linker := wiki.NewLinker(wiki.Config{
		SearchURL: cfg.Wiki.SearchURL,
		BaseURL:   cfg.Wiki.BaseURL,
		CachePath: cfg.Wiki.CachePath,
		Timeout:   cfg.WikiTimeout(),
	}, log)
	aggregator := alert.NewAggregator(linker, cfg.Wiki.DefaultURL, log)
	directory := subs.NewDirectory(cfg.Data.Users, cfg.Data.UserRegions, cfg.Telegram.AdminUserIDs, log)
	dispatcher := dispatch.New(dispatch.Config{
		Workers:     cfg.Dispatch.Workers,
		RatePerSec:  cfg.Dispatch.RatePerSec,
		RetryMax:    cfg.Dispatch.RetryMax,
		SendTimeout: cfg.SendTimeout(),
	}, sender, led, log)

	pipe := pipeline.New(store, matcher, aggregator, directory, dispatcher, cfg.Data.AlertsSnapshot, log)
	return &app{pipe: pipe, led: led, log: log}, nil
}

func pointSource(cfg *config.Config, kind string, log logx.Logger) (pipeline.PointSource, error) {
	switch kind {
	case "online":
		return firms.NewFeed(cfg.Sources.Feeds, cfg.FetchTimeout(), log), nil
	case "local":
		if cfg.Data.ArchiveDir == "" {
			return nil, fmt.Errorf("data.archive_dir is not configured")
		}
		return firms.NewArchive(cfg.Data.ArchiveDir, log), nil
	default:
		return nil, fmt.Errorf("unknown source %q (want online or local)", kind)
	}
}

func runCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := pointSource(cfg, source, a.log)
			if err != nil {
				return err
			}
			rep, err := a.pipe.Run(ctx, src)
			logReport(a.log, rep)
			return err
		},
	}
	cmd.Flags().StringVar(&source, "source", "online", "hotspot source: online or local")
	return cmd
}

func resendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend",
		Short: "Re-dispatch the cached alert snapshot",
		Long: "Re-runs delivery over the latest persisted alert set. The delivery\n" +
			"ledger makes this idempotent: recipients already notified are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			alerts, err := alert.LoadSnapshot(cfg.Data.AlertsSnapshot)
			if err != nil {
				return fmt.Errorf("no cached alerts: %w", err)
			}
			if len(alerts) == 0 {
				a.log.Info("cached snapshot is empty; nothing to resend")
				return nil
			}
			rep, err := a.pipe.Deliver(ctx, alerts)
			logReport(a.log, rep)
			return err
		},
	}
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Prune stale alert snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			log := logx.NewConsole(cfg.Logging.Level)
			maxAge := time.Duration(cfg.Data.RetentionDays) * 24 * time.Hour
			removed, err := alert.PruneSnapshots(cfg.Data.AlertsSnapshot, maxAge, time.Now())
			log.Info("snapshots pruned", logx.Int("removed", removed), logx.Int("retention_days", cfg.Data.RetentionDays))
			return err
		},
	}
}

func logReport(log logx.Logger, rep dispatch.Report) {
	log.Info("run report",
		logx.Int("sent", rep.Sent),
		logx.Int("skipped_filter", rep.SkippedByFilter),
		logx.Int("skipped_dedup", rep.SkippedByDedup),
		logx.Int("failed", rep.Failed))
}
