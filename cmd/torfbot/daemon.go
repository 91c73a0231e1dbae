package main

import (
	"fmt"
	"sync/atomic"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"torfbot/internal/config"

	logx "torfbot/pkg/logx"
)

// daemonCmd schedules the pipeline with cron. SkipIfStillRunning is the
// run-lock the ledger requires: two overlapping runs would race the
// check-then-record sequence, so a cycle that outlives its slot simply
// swallows the next trigger.
func daemonCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the pipeline on a cron schedule",
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

			if _, err := pointSource(cfg, source, a.log); err != nil {
				return err
			}

			// Later runs pick up config edits (tolerances, dispatch
			// knobs) without a restart; schedule changes still need one.
			var current atomic.Pointer[config.Config]
			current.Store(cfg)
			go func() {
				if err := config.Watch(ctx, cfgPath, a.log, func(c *config.Config) {
					current.Store(c)
				}); err != nil {
					a.log.Warn("config watch unavailable", logx.Err(err))
				}
			}()

			loc := time.Local
			if cfg.Schedule.Timezone != "" {
				l, err := time.LoadLocation(cfg.Schedule.Timezone)
				if err != nil {
					return fmt.Errorf("schedule.timezone: %w", err)
				}
				loc = l
			}

			clog := cronLog{log: a.log}
			c := cron.New(
				cron.WithLocation(loc),
				cron.WithChain(cron.SkipIfStillRunning(clog)),
			)
			_, err = c.AddFunc(cfg.Schedule.Cron, func() {
				runCfg := current.Load()
				run, err := buildApp(runCfg)
				if err != nil {
					a.log.Error("scheduled run setup failed", logx.Err(err))
					return
				}
				defer run.Close()
				src, err := pointSource(runCfg, source, run.log)
				if err != nil {
					a.log.Error("scheduled run setup failed", logx.Err(err))
					return
				}
				rep, err := run.pipe.Run(ctx, src)
				logReport(run.log, rep)
				if err != nil {
					run.log.Error("scheduled run failed", logx.Err(err))
				}
			})
			if err != nil {
				return fmt.Errorf("schedule.cron: %w", err)
			}

			c.Start()
			defer c.Stop()
			a.log.Info("daemon started",
				logx.String("cron", cfg.Schedule.Cron),
				logx.String("timezone", loc.String()))
			_, _ = sd.SdNotify(false, sd.SdNotifyReady)

			<-ctx.Done()
			_, _ = sd.SdNotify(false, sd.SdNotifyStopping)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "online", "hotspot source: online or local")
	return cmd
}

// cronLog adapts logx to cron's logger so skipped overlapping runs show
// up in the normal log stream.
type cronLog struct{ log logx.Logger }

func (c cronLog) Info(msg string, kv ...interface{}) {
	c.log.Info("cron: "+msg, logx.Any("detail", kv))
}

func (c cronLog) Error(err error, msg string, kv ...interface{}) {
	c.log.Error("cron: "+msg, logx.Err(err), logx.Any("detail", kv))
}
