// Package dispatch fans alerts out to recipients: region filter, dedup
// against the delivery ledger, rate-limited send, then ledger append.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"torfbot/internal/alert"
	"torfbot/internal/ledger"
	"torfbot/internal/subs"

	logx "torfbot/pkg/logx"
)

// Sender delivers one rendered message to one recipient. Supplied by the
// transport (Telegram in production, a fake in tests).
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

type Config struct {
	Workers     int
	RatePerSec  int
	RetryMax    int
	SendTimeout time.Duration
}

type Dispatcher struct {
	cfg     Config
	sender  Sender
	store   ledger.Store
	limiter *rate.Limiter
	log     logx.Logger
	now     func() time.Time
}

func New(cfg Config, sender Sender, store ledger.Store, log logx.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		cfg:     cfg,
		sender:  sender,
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		log:     log,
		now:     time.Now,
	}
}

type job struct {
	alert alert.Alert
	user  int64
	text  string
}

// Dispatch delivers each alert to each eligible recipient at most once.
//
// All ledger reads happen up front, before any send: if the ledger
// cannot answer "already sent?", the whole run aborts (fail closed)
// rather than risking duplicates. Each (alert, recipient) pair occurs at
// most once in the job set, so the pair's check-then-record sequence is
// trivially serialized even though sends run on multiple workers.
func (d *Dispatcher) Dispatch(ctx context.Context, alerts []alert.Alert, recipients []subs.Subscription) (Report, error) {
	var rep Report
	if len(alerts) == 0 || len(recipients) == 0 {
		d.log.Info("nothing to dispatch", logx.Int("alerts", len(alerts)), logx.Int("recipients", len(recipients)))
		return rep, nil
	}

	var jobs []job
	for _, a := range alerts {
		text := renderMessage(a)
		for _, r := range recipients {
			if !r.WantsRegion(a.Region) {
				rep.SkippedByFilter++
				continue
			}
			sent, err := d.store.WasSent(ctx, a.ID, r.UserID)
			if err != nil {
				return rep, fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
			}
			if sent {
				rep.SkippedByDedup++
				d.log.Debug("already sent", logx.Int64("alert", a.ID), logx.Int64("user", r.UserID))
				continue
			}
			jobs = append(jobs, job{alert: a, user: r.UserID, text: text})
		}
	}
	if len(jobs) == 0 {
		d.log.Info("dispatch done", logx.Int("sent", 0),
			logx.Int("skipped_filter", rep.SkippedByFilter),
			logx.Int("skipped_dedup", rep.SkippedByDedup))
		return rep, nil
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		queue = make(chan job)
	)
	workers := d.cfg.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				ok := d.deliver(ctx, j)
				mu.Lock()
				if ok {
					rep.Sent++
				} else {
					rep.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, j := range jobs {
		select {
		case <-ctx.Done():
			// Interrupted mid-dispatch: already-recorded entries stay
			// valid, the next run resumes where this one stopped.
			close(queue)
			wg.Wait()
			return rep, ctx.Err()
		case queue <- j:
		}
	}
	close(queue)
	wg.Wait()

	d.log.Info("dispatch done",
		logx.Int("sent", rep.Sent),
		logx.Int("skipped_filter", rep.SkippedByFilter),
		logx.Int("skipped_dedup", rep.SkippedByDedup),
		logx.Int("failed", rep.Failed))
	return rep, nil
}

// deliver sends one message and, only after a confirmed send, appends
// the ledger record. A failed send never produces a ledger entry and
// never affects other recipients.
func (d *Dispatcher) deliver(ctx context.Context, j job) bool {
	if err := d.limiter.Wait(ctx); err != nil {
		return false
	}

	var last error
	for attempt := 0; attempt <= d.cfg.RetryMax; attempt++ {
		sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		err := d.sender.Send(sctx, j.user, j.text)
		cancel()
		if err == nil {
			last = nil
			break
		}
		last = err
		if attempt == d.cfg.RetryMax || ctx.Err() != nil {
			break
		}
		delay := time.Duration(200+100*attempt) * time.Millisecond
		tmr := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			return false
		case <-tmr.C:
		}
	}
	if last != nil {
		d.log.Error("send failed", logx.Int64("alert", j.alert.ID), logx.Int64("user", j.user), logx.Err(last))
		return false
	}

	rec := ledger.Record{
		AlertID: j.alert.ID,
		UserID:  j.user,
		Region:  j.alert.Region,
		Title:   j.alert.Title,
		Date:    d.now().Format("2006-01-02"),
		Status:  ledger.StatusSent,
	}
	if err := d.store.RecordSent(ctx, rec); err != nil {
		// Delivered but unrecorded: the one state that can cause a
		// duplicate later. Loud log so operators can patch the ledger.
		d.log.Error("sent but not recorded in ledger",
			logx.Int64("alert", j.alert.ID), logx.Int64("user", j.user), logx.Err(err))
		return true
	}
	d.log.Info("alert sent", logx.Int64("alert", j.alert.ID), logx.Int64("user", j.user))
	return true
}
