// Package pipeline wires the run-to-completion batch: acquire points,
// match against peatland polygons with per-sensor tolerance, aggregate
// into alerts, snapshot, and dispatch notifications.
package pipeline

import (
	"context"

	"torfbot/internal/alert"
	"torfbot/internal/dispatch"
	"torfbot/internal/geo"
	"torfbot/internal/subs"

	logx "torfbot/pkg/logx"
)

// PointSource yields the uniform hotspot table for one run. Implemented
// by the FIRMS online feed and the local archive reader; the pipeline
// does not care which.
type PointSource interface {
	Points(ctx context.Context) ([]geo.Point, error)
}

type Pipeline struct {
	store        *geo.Store
	matcher      *geo.Matcher
	aggregator   *alert.Aggregator
	directory    *subs.Directory
	dispatcher   *dispatch.Dispatcher
	snapshotPath string
	log          logx.Logger
}

func New(
	store *geo.Store,
	matcher *geo.Matcher,
	aggregator *alert.Aggregator,
	directory *subs.Directory,
	dispatcher *dispatch.Dispatcher,
	snapshotPath string,
	log logx.Logger,
) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pipeline{
		store:        store,
		matcher:      matcher,
		aggregator:   aggregator,
		directory:    directory,
		dispatcher:   dispatcher,
		snapshotPath: snapshotPath,
		log:          log,
	}
}

// Run executes one full cycle. It aborts only when every point source
// failed, the recipient directory is unreadable, or the ledger cannot
// guarantee dedup; every per-item problem is contained and logged.
func (p *Pipeline) Run(ctx context.Context, src PointSource) (dispatch.Report, error) {
	points, err := src.Points(ctx)
	if err != nil {
		return dispatch.Report{}, err
	}

	polygons, err := p.store.Load()
	if err != nil {
		// No polygons means no possible matches, not a crash.
		p.log.Warn("continuing without polygons", logx.Err(err))
		polygons = nil
	}

	matches := p.matcher.Match(points, polygons)
	alerts := p.aggregator.Aggregate(ctx, matches)
	if len(alerts) == 0 {
		p.log.Info("run finished: no alerts")
		return dispatch.Report{}, nil
	}

	if err := alert.SaveSnapshot(p.snapshotPath, alerts); err != nil {
		p.log.Warn("alert snapshot not saved", logx.String("path", p.snapshotPath), logx.Err(err))
	}

	return p.Deliver(ctx, alerts)
}

// Deliver dispatches an alert set to the current recipients. Also used
// on its own to re-send a cached snapshot; ledger dedup makes that
// idempotent.
func (p *Pipeline) Deliver(ctx context.Context, alerts []alert.Alert) (dispatch.Report, error) {
	recipients, err := p.directory.Recipients(ctx)
	if err != nil {
		return dispatch.Report{}, err
	}
	if len(recipients) == 0 {
		p.log.Warn("no recipients configured")
		return dispatch.Report{}, nil
	}
	return p.dispatcher.Dispatch(ctx, alerts, recipients)
}
