// Package pipeline runs one scrape of an ETF family: fetch the source page,
// extract and enrich its flows table, rank the days, upsert the trailing
// window and notify subscribers.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mauv0809/etf-flows/internal/catalog"
	"github.com/mauv0809/etf-flows/internal/db"
	"github.com/mauv0809/etf-flows/internal/flows"
	"github.com/mauv0809/etf-flows/internal/ingest"
	"github.com/mauv0809/etf-flows/internal/metrics"
	"github.com/mauv0809/etf-flows/internal/models"
	"github.com/mauv0809/etf-flows/internal/notify"
	"github.com/mauv0809/etf-flows/internal/synchronizer"
)

// Fetcher returns the markup behind a URL.
type Fetcher interface {
	FetchMarkup(ctx context.Context, url string) (string, error)
}

// Config tunes a Pipeline.
type Config struct {
	// Window is the number of most recent days upserted per run.
	Window int
	// RunTimeout bounds a whole run. Zero disables it.
	RunTimeout time.Duration
	// Production tags notifications as coming from the live deployment.
	Production bool
}

// Pipeline orchestrates runs. Runs are sequential internally; concurrent
// runs rely on the store's atomic upsert.
type Pipeline struct {
	fetcher  Fetcher
	store    db.Store
	notifier notify.Notifier
	metrics  *metrics.Metrics
	cfg      Config

	now     func() time.Time
	extract func(markup string, layout ingest.Layout) ([]ingest.RawRow, error)

	mu   sync.RWMutex
	last map[string]*Report
}

// New builds a pipeline. notifier and m may be nil.
func New(f Fetcher, store db.Store, notifier notify.Notifier, m *metrics.Metrics, cfg Config) *Pipeline {
	if cfg.Window < 1 {
		cfg.Window = 1
	}
	return &Pipeline{
		fetcher:  f,
		store:    store,
		notifier: notifier,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
		extract:  ingest.ExtractTable,
		last:     make(map[string]*Report),
	}
}

// Run executes one run for src. The returned report is never nil; a failed
// run carries its error in Report.Err.
func (p *Pipeline) Run(ctx context.Context, src *catalog.Source, trigger string) *Report {
	rep := &Report{
		RunID:     uuid.NewString(),
		ETF:       src.ID,
		Trigger:   trigger,
		Results:   []synchronizer.Result{},
		StartedAt: p.now().UTC(),
	}
	logger := log.With().Str("run_id", rep.RunID).Str("etf", src.ID).Logger()
	logger.Info().Str("trigger", trigger).Msg("run started")

	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}

	p.run(logger.WithContext(ctx), src, rep)

	rep.FinishedAt = p.now().UTC()
	p.metrics.ObserveRun(src.ID, string(rep.Outcome), rep.Duration())
	p.remember(rep)

	ev := logger.Info()
	if rep.Outcome == OutcomeFailed {
		ev = logger.Error().Err(rep.err)
	}
	ev.Str("outcome", string(rep.Outcome)).
		Int("upserts", len(rep.Results)).
		Dur("elapsed", rep.Duration()).
		Msg("run finished")
	return rep
}

func (p *Pipeline) run(ctx context.Context, src *catalog.Source, rep *Report) {
	logger := zerolog.Ctx(ctx)

	logger.Debug().Str("state", string(StateFetching)).Str("url", src.URL).Send()
	markup, err := p.fetcher.FetchMarkup(ctx, src.URL)
	if err != nil {
		rep.fail(StateFetching, err)
		return
	}

	logger.Debug().Str("state", string(StateExtracting)).Int("bytes", len(markup)).Send()
	rows, err := p.extract(markup, src.Layout)
	if err != nil {
		rep.fail(StateExtracting, err)
		return
	}

	logger.Debug().Str("state", string(StateEnriching)).Int("rows", len(rows)).Send()
	series := ingest.Enrich(rows, src.Layout)
	rep.Tickers = src.Order(series.Tickers)
	if len(series.Records) == 0 {
		rep.Outcome = OutcomeEmpty
		logger.Warn().Msg("no dated rows in source table")
		return
	}

	window := trailing(flows.SortByDate(flows.Rank(series.Records)), p.cfg.Window)
	latest := window[len(window)-1]
	rep.Latest = &latest

	logger.Debug().Str("state", string(StatePersisting)).Int("days", len(window)).Send()
	syncer := synchronizer.New(p.store, src.ID)
	for _, rec := range window {
		if err := ctx.Err(); err != nil {
			rep.fail(StatePersisting, err)
			return
		}
		res, err := syncer.Upsert(ctx, rec)
		if err != nil {
			rep.fail(StatePersisting, err)
			return
		}
		rep.Results = append(rep.Results, res)
		p.metrics.CountUpsert(src.ID, string(res.Action))
		logger.Info().Str("key", res.Key).Str("action", string(res.Action)).Str("total", res.Total.String()).Msg("upserted")
	}

	rep.Outcome = OutcomeDone
	if p.notifier == nil {
		return
	}

	logger.Debug().Str("state", string(StateNotifying)).Send()
	if err := p.notifier.Notify(ctx, p.message(rep, latest)); err != nil {
		p.metrics.NotifyFailed(src.ID)
		logger.Warn().Err(err).Msg("notification failed")
	}
}

func (p *Pipeline) message(rep *Report, latest models.DayRecord) notify.Message {
	last := rep.Results[len(rep.Results)-1]
	return notify.Message{
		Type:       "flows",
		ETF:        rep.ETF,
		Time:       p.now().UTC(),
		Trigger:    rep.Trigger,
		Production: p.cfg.Production,
		Action:     "upserted",
		Key:        last.Key,
		Flows:      latest.Clone().Values,
		Total:      latest.Total,
	}
}

// trailing returns the last n records.
func trailing(records []models.DayRecord, n int) []models.DayRecord {
	if n >= len(records) {
		return records
	}
	return records[len(records)-n:]
}

func (p *Pipeline) remember(rep *Report) {
	p.mu.Lock()
	p.last[rep.ETF] = rep
	p.mu.Unlock()
}

// Last returns the most recent report of etf.
func (p *Pipeline) Last(etf string) (*Report, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rep, ok := p.last[etf]
	return rep, ok
}

// LastReports returns the most recent report of every ETF that ran.
func (p *Pipeline) LastReports() map[string]*Report {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]*Report, len(p.last))
	for k, v := range p.last {
		out[k] = v
	}
	return out
}
