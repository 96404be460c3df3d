package harvest

import (
	"context"
	"time"

	"psharvest/pkg/backoff"
	"psharvest/pkg/errors"
	"psharvest/pkg/logger"
	"psharvest/pkg/metrics"
	"psharvest/pkg/pushshift"
	"psharvest/pkg/records"
)

// Config holds the loop parameters.
type Config struct {
	// Target is the record count at which the harvest completes.
	Target int
	// Politeness is the pause after every page fetch.
	Politeness time.Duration
	// Backoff is the initial wait after an empty round. It grows with each
	// further empty round and returns to this value after a productive one.
	Backoff time.Duration
	// EmptyRoundThreshold is how many consecutive empty rounds exhaust the
	// harvest.
	EmptyRoundThreshold int
}

// DefaultConfig returns the stock loop parameters.
func DefaultConfig() Config {
	return Config{
		Target:              125000,
		Politeness:          10 * time.Second,
		Backoff:             10 * time.Second,
		EmptyRoundThreshold: 3,
	}
}

// RoundReport summarizes one round.
type RoundReport struct {
	Round       int
	Raw         int // distinct raw items received
	Added       int // records new to the set
	Removed     int // junk records filtered out
	Failed      int // pages that errored
	Dropped     int // queries exhausted this round
	Live        int // queries left after the round
	Total       int // records held after the round
	EmptyRounds int
	Backoff     time.Duration
	State       State
}

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Harvester.
type Option func(*Harvester)

// WithRecords seeds the harvest with previously collected records.
func WithRecords(s *records.Set) Option {
	return func(h *Harvester) {
		h.records = s
	}
}

func WithLogger(l logger.Logger) Option {
	return func(h *Harvester) {
		h.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Harvester) {
		h.metrics = m
	}
}

// WithBackoff sets how the wait grows after consecutive empty rounds.
func WithBackoff(s backoff.Strategy) Option {
	return func(h *Harvester) {
		h.strategy = s
	}
}

// WithJunkFilter replaces the default sentinel-author filter.
func WithJunkFilter(f *records.JunkFilter) Option {
	return func(h *Harvester) {
		h.junk = f
	}
}

// WithSleeper replaces the real timer, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(h *Harvester) {
		h.sleep = s
	}
}

// WithProgress registers a callback invoked after every round.
func WithProgress(fn func(RoundReport)) Option {
	return func(h *Harvester) {
		h.progress = fn
	}
}

// Harvester pages every query backward in time until enough records have
// been collected. It is not safe for concurrent use.
type Harvester struct {
	fetcher  Fetcher
	cfg      Config
	queries  []pushshift.Query
	dropped  []string
	records  *records.Set
	junk     *records.JunkFilter
	strategy backoff.Strategy
	sleep    Sleeper
	logger   logger.Logger
	metrics  *metrics.Metrics
	progress func(RoundReport)

	backoff     time.Duration
	emptyRounds int
	round       int
	state       State
}

// New creates a harvester over queries.
func New(fetcher Fetcher, queries []pushshift.Query, cfg Config, opts ...Option) *Harvester {
	h := &Harvester{
		fetcher:  fetcher,
		cfg:      cfg,
		queries:  append([]pushshift.Query(nil), queries...),
		records:  records.NewSet(),
		junk:     records.NewJunkFilter(records.DefaultSentinels...),
		strategy: backoff.Squaring{Max: 60 * time.Second},
		sleep:    backoff.Wait,
		logger:   logger.GetLogger(),
		backoff:  cfg.Backoff,
		state:    Running,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.WithField("component", "harvest")
	return h
}

// Run performs rounds until the record count reaches the target. It returns
// an *ExhaustedError if the source runs dry first, or ctx.Err() if ctx is
// cancelled between rounds. A round in progress always runs to completion.
func (h *Harvester) Run(ctx context.Context) error {
	h.logger.InfoWithFields("Harvest started", map[string]interface{}{
		"queries": len(h.queries),
		"records": h.records.Len(),
		"target":  h.cfg.Target,
	})

	for h.records.Len() < h.cfg.Target {
		if err := ctx.Err(); err != nil {
			h.logger.WithError(err).Warn("Harvest interrupted between rounds")
			return err
		}
		if len(h.queries) == 0 {
			return h.exhaust(ReasonNoLiveQueries)
		}

		report, err := h.Round(ctx)
		if err != nil {
			return err
		}
		if report.State == Stalled {
			h.logger.WithField("wait", h.backoff).Info("Empty round, backing off")
			if err := h.sleep(ctx, h.backoff); err != nil {
				h.logger.WithError(err).Warn("Harvest interrupted during backoff")
				return err
			}
		}
	}

	h.state = Complete
	h.logger.InfoWithFields("Harvest complete", map[string]interface{}{
		"rounds":  h.round,
		"records": h.records.Len(),
	})
	return nil
}

// Round fetches one page for every live query, merges what came back and
// updates the empty-round bookkeeping. Cancellation of ctx does not interrupt
// a round. The error is non-nil only when this round exhausted the harvest.
func (h *Harvester) Round(ctx context.Context) (RoundReport, error) {
	ctx = context.WithoutCancel(ctx)
	h.round++
	report := RoundReport{Round: h.round}

	raw := records.RawSet{}
	live := make([]pushshift.Query, 0, len(h.queries))
	for _, q := range h.queries {
		next, ok := h.fetch(ctx, q, raw, &report)
		if ok {
			live = append(live, next)
		} else {
			h.dropped = append(h.dropped, q.Collection())
		}
		if err := h.sleep(ctx, h.cfg.Politeness); err != nil {
			h.logger.WithField("subreddit", q.Collection()).WithError(err).Debug("Politeness delay cut short")
		}
	}
	h.queries = live

	report.Raw = len(raw)
	report.Added = h.records.Merge(raw.Project())
	removed := h.junk.Filter(h.records)
	report.Removed = len(removed)
	report.Live = len(h.queries)
	report.Total = h.records.Len()

	var err error
	if report.Raw == 0 {
		h.emptyRounds++
		h.state = Stalled
		if h.emptyRounds >= h.cfg.EmptyRoundThreshold {
			err = h.exhaust(ReasonEmptyThreshold)
		} else {
			h.backoff = h.strategy.Next(h.backoff)
		}
	} else {
		h.emptyRounds = 0
		h.backoff = h.cfg.Backoff
		h.state = Running
	}
	report.EmptyRounds = h.emptyRounds
	report.Backoff = h.backoff
	report.State = h.state

	h.observeRound(report, len(removed))
	if h.progress != nil {
		h.progress(report)
	}
	return report, err
}

// fetch requests one page for q. It returns the query to keep polling and
// false when q is exhausted.
func (h *Harvester) fetch(ctx context.Context, q pushshift.Query, raw records.RawSet, report *RoundReport) (pushshift.Query, bool) {
	log := h.logger.WithField("subreddit", q.Collection())

	start := time.Now()
	items, err := h.fetcher.FetchPage(ctx, q.URL())
	took := time.Since(start)

	switch {
	case err != nil:
		report.Failed++
		h.observePage(q.Collection(), string(errors.TypeOf(err)), took)
		log.WithError(err).Warn("Page fetch failed, will retry next round")
		return q, true

	case len(items) == 0:
		report.Dropped++
		h.observePage(q.Collection(), "empty", took)
		log.Info("No more items, dropping query")
		return q, false
	}

	oldest := items[0].CreatedUTC
	for _, it := range items {
		oldest = min(oldest, it.CreatedUTC)
		raw.Add(it)
	}
	h.observePage(q.Collection(), "ok", took)
	log.DebugWithFields("Page fetched", map[string]interface{}{
		"items":  len(items),
		"cursor": oldest,
	})
	return q.WithCursor(oldest), true
}

func (h *Harvester) exhaust(reason string) error {
	h.state = Exhausted
	err := &ExhaustedError{
		Reason:      reason,
		Rounds:      h.round,
		EmptyRounds: h.emptyRounds,
		Records:     h.records.Len(),
		Target:      h.cfg.Target,
	}
	h.logger.WithError(err).Warn("Harvest exhausted")
	return err
}

func (h *Harvester) observePage(subreddit, outcome string, took time.Duration) {
	if h.metrics != nil {
		h.metrics.ObservePage(subreddit, outcome, took)
	}
}

func (h *Harvester) observeRound(r RoundReport, junk int) {
	logger.LogHarvestProgress(h.logger, r.Round, r.Total, h.cfg.Target)
	if h.metrics == nil {
		return
	}
	h.metrics.Rounds.Inc()
	if r.Raw == 0 {
		h.metrics.EmptyRounds.Inc()
	}
	h.metrics.RawItems.Add(float64(r.Raw))
	h.metrics.JunkRemoved.Add(float64(junk))
	h.metrics.Records.Set(float64(r.Total))
	h.metrics.LiveQueries.Set(float64(r.Live))
	h.metrics.Backoff.Set(r.Backoff.Seconds())
}

// Records returns the collected set. It is owned by the harvester until Run
// returns.
func (h *Harvester) Records() *records.Set {
	return h.records
}

func (h *Harvester) Len() int {
	return h.records.Len()
}

func (h *Harvester) State() State {
	return h.state
}

// Rounds returns how many rounds have run.
func (h *Harvester) Rounds() int {
	return h.round
}

// Queries returns the live queries with their current cursors.
func (h *Harvester) Queries() []pushshift.Query {
	return append([]pushshift.Query(nil), h.queries...)
}

// Cursors maps each live collection to its current "before" cursor.
func (h *Harvester) Cursors() map[string]uint64 {
	out := make(map[string]uint64, len(h.queries))
	for _, q := range h.queries {
		if c, ok := q.Cursor(); ok {
			out[q.Collection()] = c
		}
	}
	return out
}

// Dropped lists the collections whose queries have been exhausted.
func (h *Harvester) Dropped() []string {
	return append([]string(nil), h.dropped...)
}

// Backoff returns the current wait applied after an empty round.
func (h *Harvester) Backoff() time.Duration {
	return h.backoff
}
