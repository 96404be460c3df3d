package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"psharvest/pkg/backoff"
	"psharvest/pkg/checkpoint"
	"psharvest/pkg/config"
	"psharvest/pkg/harvest"
	"psharvest/pkg/logger"
	"psharvest/pkg/metrics"
	"psharvest/pkg/pushshift"
	"psharvest/pkg/ratelimit"
	"psharvest/pkg/records"
	"psharvest/pkg/snapshot"
	"psharvest/pkg/ui"
)

// ErrEndpointMismatch is returned when a checkpoint was written for another
// endpoint than the one configured.
var ErrEndpointMismatch = errors.New("checkpoint endpoint does not match configuration")

// ErrUntrackedSnapshot is returned when a snapshot exists without its
// checkpoint and the run would anonymize. Its rows may already be hashed.
var ErrUntrackedSnapshot = errors.New("snapshot has no checkpoint")

// Scraper drives one harvest from query construction to the final snapshot.
type Scraper struct {
	cfg         *config.Config
	endpoint    pushshift.Endpoint
	client      *pushshift.Client
	httpClient  *http.Client
	store       *snapshot.Store
	checkpoints *checkpoint.Manager
	metrics     *metrics.Metrics
	notifier    *ui.Notifier
	sleep       harvest.Sleeper
	logger      logger.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithRegisterer registers harvest metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Scraper) {
		s.metrics = metrics.New(reg)
	}
}

// WithNotifier reports the outcome through n.
func WithNotifier(n *ui.Notifier) Option {
	return func(s *Scraper) {
		s.notifier = n
	}
}

// WithHTTPClient replaces the HTTP client used for search requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Scraper) {
		s.httpClient = hc
	}
}

// WithSleeper replaces the real timer used for delays and backoff.
func WithSleeper(fn harvest.Sleeper) Option {
	return func(s *Scraper) {
		s.sleep = fn
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) {
		s.logger = l
	}
}

// New creates a Scraper from cfg. The access token, if any, must already be
// resolved into cfg.Auth.AccessToken.
func New(cfg *config.Config, opts ...Option) (*Scraper, error) {
	endpoint, err := pushshift.ParseEndpoint(cfg.Source.Endpoint)
	if err != nil {
		return nil, err
	}

	s := &Scraper{
		cfg:      cfg,
		endpoint: endpoint,
		logger:   logger.GetLogger(),
		notifier: ui.NewNotifier(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("snapshot", cfg.Harvest.Snapshot)

	s.client = pushshift.NewClient(cfg.Source.Timeout, s.logger)
	if s.httpClient != nil {
		s.client.SetHTTPClient(s.httpClient)
	}
	if cfg.Source.UserAgent != "" {
		s.client.SetHeader("User-Agent", cfg.Source.UserAgent)
	}
	s.client.SetAccessToken(cfg.Auth.AccessToken)
	if cfg.RateLimit.RequestsPerMinute > 0 {
		s.client.SetLimiter(ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize))
	}

	s.store = snapshot.New(cfg.Harvest.Snapshot, s.logger)
	s.checkpoints = checkpoint.NewManager(cfg.Harvest.Snapshot, s.logger)
	return s, nil
}

// Result describes how a harvest ended.
type Result struct {
	State      harvest.State
	Rounds     int
	Records    int
	Snapshot   string
	Anonymized bool
	RunID      string
}

// BuildQueries creates one query per subreddit from the source settings.
func (s *Scraper) BuildQueries(subreddits []string) ([]pushshift.Query, error) {
	src := s.cfg.Source
	b := pushshift.NewBuilder(s.endpoint, pushshift.WithBaseURL(src.BaseURL))

	if err := b.Size(src.PageSize); err != nil {
		return nil, err
	}
	if src.After != "" {
		t, err := pushshift.ParseTime(src.After)
		if err != nil {
			return nil, fmt.Errorf("invalid after: %w", err)
		}
		if err := b.After(t); err != nil {
			return nil, err
		}
	}
	if src.Before != "" {
		t, err := pushshift.ParseTime(src.Before)
		if err != nil {
			return nil, fmt.Errorf("invalid before: %w", err)
		}
		if err := b.Before(t); err != nil {
			return nil, err
		}
	}
	if src.ScoreThreshold > 0 {
		if err := b.ScoreThreshold(src.ScoreThreshold); err != nil {
			return nil, err
		}
	}

	urls, err := b.BuildForEach(subreddits)
	if err != nil {
		return nil, err
	}
	return pushshift.NewQueries(urls), nil
}

// Run harvests subreddits into the snapshot. An existing snapshot and
// checkpoint are resumed unless forceRestart is set.
//
// The snapshot and checkpoint are saved after every round. When ctx is
// cancelled the records collected so far are saved as they are and ctx.Err()
// is returned. Otherwise the records are anonymized (if configured) and
// saved, and the checkpoint is marked final. An *harvest.ExhaustedError is
// returned alongside a valid Result when the source ran dry.
func (s *Scraper) Run(ctx context.Context, subreddits []string, forceRestart bool) (*Result, error) {
	queries, err := s.BuildQueries(subreddits)
	if err != nil {
		return nil, fmt.Errorf("failed to build queries: %w", err)
	}

	cp, seed, err := s.prepare(forceRestart)
	if err != nil {
		return nil, err
	}
	queries = s.resume(cp, queries)

	strategy, err := backoff.New(s.cfg.Harvest.Backoff, s.cfg.Harvest.MaxDelay)
	if err != nil {
		return nil, err
	}

	tracker := ui.NewRoundTracker(s.cfg.Harvest.Target, seed.Len())
	log := s.logger.WithField("run_id", cp.RunID)

	var h *harvest.Harvester
	opts := []harvest.Option{
		harvest.WithRecords(seed),
		harvest.WithLogger(log),
		harvest.WithBackoff(strategy),
		harvest.WithJunkFilter(records.NewJunkFilter(s.cfg.Harvest.SentinelAuthors...)),
		harvest.WithProgress(func(r harvest.RoundReport) {
			tracker.Observe(r)
			if err := s.persist(cp, h); err != nil {
				log.WithError(err).Error("Failed to save progress")
			}
		}),
	}
	if s.metrics != nil {
		opts = append(opts, harvest.WithMetrics(s.metrics))
	}
	if s.sleep != nil {
		opts = append(opts, harvest.WithSleeper(s.sleep))
	}

	h = harvest.New(s.client, queries, harvest.Config{
		Target:              s.cfg.Harvest.Target,
		Politeness:          s.cfg.Harvest.Delay,
		Backoff:             s.cfg.Harvest.Delay,
		EmptyRoundThreshold: s.cfg.Harvest.EmptyRoundThreshold,
	}, opts...)

	runErr := h.Run(ctx)
	tracker.PrintSummary()

	result := &Result{
		State:    h.State(),
		Rounds:   h.Rounds(),
		Snapshot: s.store.Path(),
		RunID:    cp.RunID,
	}

	var exhausted *harvest.ExhaustedError
	if runErr != nil && !errors.As(runErr, &exhausted) {
		log.WithError(runErr).Warn("Harvest stopped early, saving records as collected")
		if err := s.persist(cp, h); err != nil {
			return result, errors.Join(runErr, err)
		}
		result.Records = h.Len()
		return result, runErr
	}

	if err := s.finalize(cp, h, result); err != nil {
		return result, err
	}

	if exhausted != nil {
		s.notifier.SendError("Harvest exhausted", fmt.Sprintf("%s after %d rounds, %d records saved to %s",
			exhausted.Reason, exhausted.Rounds, result.Records, result.Snapshot))
		return result, runErr
	}
	s.notifier.SendSuccess("Harvest complete", fmt.Sprintf("%d records saved to %s", result.Records, result.Snapshot))
	return result, nil
}

// prepare loads or creates the checkpoint and the seed record set.
func (s *Scraper) prepare(forceRestart bool) (*checkpoint.Checkpoint, *records.Set, error) {
	cp, err := s.checkpoints.Load()
	if err != nil {
		return nil, nil, err
	}

	if forceRestart {
		if cp != nil {
			s.logger.WithField("run_id", cp.RunID).Warn("Discarding checkpoint")
			if err := s.checkpoints.Delete(); err != nil {
				return nil, nil, err
			}
		}
		cp = nil
	} else if cp != nil {
		if err := cp.Resumable(); err != nil {
			return nil, nil, fmt.Errorf("%w (use --force-restart to harvest again)", err)
		}
		if cp.Endpoint != s.endpoint.String() {
			return nil, nil, fmt.Errorf("%w: checkpoint has %q, configured %q", ErrEndpointMismatch, cp.Endpoint, s.endpoint)
		}
	}

	if cp == nil && !forceRestart && s.cfg.Harvest.Anonymize && s.store.Exists() {
		return nil, nil, fmt.Errorf("%w: %s may already be anonymized (use --force-restart to harvest again)",
			ErrUntrackedSnapshot, s.store.Path())
	}

	seed := records.NewSet()
	if !forceRestart && s.store.Exists() {
		seed, err = s.store.Load()
		if err != nil {
			return nil, nil, err
		}
	}

	if cp == nil {
		cp, err = s.checkpoints.Create(s.endpoint.String())
		if err != nil {
			return nil, nil, err
		}
	}
	return cp, seed, nil
}

// resume applies saved cursors and leaves out collections that already ran
// dry.
func (s *Scraper) resume(cp *checkpoint.Checkpoint, queries []pushshift.Query) []pushshift.Query {
	out := make([]pushshift.Query, 0, len(queries))
	for _, q := range queries {
		name := q.Collection()
		if cp.IsDropped(name) {
			s.logger.WithField("subreddit", name).Info("Skipping exhausted subreddit")
			continue
		}
		if cursor, ok := cp.Cursor(name); ok {
			q = q.WithCursor(cursor)
			s.logger.WithFields(map[string]interface{}{
				"subreddit": name,
				"cursor":    cursor,
			}).Info("Resuming subreddit")
		}
		out = append(out, q)
	}
	return out
}

// persist saves the records first so the checkpoint never points past them.
func (s *Scraper) persist(cp *checkpoint.Checkpoint, h *harvest.Harvester) error {
	if err := s.store.Save(h.Records()); err != nil {
		return err
	}
	return s.checkpoints.Update(cp, checkpoint.Progress{
		Cursors: h.Cursors(),
		Dropped: h.Dropped(),
		Rounds:  h.Rounds(),
		Records: h.Len(),
	})
}

func (s *Scraper) finalize(cp *checkpoint.Checkpoint, h *harvest.Harvester, result *Result) error {
	set := h.Records()
	if s.cfg.Harvest.Anonymize {
		before := set.Len()
		records.Anonymize(set)
		s.logger.InfoWithFields("Records anonymized", map[string]interface{}{
			"records":   set.Len(),
			"collapsed": before - set.Len(),
		})
	}

	if err := s.store.Save(set); err != nil {
		return err
	}
	result.Records = set.Len()

	if !s.cfg.Harvest.Anonymize {
		return s.checkpoints.Update(cp, checkpoint.Progress{
			Cursors: h.Cursors(),
			Dropped: h.Dropped(),
			Rounds:  h.Rounds(),
			Records: set.Len(),
		})
	}
	if err := s.checkpoints.MarkAnonymized(cp, set.Len()); err != nil {
		return err
	}
	result.Anonymized = true
	return nil
}
