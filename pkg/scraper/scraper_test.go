package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psharvest/pkg/checkpoint"
	"psharvest/pkg/config"
	"psharvest/pkg/harvest"
	"psharvest/pkg/logger"
	"psharvest/pkg/pushshift"
	"psharvest/pkg/records"
	"psharvest/pkg/snapshot"
	"psharvest/pkg/ui"
)

// archive serves every subreddit's items newest first, honouring the before
// cursor and page size the way the search API does.
type archive struct {
	mu       sync.Mutex
	items    map[string][]records.RawRecord
	requests []request
	onServe  func()
}

type request struct {
	subreddit string
	before    uint64
	query     string
}

func newArchive(perSubreddit int, subs ...string) *archive {
	a := &archive{items: make(map[string][]records.RawRecord)}
	for _, sub := range subs {
		for i := 0; i < perSubreddit; i++ {
			created := uint64(100 - i)
			a.items[sub] = append(a.items[sub], records.RawRecord{
				Author:     fmt.Sprintf("user%d", i),
				Body:       "body",
				CreatedUTC: created,
				Permalink:  fmt.Sprintf("/r/%s/comments/id%d/topic%d/c%d/", sub, i, i, i),
				Score:      int64(i),
				Subreddit:  sub,
			})
		}
	}
	return a
}

func (a *archive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/comment/search" {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	sub := q.Get(pushshift.ParamSubreddit)
	before, _ := strconv.ParseUint(q.Get(pushshift.ParamBefore), 10, 64)
	size, _ := strconv.Atoi(q.Get(pushshift.ParamSize))

	a.mu.Lock()
	a.requests = append(a.requests, request{subreddit: sub, before: before, query: r.URL.RawQuery})
	var page []records.RawRecord
	for _, it := range a.items[sub] {
		if it.CreatedUTC < before && len(page) < size {
			page = append(page, it)
		}
	}
	onServe := a.onServe
	a.mu.Unlock()

	if onServe != nil {
		onServe()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pushshift.SearchResponse{Data: page})
}

func (a *archive) requestsFor(sub string) []request {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []request
	for _, r := range a.requests {
		if r.subreddit == sub {
			out = append(out, r)
		}
	}
	return out
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Source.BaseURL = baseURL
	cfg.Source.PageSize = 4
	cfg.Source.Timeout = 5 * time.Second
	cfg.Harvest.Snapshot = filepath.Join(t.TempDir(), "out.csv")
	cfg.Harvest.Delay = 0
	cfg.RateLimit.RequestsPerMinute = 0
	return cfg
}

func newTestScraper(t *testing.T, cfg *config.Config, opts ...Option) *Scraper {
	t.Helper()
	ui.SetOutput(io.Discard, io.Discard)
	t.Cleanup(func() { ui.SetOutput(nil, nil) })

	opts = append([]Option{WithSleeper(noSleep), WithLogger(logger.NewTestLogger())}, opts...)
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	return s
}

func TestNew_InvalidEndpoint(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Endpoint = "media"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestBuildQueries(t *testing.T) {
	cfg := testConfig(t, "http://archive.test")
	cfg.Source.After = "7d"
	cfg.Source.ScoreThreshold = 5
	s := newTestScraper(t, cfg)

	queries, err := s.BuildQueries([]string{"golang", "rust"})
	require.NoError(t, err)
	require.Len(t, queries, 2)

	for i, sub := range []string{"golang", "rust"} {
		v := queries[i].URL().Query()
		assert.Equal(t, sub, v.Get(pushshift.ParamSubreddit))
		assert.Equal(t, "4", v.Get(pushshift.ParamSize))
		assert.Equal(t, "7d", v.Get(pushshift.ParamAfter))
		assert.Equal(t, ">5", v.Get(pushshift.ParamScore))
		assert.Equal(t, "/comment/search", queries[i].URL().Path)
	}

	_, err = s.BuildQueries([]string{"bad name"})
	assert.ErrorIs(t, err, pushshift.ErrInvalidCollection)
}

func TestRun_CompletesAndAnonymizes(t *testing.T) {
	arch := newArchive(10, "golang", "rust")
	srv := httptest.NewServer(arch)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Harvest.Target = 15
	reg := prometheus.NewRegistry()
	s := newTestScraper(t, cfg, WithRegisterer(reg))

	result, err := s.Run(context.Background(), []string{"golang", "rust"}, false)
	require.NoError(t, err)
	assert.Equal(t, harvest.Complete, result.State)
	assert.Equal(t, 2, result.Rounds)
	assert.Equal(t, 16, result.Records)
	assert.True(t, result.Anonymized)

	saved, err := snapshot.New(cfg.Harvest.Snapshot, logger.NewNopLogger()).Load()
	require.NoError(t, err)
	assert.Equal(t, 16, saved.Len())
	for _, r := range saved.Sorted() {
		assert.Len(t, r.Author, 64, "author should be a hex digest")
		assert.Len(t, r.Permalink, 64, "permalink should be a topic digest")
	}
	assert.True(t, saved.Contains(records.Record{
		Author:     records.Digest("user0"),
		CreatedUTC: 100,
		Permalink:  records.Digest("topic0"),
		Subreddit:  "golang",
	}))

	cp, err := checkpoint.NewManager(cfg.Harvest.Snapshot, logger.NewNopLogger()).Load()
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.True(t, cp.Anonymized)
	assert.Equal(t, result.RunID, cp.RunID)

	assert.Equal(t, float64(2), testutil.ToFloat64(s.metrics.Rounds))
	assert.Equal(t, float64(16), testutil.ToFloat64(s.metrics.Records))

	// an anonymized snapshot cannot be harvested into again
	_, err = s.Run(context.Background(), []string{"golang", "rust"}, false)
	assert.ErrorIs(t, err, checkpoint.ErrAnonymized)
}

func TestRun_ForceRestartIgnoresFinishedSnapshot(t *testing.T) {
	arch := newArchive(10, "golang")
	srv := httptest.NewServer(arch)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Harvest.Target = 4
	s := newTestScraper(t, cfg)

	first, err := s.Run(context.Background(), []string{"golang"}, false)
	require.NoError(t, err)

	second, err := s.Run(context.Background(), []string{"golang"}, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, 4, second.Records)
}

func TestRun_SnapshotWithoutCheckpointIsRefused(t *testing.T) {
	arch := newArchive(10, "golang")
	srv := httptest.NewServer(arch)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Harvest.Target = 4
	s := newTestScraper(t, cfg)

	_, err := s.Run(context.Background(), []string{"golang"}, false)
	require.NoError(t, err)
	require.NoError(t, os.Remove(cfg.Harvest.Snapshot+checkpoint.Suffix))

	before, err := os.ReadFile(cfg.Harvest.Snapshot)
	require.NoError(t, err)

	cfg.Harvest.Target = 8
	_, err = s.Run(context.Background(), []string{"golang"}, false)
	require.ErrorIs(t, err, ErrUntrackedSnapshot)

	after, err := os.ReadFile(cfg.Harvest.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "snapshot must be left untouched")
	assert.False(t, checkpoint.NewManager(cfg.Harvest.Snapshot, logger.NewNopLogger()).Exists())

	saved, err := snapshot.New(cfg.Harvest.Snapshot, logger.NewNopLogger()).Load()
	require.NoError(t, err)
	assert.False(t, saved.Contains(records.Record{
		Author:     records.Digest(records.Digest("user0")),
		CreatedUTC: 100,
		Permalink:  records.Digest(records.Digest("topic0")),
		Subreddit:  "golang",
	}))

	result, err := s.Run(context.Background(), []string{"golang"}, true)
	require.NoError(t, err)
	assert.Equal(t, 8, result.Records)
}

func TestRun_ExhaustedSavesRecords(t *testing.T) {
	arch := newArchive(10, "golang", "rust")
	srv := httptest.NewServer(arch)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Harvest.Target = 1000
	cfg.Harvest.Anonymize = false
	s := newTestScraper(t, cfg)

	result, err := s.Run(context.Background(), []string{"golang", "rust"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, harvest.ErrExhausted)
	assert.Equal(t, harvest.Exhausted, result.State)
	assert.Equal(t, 20, result.Records)
	assert.False(t, result.Anonymized)

	// cursors walk back to the oldest item of each page
	var befores []uint64
	for _, r := range arch.requestsFor("golang") {
		befores = append(befores, r.before)
	}
	assert.Equal(t, []uint64{pushshift.MaxBefore, 97, 93, 91}, befores)

	saved, err := snapshot.New(cfg.Harvest.Snapshot, logger.NewNopLogger()).Load()
	require.NoError(t, err)
	assert.Equal(t, 20, saved.Len())
	assert.True(t, saved.Contains(records.Record{
		Author:     "user9",
		CreatedUTC: 91,
		Permalink:  "/r/golang/comments/id9/topic9/c9/",
		Subreddit:  "golang",
	}))

	cp, err := checkpoint.NewManager(cfg.Harvest.Snapshot, logger.NewNopLogger()).Load()
	require.NoError(t, err)
	assert.False(t, cp.Anonymized)
	dropped := append([]string(nil), cp.Dropped...)
	sort.Strings(dropped)
	assert.Equal(t, []string{"golang", "rust"}, dropped)
}

func TestRun_ResumesFromCheckpoint(t *testing.T) {
	arch := newArchive(10, "golang", "rust")
	srv := httptest.NewServer(arch)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Harvest.Target = 1000
	cfg.Harvest.Anonymize = false

	seedRecord := records.Record{Author: "user5", CreatedUTC: 95, Permalink: "/r/golang/comments/id5/topic5/c5/", Subreddit: "golang"}
	require.NoError(t, snapshot.New(cfg.Harvest.Snapshot, logger.NewNopLogger()).Save(records.NewSet(seedRecord)))

	mgr := checkpoint.NewManager(cfg.Harvest.Snapshot, logger.NewNopLogger())
	cp, err := mgr.Create(pushshift.Comment.String())
	require.NoError(t, err)
	require.NoError(t, mgr.Update(cp, checkpoint.Progress{
		Cursors: map[string]uint64{"golang": 95},
		Dropped: []string{"rust"},
		Rounds:  3,
		Records: 1,
	}))

	s := newTestScraper(t, cfg)
	result, err := s.Run(context.Background(), []string{"golang", "rust"}, false)
	assert.ErrorIs(t, err, harvest.ErrExhausted)
	assert.Equal(t, cp.RunID, result.RunID)

	assert.Empty(t, arch.requestsFor("rust"), "dropped subreddit must not be polled")
	golang := arch.requestsFor("golang")
	require.NotEmpty(t, golang)
	assert.Equal(t, uint64(95), golang[0].before)

	// seed plus items 94..91
	assert.Equal(t, 5, result.Records)
}

func TestRun_EndpointMismatch(t *testing.T) {
	cfg := testConfig(t, "http://archive.test")
	mgr := checkpoint.NewManager(cfg.Harvest.Snapshot, logger.NewNopLogger())
	_, err := mgr.Create(pushshift.Submission.String())
	require.NoError(t, err)

	s := newTestScraper(t, cfg)
	_, err = s.Run(context.Background(), []string{"golang"}, false)
	assert.ErrorIs(t, err, ErrEndpointMismatch)
}

func TestRun_CancelSavesUnanonymized(t *testing.T) {
	arch := newArchive(10, "golang")
	srv := httptest.NewServer(arch)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	arch.onServe = cancel

	cfg := testConfig(t, srv.URL)
	cfg.Harvest.Target = 1000
	s := newTestScraper(t, cfg)

	result, err := s.Run(ctx, []string{"golang"}, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, result.Rounds, "the round in flight completes")
	assert.Equal(t, 4, result.Records)
	assert.False(t, result.Anonymized)

	saved, err := snapshot.New(cfg.Harvest.Snapshot, logger.NewNopLogger()).Load()
	require.NoError(t, err)
	assert.True(t, saved.Contains(records.Record{
		Author:     "user0",
		CreatedUTC: 100,
		Permalink:  "/r/golang/comments/id0/topic0/c0/",
		Subreddit:  "golang",
	}))

	cp, err := checkpoint.NewManager(cfg.Harvest.Snapshot, logger.NewNopLogger()).Load()
	require.NoError(t, err)
	assert.False(t, cp.Anonymized)
	assert.Equal(t, map[string]uint64{"golang": 97}, cp.Cursors)
	assert.NoError(t, cp.Resumable())

	_, err = os.Stat(cfg.Harvest.Snapshot + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
