package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"psharvest/pkg/auth"
	"psharvest/pkg/config"
	"psharvest/pkg/harvest"
	"psharvest/pkg/logger"
	"psharvest/pkg/metrics"
	"psharvest/pkg/scraper"
	"psharvest/pkg/ui"
)

var (
	target       int
	timeout      time.Duration
	endpoint     string
	pageSize     uint32
	after        string
	score        uint32
	delay        time.Duration
	rateLimit    int
	accountName  string
	metricsAddr  string
	forceRestart bool
	noAnonymize  bool
	notify       bool
)

var harvestCmd = &cobra.Command{
	Use:   "harvest <snapshot.csv> [subreddit...]",
	Short: "Collect records from one or more subreddits into a snapshot",
	Long: `Collect records from the given subreddits into a CSV snapshot.

Every round requests one page per subreddit, newest first, and moves each
subreddit's cursor back to the oldest record it returned. The harvest stops
once the target number of distinct records is reached, or reports exhaustion
when every subreddit has run dry or several rounds in a row returned nothing.

The snapshot and its checkpoint (<snapshot>.checkpoint.json) are written after
every round. Running the same command again resumes where it stopped. Once a
harvest finishes, the snapshot is anonymized and cannot be resumed without
--force-restart.

Subreddits may also be configured with harvest.subreddits or
PSHARVEST_SUBREDDITS.`,
	Example: `  # Collect 125000 comments from two subreddits
  psharvest harvest comments.csv golang rust

  # Smaller target, top comments only, from the last 30 days
  psharvest harvest top.csv golang -n 5000 --score 10 --after 30d

  # Start over, ignoring an existing snapshot and checkpoint
  psharvest harvest comments.csv golang --force-restart

  # Expose Prometheus metrics while harvesting
  psharvest harvest comments.csv golang --metrics-addr :9090`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)
	addHarvestFlags(harvestCmd)
	addHarvestFlags(rootCmd)

	// a snapshot path as the first argument runs harvest
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runHarvest(cmd, args)
	}
}

func addHarvestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVarP(&target, "target", "n", 0, "number of distinct records to collect (default 125000)")
	f.DurationVarP(&timeout, "timeout", "t", 0, "per-request timeout (default 90s)")
	f.StringVar(&endpoint, "endpoint", "", "search endpoint: comment, submission or subreddit")
	f.Uint32Var(&pageSize, "page-size", 0, "records per page, at most 1000")
	f.StringVar(&after, "after", "", "only records newer than this (epoch seconds or 30d, 12h, ...)")
	f.Uint32Var(&score, "score", 0, "only records scoring above this")
	f.DurationVar(&delay, "delay", 0, "pause after every request and initial backoff (default 10s)")
	f.IntVar(&rateLimit, "rate-limit", 0, "maximum requests per minute")
	f.StringVarP(&accountName, "account", "a", "", "stored account whose access token to use")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolVar(&forceRestart, "force-restart", false, "ignore an existing snapshot and checkpoint")
	f.BoolVar(&noAnonymize, "no-anonymize", false, "keep authors and permalinks in the final snapshot")
	f.BoolVar(&notify, "notify", false, "send a desktop notification when the harvest ends")
}

func harvestFlags(snapshotPath string, subreddits []string) map[string]interface{} {
	return map[string]interface{}{
		"snapshot":     snapshotPath,
		"subreddits":   subreddits,
		"target":       target,
		"timeout":      timeout,
		"endpoint":     endpoint,
		"page-size":    pageSize,
		"after":        after,
		"score":        score,
		"delay":        delay,
		"rate-limit":   rateLimit,
		"account":      accountName,
		"metrics-addr": metricsAddr,
		"no-anonymize": noAnonymize,
		"log-level":    logLevel,
	}
}

func runHarvest(cmd *cobra.Command, args []string) error {
	snapshotPath := strings.TrimSpace(args[0])
	subreddits := args[1:]

	cfg, err := config.Load(configFile, harvestFlags(snapshotPath, subreddits))
	if err != nil {
		return err
	}
	if len(cfg.Harvest.Subreddits) == 0 {
		return errors.New("no subreddits given: pass them after the snapshot path or set harvest.subreddits")
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("psharvest starting")

	if err := resolveAccessToken(cfg); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.Metrics.Address != "" {
		srv := metrics.NewServer(cfg.Metrics.Address, cfg.Metrics.Path, reg)
		errCh := srv.Start()
		go func() {
			if err, ok := <-errCh; ok && err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		ui.PrintInfo("Metrics", "http://"+cfg.Metrics.Address+cfg.Metrics.Path)
	}

	opts := []scraper.Option{scraper.WithRegisterer(reg)}
	if notify {
		opts = append(opts, scraper.WithNotifier(ui.NewNotifier(ui.PlatformSender())))
	}
	s, err := scraper.New(cfg, opts...)
	if err != nil {
		return err
	}

	ui.PrintInfo("Snapshot", cfg.Harvest.Snapshot)
	ui.PrintInfo("Subreddits", strings.Join(cfg.Harvest.Subreddits, ", "))
	ui.PrintInfo("Target", fmt.Sprintf("%d records", cfg.Harvest.Target))
	ui.PrintHighlight("[HARVEST STARTED]")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := s.Run(ctx, cfg.Harvest.Subreddits, forceRestart)
	switch {
	case err == nil:
		ui.PrintSuccess(fmt.Sprintf("[HARVEST COMPLETE] %d records saved to %s", result.Records, result.Snapshot))
		return nil

	case errors.Is(err, harvest.ErrExhausted):
		ui.PrintWarning("[HARVEST EXHAUSTED]", fmt.Sprintf("%d records saved to %s", result.Records, result.Snapshot))
		return &exitError{code: 2, err: err}

	case errors.Is(err, context.Canceled):
		ui.PrintWarning("[HARVEST INTERRUPTED]", "progress saved, run the same command to resume")
		return &exitError{code: 130, err: err}

	default:
		return err
	}
}

// resolveAccessToken fills cfg.Auth.AccessToken from the credential stores
// unless it is already set. Without a stored token requests are anonymous.
func resolveAccessToken(cfg *config.Config) error {
	if cfg.Auth.AccessToken != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		if cfg.Auth.Account != "" {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		logger.WithError(err).Warn("Credential stores unavailable, continuing without access token")
		return nil
	}

	token, err := manager.Token(cfg.Auth.Account)
	if err != nil {
		return fmt.Errorf("account %q: %w (see 'psharvest auth list')", cfg.Auth.Account, err)
	}
	cfg.Auth.AccessToken = token
	if token != "" {
		logger.WithField("account", cfg.Auth.Account).Info("Using stored access token")
	}
	return nil
}
