// Package harvest drives the paginated fetch loop.
//
// A Harvester owns a set of live queries, one per subreddit, and the records
// collected so far. Each round fetches one page per live query in order,
// pausing after every request:
//
//   - a failed page is logged and retried with the same cursor next round
//   - an empty page drops the query for good
//   - a non-empty page moves the query's "before" cursor to the oldest item
//
// After the round the distinct raw items are projected to records, merged and
// junk-filtered. A round that returned nothing waits for the backoff delay
// before the next one; enough of those in a row, or running out of live
// queries, ends the harvest with an *ExhaustedError.
//
//	h := harvest.New(client, queries, harvest.DefaultConfig(),
//	    harvest.WithRecords(previous),
//	    harvest.WithProgress(tracker.Update),
//	)
//	if err := h.Run(ctx); err != nil && !errors.Is(err, harvest.ErrExhausted) {
//	    return err
//	}
package harvest
