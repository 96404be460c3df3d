// Package pushshift talks to the Reddit search archive API.
//
// A Builder collects write-once query parameters and renders request URLs,
// one per subreddit with BuildForEach. Query wraps a rendered URL so the
// harvest loop can move its "before" cursor. Client fetches a page and
// decodes its "data" array into records.RawRecord values.
//
//	b := pushshift.NewBuilder(pushshift.Comment)
//	_ = b.Size(1000)
//	_ = b.After(pushshift.Days(30))
//	urls, err := b.BuildForEach([]string{"golang", "rust"})
//
//	client := pushshift.NewClient(90*time.Second, log)
//	items, err := client.FetchPage(ctx, urls[0])
package pushshift
