// Package scraper ties the harvest together for the command line.
//
// A run builds one query per subreddit, resumes cursors from the snapshot's
// checkpoint, and drives the harvest loop until the target is reached or the
// source runs dry. Records are written to the snapshot after every round so
// an interrupted run loses at most one round of work. The final snapshot is
// anonymized unless that is disabled, after which its checkpoint refuses
// further resumes.
//
// Example:
//
//	s, err := scraper.New(cfg, scraper.WithRegisterer(reg))
//	if err != nil {
//		return err
//	}
//	result, err := s.Run(ctx, []string{"golang", "rust"}, false)
package scraper
