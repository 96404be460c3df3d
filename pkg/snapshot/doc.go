// Package snapshot persists a record set as CSV with the header
// author,created_utc,permalink,subreddit so an interrupted harvest can pick
// up where it stopped.
package snapshot
