// Package ratelimit spaces out requests to the search API.
//
// TokenBucket wraps golang.org/x/time/rate with a requests-per-minute
// configuration. The harvest loop already pauses after every page; the
// limiter is a hard ceiling that holds even when the pause is configured to
// zero.
package ratelimit
