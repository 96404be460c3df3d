// Package backoff decides how long the harvest loop pauses between page
// requests, and how that pause grows after a round that returned nothing.
//
// The default Squaring strategy reproduces the archive's traditional
// 10s → 100s growth but caps it, so a stalled harvest settles at Max instead
// of sleeping for hours.
package backoff
