// Package records holds the harvested item types and the set operations the
// harvest loop performs on them: round-level raw deduplication, projection
// to the persisted four-field Record, junk filtering and anonymization.
package records
