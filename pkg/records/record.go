package records

import (
	"cmp"
	"slices"
)

// RawRecord is one item as returned by the search API. Two RawRecords are the
// same item only when all six fields match.
type RawRecord struct {
	Author     string `json:"author"`
	Body       string `json:"body"`
	CreatedUTC uint64 `json:"created_utc"`
	Permalink  string `json:"permalink"`
	Score      int64  `json:"score"`
	Subreddit  string `json:"subreddit"`
}

// Record is the four-field projection that is kept and persisted.
type Record struct {
	Author     string `json:"author"`
	CreatedUTC uint64 `json:"created_utc"`
	Permalink  string `json:"permalink"`
	Subreddit  string `json:"subreddit"`
}

// Project drops body and score.
func (r RawRecord) Project() Record {
	return Record{
		Author:     r.Author,
		CreatedUTC: r.CreatedUTC,
		Permalink:  r.Permalink,
		Subreddit:  r.Subreddit,
	}
}

// RawSet collects the raw items of a single round.
type RawSet map[RawRecord]struct{}

// Add inserts r and reports whether it was new.
func (s RawSet) Add(r RawRecord) bool {
	if _, ok := s[r]; ok {
		return false
	}
	s[r] = struct{}{}
	return true
}

// Project returns the distinct projections of every raw item.
func (s RawSet) Project() *Set {
	out := NewSet()
	for r := range s {
		out.Add(r.Project())
	}
	return out
}

// Set is a collection of distinct records.
type Set struct {
	items map[Record]struct{}
}

// NewSet creates a set holding recs.
func NewSet(recs ...Record) *Set {
	s := &Set{items: make(map[Record]struct{}, len(recs))}
	for _, r := range recs {
		s.Add(r)
	}
	return s
}

// Add inserts r and reports whether it was new.
func (s *Set) Add(r Record) bool {
	if _, ok := s.items[r]; ok {
		return false
	}
	s.items[r] = struct{}{}
	return true
}

// Merge adds every record of other and returns how many were new.
func (s *Set) Merge(other *Set) int {
	added := 0
	for r := range other.items {
		if s.Add(r) {
			added++
		}
	}
	return added
}

func (s *Set) Remove(r Record) {
	delete(s.items, r)
}

func (s *Set) Contains(r Record) bool {
	_, ok := s.items[r]
	return ok
}

func (s *Set) Len() int {
	return len(s.items)
}

// Sorted returns the records ordered by subreddit, creation time, author and
// permalink.
func (s *Set) Sorted() []Record {
	out := make([]Record, 0, len(s.items))
	for r := range s.items {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Record) int {
		return cmp.Or(
			cmp.Compare(a.Subreddit, b.Subreddit),
			cmp.Compare(a.CreatedUTC, b.CreatedUTC),
			cmp.Compare(a.Author, b.Author),
			cmp.Compare(a.Permalink, b.Permalink),
		)
	})
	return out
}
