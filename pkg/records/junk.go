package records

// DefaultSentinels are author values that mark removed or bot content.
var DefaultSentinels = []string{"[deleted]", "[removed]", "AutoModerator"}

// JunkFilter removes records whose author is a sentinel value. It is built
// once from configuration and never modified.
type JunkFilter struct {
	sentinels map[string]struct{}
}

// NewJunkFilter creates a filter for the given sentinel authors.
func NewJunkFilter(authors ...string) *JunkFilter {
	f := &JunkFilter{sentinels: make(map[string]struct{}, len(authors))}
	for _, a := range authors {
		f.sentinels[a] = struct{}{}
	}
	return f
}

// IsJunk reports whether r's author is a sentinel.
func (f *JunkFilter) IsJunk(r Record) bool {
	_, ok := f.sentinels[r.Author]
	return ok
}

// Filter deletes junk records from s and returns what it removed.
func (f *JunkFilter) Filter(s *Set) []Record {
	var removed []Record
	for r := range s.items {
		if f.IsJunk(r) {
			removed = append(removed, r)
		}
	}
	for _, r := range removed {
		s.Remove(r)
	}
	return removed
}
