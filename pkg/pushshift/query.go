package pushshift

import (
	"net/url"
	"strconv"
)

// Query is a built request URL that the harvest loop pages through by moving
// its "before" cursor.
type Query struct {
	u *url.URL
}

// NewQuery wraps a URL produced by a Builder.
func NewQuery(u *url.URL) Query {
	clone := *u
	return Query{u: &clone}
}

// NewQueries wraps every URL.
func NewQueries(urls []*url.URL) []Query {
	out := make([]Query, len(urls))
	for i, u := range urls {
		out[i] = NewQuery(u)
	}
	return out
}

// URL returns a copy of the request URL.
func (q Query) URL() *url.URL {
	clone := *q.u
	return &clone
}

func (q Query) String() string {
	return q.u.String()
}

// Collection returns the subreddit parameter, if any.
func (q Query) Collection() string {
	return q.u.Query().Get(ParamSubreddit)
}

// Cursor returns the current "before" value when it is an absolute epoch.
func (q Query) Cursor() (uint64, bool) {
	v := q.u.Query().Get(ParamBefore)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// WithCursor returns a copy of q whose "before" is epoch. All other
// parameters are preserved.
func (q Query) WithCursor(epoch uint64) Query {
	values := q.u.Query()
	values.Set(ParamBefore, strconv.FormatUint(epoch, 10))

	clone := *q.u
	clone.RawQuery = values.Encode()
	return Query{u: &clone}
}
