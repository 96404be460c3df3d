package pushshift

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
)

var collectionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Builder accumulates search parameters for one endpoint and renders them
// into request URLs.
type Builder struct {
	baseURL  string
	endpoint Endpoint
	params   *Params
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBaseURL points the builder at a different API root.
func WithBaseURL(base string) BuilderOption {
	return func(b *Builder) {
		b.baseURL = base
	}
}

// NewBuilder creates a builder with no parameters set.
func NewBuilder(endpoint Endpoint, opts ...BuilderOption) *Builder {
	b := &Builder{
		baseURL:  BaseURL,
		endpoint: endpoint,
		params:   NewParams(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Set adds an arbitrary parameter.
func (b *Builder) Set(name, value string) error {
	return b.params.Set(name, value)
}

// Params returns a copy of the current parameters.
func (b *Builder) Params() *Params {
	return b.params.Clone()
}

// Subreddit restricts results to one collection.
func (b *Builder) Subreddit(name string) error {
	if !collectionPattern.MatchString(name) {
		return &BuildError{Err: ErrInvalidCollection, Param: ParamSubreddit, Value: name}
	}
	return b.params.Set(ParamSubreddit, name)
}

// ReplaceSubreddit clears any collection and sets name.
func (b *Builder) ReplaceSubreddit(name string) error {
	if !collectionPattern.MatchString(name) {
		return &BuildError{Err: ErrInvalidCollection, Param: ParamSubreddit, Value: name}
	}
	b.params.Delete(ParamSubreddit)
	return b.params.Set(ParamSubreddit, name)
}

// Size sets the page size, at most MaxPageSize.
func (b *Builder) Size(n uint32) error {
	value := strconv.FormatUint(uint64(n), 10)
	if n > MaxPageSize {
		return &BuildError{Err: ErrPageSizeTooLarge, Param: ParamSize, Value: value}
	}
	return b.params.Set(ParamSize, value)
}

func (b *Builder) Before(t Time) error {
	return b.params.Set(ParamBefore, t.String())
}

func (b *Builder) After(t Time) error {
	return b.params.Set(ParamAfter, t.String())
}

// ScoreThreshold keeps only items scored above n.
func (b *Builder) ScoreThreshold(n uint32) error {
	return b.params.Set(ParamScore, ">"+strconv.FormatUint(uint64(n), 10))
}

// Build renders the request URL. Sorting defaults to newest first by creation
// time and the cursor defaults to MaxBefore. The builder itself is not
// modified.
func (b *Builder) Build() (*url.URL, error) {
	if b.params.Len() == 0 {
		return nil, &BuildError{Err: ErrNoParameters}
	}

	params := b.params.Clone()
	if !params.Has(ParamSort) {
		_ = params.Set(ParamSort, "desc")
		if !params.Has(ParamSortType) {
			_ = params.Set(ParamSortType, "created_utc")
		}
	}
	if !params.Has(ParamBefore) {
		_ = params.Set(ParamBefore, strconv.FormatUint(MaxBefore, 10))
	}

	u, err := url.Parse(b.baseURL + b.endpoint.Path())
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", b.baseURL, err)
	}
	u.RawQuery = params.Values().Encode()
	return u, nil
}

// BuildForEach builds one URL per collection, replacing any collection set
// earlier. It stops at the first invalid name.
func (b *Builder) BuildForEach(names []string) ([]*url.URL, error) {
	b.params.Delete(ParamSubreddit)

	urls := make([]*url.URL, 0, len(names))
	for _, name := range names {
		if err := b.ReplaceSubreddit(name); err != nil {
			return nil, err
		}
		u, err := b.Build()
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}
