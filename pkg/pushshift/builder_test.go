package pushshift

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetRejectsDuplicates(t *testing.T) {
	b := NewBuilder(Comment)
	require.NoError(t, b.Set("q", "golang"))

	err := b.Set("q", "rust")
	require.ErrorIs(t, err, ErrDuplicateParameter)

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "q", be.Param)
	assert.Equal(t, "rust", be.Value)

	v, _ := b.Params().Get("q")
	assert.Equal(t, "golang", v, "value unchanged after failed set")
}

func TestSubreddit(t *testing.T) {
	tests := []struct {
		name    string
		wantErr error
	}{
		{"golang", nil},
		{"Ask_Science", nil},
		{"ask-science", nil},
		{"r2d2", nil},
		{"bad name", ErrInvalidCollection},
		{"bad!", ErrInvalidCollection},
		{"a/b", ErrInvalidCollection},
		{"", ErrInvalidCollection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewBuilder(Comment).Subreddit(tt.name)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSubredditTwice(t *testing.T) {
	b := NewBuilder(Comment)
	require.NoError(t, b.Subreddit("golang"))
	assert.ErrorIs(t, b.Subreddit("rust"), ErrDuplicateParameter)

	require.NoError(t, b.ReplaceSubreddit("rust"))
	v, _ := b.Params().Get(ParamSubreddit)
	assert.Equal(t, "rust", v)
}

func TestSize(t *testing.T) {
	b := NewBuilder(Comment)
	assert.ErrorIs(t, b.Size(1001), ErrPageSizeTooLarge)
	assert.False(t, b.Params().Has(ParamSize))

	require.NoError(t, b.Size(1000))
	assert.ErrorIs(t, b.Size(10), ErrDuplicateParameter)
}

func TestTimeAndScoreParameters(t *testing.T) {
	b := NewBuilder(Submission)
	require.NoError(t, b.After(Days(30)))
	require.NoError(t, b.Before(Epoch(1690000000)))
	require.NoError(t, b.ScoreThreshold(10))

	p := b.Params()
	after, _ := p.Get(ParamAfter)
	before, _ := p.Get(ParamBefore)
	score, _ := p.Get(ParamScore)
	assert.Equal(t, "30d", after)
	assert.Equal(t, "1690000000", before)
	assert.Equal(t, ">10", score)

	u, err := b.Build()
	require.NoError(t, err)
	assert.Contains(t, u.RawQuery, "score=%3E10")
}

func TestBuildEmpty(t *testing.T) {
	_, err := NewBuilder(Comment).Build()
	assert.ErrorIs(t, err, ErrNoParameters)
}

func TestBuildInjectsDefaults(t *testing.T) {
	b := NewBuilder(Comment)
	require.NoError(t, b.Subreddit("golang"))
	require.NoError(t, b.Size(1000))

	u, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "api.pushshift.io", u.Host)
	assert.Equal(t, "/reddit/comment/search", u.Path)

	q := u.Query()
	assert.Equal(t, "golang", q.Get(ParamSubreddit))
	assert.Equal(t, "1000", q.Get(ParamSize))
	assert.Equal(t, "desc", q.Get(ParamSort))
	assert.Equal(t, "created_utc", q.Get(ParamSortType))
	assert.Equal(t, "4294967295", q.Get(ParamBefore))

	assert.Equal(t, 2, b.Params().Len(), "Build leaves the builder untouched")
}

func TestBuildKeepsExplicitSort(t *testing.T) {
	b := NewBuilder(Comment)
	require.NoError(t, b.Set(ParamSort, "asc"))
	require.NoError(t, b.Before(Hours(2)))

	u, err := b.Build()
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "asc", q.Get(ParamSort))
	assert.Empty(t, q.Get(ParamSortType), "sort_type is only injected with the default sort")
	assert.Equal(t, "2h", q.Get(ParamBefore))
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder(Comment)
	require.NoError(t, b.Subreddit("golang"))
	require.NoError(t, b.Size(10))

	u1, err := b.Build()
	require.NoError(t, err)
	u2, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, u1.String(), u2.String())
}

func TestBuildForEach(t *testing.T) {
	b := NewBuilder(Comment)
	require.NoError(t, b.Subreddit("old"))
	require.NoError(t, b.Size(500))

	urls, err := b.BuildForEach([]string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, urls, 2)

	qa, qb := urls[0].Query(), urls[1].Query()
	assert.Equal(t, "a", qa.Get(ParamSubreddit))
	assert.Equal(t, "b", qb.Get(ParamSubreddit))

	qa.Del(ParamSubreddit)
	qb.Del(ParamSubreddit)
	assert.Equal(t, qa, qb, "only the collection differs")
	assert.Equal(t, "500", qa.Get(ParamSize))
}

func TestBuildForEachStopsAtFirstInvalidName(t *testing.T) {
	b := NewBuilder(Comment)
	urls, err := b.BuildForEach([]string{"ok", "not ok", "fine"})
	assert.ErrorIs(t, err, ErrInvalidCollection)
	assert.Nil(t, urls)
}

func TestWithBaseURL(t *testing.T) {
	b := NewBuilder(Subreddit, WithBaseURL("http://127.0.0.1:8080/reddit"))
	require.NoError(t, b.Set("q", "go"))

	u, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", u.Host)
	assert.Equal(t, "/reddit/subreddit/search", u.Path)
}

func TestBuildInvalidBaseURL(t *testing.T) {
	b := NewBuilder(Comment, WithBaseURL("://nope"))
	require.NoError(t, b.Set("q", "go"))

	_, err := b.Build()
	var urlErr *url.Error
	assert.ErrorAs(t, err, &urlErr)
}

func TestParseEndpoint(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Endpoint
	}{
		{"comment", Comment},
		{"Submission", Submission},
		{" subreddits ", Subreddit},
	} {
		got, err := ParseEndpoint(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseEndpoint("post")
	assert.Error(t, err)
	assert.Equal(t, "/submission/search", Submission.Path())
}
