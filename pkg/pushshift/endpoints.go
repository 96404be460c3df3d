package pushshift

import (
	"fmt"
	"strings"
)

const (
	// BaseURL is the root of the Reddit search archive API.
	BaseURL = "https://api.pushshift.io/reddit"

	// MaxPageSize is the largest page the API will serve.
	MaxPageSize = 1000

	// MaxBefore is the "before" cursor used when none is given: the largest
	// 32-bit timestamp, so the first page starts at the newest item.
	MaxBefore uint64 = 4294967295
)

// Query parameter names.
const (
	ParamSubreddit = "subreddit"
	ParamSize      = "size"
	ParamSort      = "sort"
	ParamSortType  = "sort_type"
	ParamBefore    = "before"
	ParamAfter     = "after"
	ParamScore     = "score"
)

// Endpoint selects which kind of item a query searches.
type Endpoint int

const (
	Comment Endpoint = iota
	Submission
	Subreddit
)

func (e Endpoint) String() string {
	switch e {
	case Comment:
		return "comment"
	case Submission:
		return "submission"
	case Subreddit:
		return "subreddit"
	default:
		return fmt.Sprintf("Endpoint(%d)", int(e))
	}
}

// Path returns the search path under the base URL.
func (e Endpoint) Path() string {
	return "/" + e.String() + "/search"
}

// ParseEndpoint parses "comment", "submission" or "subreddit".
func ParseEndpoint(s string) (Endpoint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "comment", "comments":
		return Comment, nil
	case "submission", "submissions":
		return Submission, nil
	case "subreddit", "subreddits":
		return Subreddit, nil
	default:
		return 0, fmt.Errorf("unknown endpoint %q", s)
	}
}
