package harvest

import (
	"errors"
	"fmt"
)

// State is the harvest loop's position in its lifecycle.
type State int

const (
	Running State = iota
	// Stalled means the last round returned no items.
	Stalled
	// Exhausted is terminal: nothing left to fetch, or too many empty rounds.
	Exhausted
	// Complete is terminal: the target was reached.
	Complete
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stalled:
		return "stalled"
	case Exhausted:
		return "exhausted"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrExhausted is matched by every *ExhaustedError.
var ErrExhausted = errors.New("source exhausted before target was reached")

// ExhaustedError reports why a harvest stopped short of its target.
type ExhaustedError struct {
	Reason      string
	Rounds      int
	EmptyRounds int
	Records     int
	Target      int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v: %s after %d rounds (%d/%d records)",
		ErrExhausted, e.Reason, e.Rounds, e.Records, e.Target)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

const (
	ReasonNoLiveQueries  = "no live queries"
	ReasonEmptyThreshold = "empty round threshold reached"
)
