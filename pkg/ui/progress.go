package ui

import (
	"fmt"
	"strings"
	"time"

	"psharvest/pkg/harvest"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// RoundTracker renders harvest progress from round reports.
type RoundTracker struct {
	Target    int
	StartTime time.Time
	Last      harvest.RoundReport

	startRecords int
}

// NewRoundTracker creates a tracker for a harvest that begins with
// startRecords already collected.
func NewRoundTracker(target, startRecords int) *RoundTracker {
	return &RoundTracker{
		Target:       target,
		StartTime:    time.Now(),
		startRecords: startRecords,
		Last:         harvest.RoundReport{Total: startRecords},
	}
}

// Observe records r and prints its status line.
func (rt *RoundTracker) Observe(r harvest.RoundReport) {
	rt.Last = r
	rt.PrintRound()
}

// Bar returns a progress bar of collected records against the target.
func (rt *RoundTracker) Bar() string {
	progress := 0.0
	if rt.Target > 0 {
		progress = min(float64(rt.Last.Total)/float64(rt.Target), 1)
	}
	filled := int(progress * barWidth)

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, rt.Last.Total, rt.Target)
}

func (rt *RoundTracker) Elapsed() time.Duration {
	return time.Since(rt.StartTime)
}

// Rate returns records gained per minute since the tracker started.
func (rt *RoundTracker) Rate() float64 {
	elapsed := rt.Elapsed().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(rt.Last.Total-rt.startRecords) / elapsed
}

// Line formats the status of the last round.
func (rt *RoundTracker) Line() string {
	r := rt.Last
	status := Green("[HARVEST]")
	if r.State == harvest.Stalled {
		status = Yellow("[STALLED]")
	}

	line := fmt.Sprintf("%s round %d %s +%d new, %d live",
		status, r.Round, rt.Bar(), r.Added, r.Live)
	if r.Removed > 0 {
		line += fmt.Sprintf(", %d junk", r.Removed)
	}
	if r.Failed > 0 {
		line += Red(fmt.Sprintf(", %d failed", r.Failed))
	}
	if r.State == harvest.Stalled {
		line += Dim(fmt.Sprintf(" (empty %d, waiting %s)", r.EmptyRounds, r.Backoff))
	}
	return line
}

func (rt *RoundTracker) PrintRound() {
	printTo(false, rt.Line()+"\n")
}

// PrintSummary prints totals once the harvest stops.
func (rt *RoundTracker) PrintSummary() {
	PrintInfo("Rounds", fmt.Sprintf("%d", rt.Last.Round))
	PrintInfo("Records", fmt.Sprintf("%d", rt.Last.Total))
	PrintInfo("Elapsed", rt.Elapsed().Round(time.Second).String())
	PrintInfo("Rate", fmt.Sprintf("%.1f records/min", rt.Rate()))
}
