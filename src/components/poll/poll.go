// Package poll runs timed interactive polls over a candidate snapshot
// and the read-only simulated regional poll.
package poll

import (
	"sync"
	"time"

	"github.com/aprp/electionbot/src/types"
)

// Default poll window and countdown redraw cadence.
const (
	DefaultDuration = 24 * time.Hour
	DefaultRedraw   = time.Minute

	// WinnerReward is the flat points bonus applied to each poll winner.
	WinnerReward = 8.0
)

// Poll is one open interactive poll. Votes map voter to candidate
// index; re-voting overwrites.
type Poll struct {
	ID          string
	CreatorID   string
	SourceTable string
	Office      string
	State       string
	Party       string
	Candidates  []types.Candidacy
	StartTime   time.Time
	Deadline    time.Time

	mu     sync.Mutex
	votes  map[string]int
	closed bool
	done   chan struct{}

	onCountdown func(p *Poll, remaining time.Duration)
	onClose     func(p *Poll, res Results)
}

// Vote records a voter's choice. Out-of-range choices are dropped and
// reported false so the front end can ignore them silently.
func (p *Poll) Vote(voterID string, choice int) bool {
	if choice < 0 || choice >= len(p.Candidates) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.votes[voterID] = choice
	return true
}

// Remaining reports the time left in the voting window.
func (p *Poll) Remaining() time.Duration {
	d := time.Until(p.Deadline)
	if d < 0 {
		return 0
	}
	return d
}

// markClosed flips the poll closed exactly once. The second and later
// callers get false, which keeps racing close triggers idempotent.
func (p *Poll) markClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.closed = true
	close(p.done)
	return true
}

// Results is the outcome of a closed poll.
type Results struct {
	Counts      []int
	Percentages []float64
	TotalVotes  int
	WinnerIdxs  []int
	NoVotes     bool
}

// tally resolves the poll by plurality; every candidate tied at the
// maximum wins, provided anyone voted at all.
func (p *Poll) tally() Results {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := Results{
		Counts:      make([]int, len(p.Candidates)),
		Percentages: make([]float64, len(p.Candidates)),
	}
	for _, choice := range p.votes {
		res.Counts[choice]++
		res.TotalVotes++
	}
	if res.TotalVotes == 0 {
		res.NoVotes = true
		return res
	}

	max := 0
	for i, n := range res.Counts {
		res.Percentages[i] = float64(n) / float64(res.TotalVotes) * 100
		if n > max {
			max = n
		}
	}
	for i, n := range res.Counts {
		if n == max {
			res.WinnerIdxs = append(res.WinnerIdxs, i)
		}
	}
	return res
}
