package poll

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/aprp/electionbot/src/components/candidacy"
	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
	"github.com/google/uuid"
)

// Engine owns every live poll. Poll state is in-memory only and does
// not survive a restart.
type Engine struct {
	candidacies *candidacy.Store
	duration    time.Duration
	redraw      time.Duration

	mu    sync.RWMutex
	polls map[string]*Poll
}

func NewEngine(candidacies *candidacy.Store) *Engine {
	return &Engine{
		candidacies: candidacies,
		duration:    DefaultDuration,
		redraw:      DefaultRedraw,
		polls:       make(map[string]*Poll),
	}
}

// SetTiming overrides the voting window and redraw cadence. Used by the
// front end for short polls and by tests.
func (e *Engine) SetTiming(duration, redraw time.Duration) {
	if duration > 0 {
		e.duration = duration
	}
	if redraw > 0 {
		e.redraw = redraw
	}
}

// LaunchRequest filters the candidate pool for a new poll.
type LaunchRequest struct {
	CreatorID   string
	SourceTable string
	Office      string
	State       string
	Party       string

	// OnCountdown redraws the live countdown; OnClose renders the final
	// results. Either may be nil.
	OnCountdown func(p *Poll, remaining time.Duration)
	OnClose     func(p *Poll, res Results)
}

// Launch snapshots the matching candidates and opens the voting window.
func (e *Engine) Launch(ctx context.Context, req LaunchRequest) (*Poll, error) {
	candidates, err := e.filterCandidates(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, types.ErrEmptyPool
	}

	now := time.Now()
	p := &Poll{
		ID:          uuid.NewString(),
		CreatorID:   req.CreatorID,
		SourceTable: ledger.Normalize(req.SourceTable),
		Office:      req.Office,
		State:       req.State,
		Party:       req.Party,
		Candidates:  candidates,
		StartTime:   now,
		Deadline:    now.Add(e.duration),
		votes:       make(map[string]int),
		done:        make(chan struct{}),
		onCountdown: req.OnCountdown,
		onClose:     req.OnClose,
	}

	e.mu.Lock()
	e.polls[p.ID] = p
	e.mu.Unlock()

	go e.run(p)
	return p, nil
}

func (e *Engine) filterCandidates(ctx context.Context, req LaunchRequest) ([]types.Candidacy, error) {
	records, err := e.candidacies.List(ctx, req.SourceTable)
	if err != nil {
		return nil, err
	}
	fromSignups := ledger.Normalize(req.SourceTable) == ledger.TableSignups
	var out []types.Candidacy
	for _, c := range records {
		if c.Status == types.StatusWithdrawn || c.UserID == "" {
			continue
		}
		if fromSignups && c.Status == types.StatusLoser {
			continue
		}
		if !strings.EqualFold(c.Office, req.Office) || !strings.EqualFold(c.State, req.State) {
			continue
		}
		if req.Party != "" && !strings.EqualFold(c.Party, req.Party) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// run drives the countdown redraw and the timeout close. It exits when
// the poll closes by any path.
func (e *Engine) run(p *Poll) {
	ticker := time.NewTicker(e.redraw)
	defer ticker.Stop()
	timeout := time.NewTimer(time.Until(p.Deadline))
	defer timeout.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if p.onCountdown != nil {
				p.onCountdown(p, p.Remaining())
			}
		case <-timeout.C:
			e.finish(p)
			return
		}
	}
}

// Get looks up a live poll.
func (e *Engine) Get(pollID string) (*Poll, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.polls[pollID]
	return p, ok
}

// Vote records a vote on a live poll. Unknown polls and out-of-range
// choices report false.
func (e *Engine) Vote(pollID, voterID string, choice int) bool {
	p, ok := e.Get(pollID)
	if !ok {
		return false
	}
	return p.Vote(voterID, choice)
}

// Close force-closes a poll early. Only the creator or an admin may do
// so; a poll already closed by timeout reports ErrNotFound.
func (e *Engine) Close(pollID, actorID string, isAdmin bool) error {
	p, ok := e.Get(pollID)
	if !ok {
		return types.ErrNotFound
	}
	if actorID != p.CreatorID && !isAdmin {
		return types.Validation("poll", "only the poll creator or an admin can close this poll")
	}
	e.finish(p)
	return nil
}

// finish performs the single authoritative close transition: tally,
// reward winners, render, discard.
func (e *Engine) finish(p *Poll) {
	if !p.markClosed() {
		return
	}

	res := p.tally()
	if !res.NoVotes {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, idx := range res.WinnerIdxs {
			w := p.Candidates[idx]
			err := e.candidacies.AddPoints(ctx, p.SourceTable, w.Name, w.Office, w.State, p.Party, WinnerReward)
			if err != nil {
				log.Printf("Poll %s: failed to reward %s: %v", p.ID, w.Name, err)
			}
		}
	}

	e.mu.Lock()
	delete(e.polls, p.ID)
	e.mu.Unlock()

	if p.onClose != nil {
		p.onClose(p, res)
	}
}
