package poll

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/aprp/electionbot/src/types"
)

// Simulated-poll turnout bounds.
const (
	minTurnout = 10000
	maxTurnout = 100000
)

// RegionEntry is one candidate's simulated showing.
type RegionEntry struct {
	Candidate types.Candidacy `json:"candidate"`
	Score     float64         `json:"score"`
	Share     float64         `json:"share"`
	Votes     int             `json:"votes"`
}

// RegionResult is a ranked, read-only simulated poll. No persistent
// state changes.
type RegionResult struct {
	Office     string        `json:"office"`
	State      string        `json:"state"`
	Party      string        `json:"party,omitempty"`
	TotalVotes int           `json:"totalVotes"`
	Entries    []RegionEntry `json:"entries"`
}

// The turnout source is shared by every front end running a simulated
// poll, so draws go through a mutex.
var (
	regionMu  sync.Mutex
	regionRng = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func drawTurnout() int {
	regionMu.Lock()
	defer regionMu.Unlock()
	return minTurnout + regionRng.Intn(maxTurnout-minTurnout+1)
}

// SimulateRegion scores each eligible candidate from points, stamina
// and corruption, synthesizes a turnout and allocates it by relative
// score. The last-ranked candidate absorbs the rounding remainder so
// the allocation sums exactly to the turnout.
func (e *Engine) SimulateRegion(ctx context.Context, sourceTable, office, state, party string) (*RegionResult, error) {
	candidates, err := e.filterCandidates(ctx, LaunchRequest{
		SourceTable: sourceTable,
		Office:      office,
		State:       state,
		Party:       party,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, types.ErrEmptyPool
	}

	entries := make([]RegionEntry, len(candidates))
	totalScore := 0.0
	for i, c := range candidates {
		score := c.Points + float64(c.Stamina)/10 - float64(c.Corruption)/10
		if score < 0.1 {
			score = 0.1
		}
		entries[i] = RegionEntry{Candidate: c, Score: score}
		totalScore += score
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	totalVotes := drawTurnout()
	allocated := 0
	for i := range entries {
		entries[i].Share = entries[i].Score / totalScore * 100
		if i < len(entries)-1 {
			entries[i].Votes = int(math.Round(entries[i].Score / totalScore * float64(totalVotes)))
			allocated += entries[i].Votes
		} else {
			entries[i].Votes = totalVotes - allocated
		}
	}

	return &RegionResult{
		Office:     office,
		State:      state,
		Party:      party,
		TotalVotes: totalVotes,
		Entries:    entries,
	}, nil
}
