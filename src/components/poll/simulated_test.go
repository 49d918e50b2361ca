package poll

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aprp/electionbot/src/components/candidacy"
	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateRegionAllocatesEveryVote(t *testing.T) {
	assert := assert.New(t)
	e, _, m := newEngine(t)
	ctx := context.Background()

	seed(t, m, "u1", "Alice", types.PartyDemocrats, 120, "")
	seed(t, m, "u2", "Bob", types.PartyDemocrats, 40, "")
	seed(t, m, "u3", "Cara", types.PartyRepublicans, 80, "")

	res, err := e.SimulateRegion(ctx, ledger.TableSignups, "Governor", "Columbia", "")
	require.NoError(t, err)

	require.Len(t, res.Entries, 3)
	assert.GreaterOrEqual(res.TotalVotes, 10000)
	assert.LessOrEqual(res.TotalVotes, 100000)

	sum := 0
	for i, entry := range res.Entries {
		sum += entry.Votes
		if i > 0 {
			assert.LessOrEqual(entry.Score, res.Entries[i-1].Score, "entries ranked by score")
		}
	}
	assert.Equal(res.TotalVotes, sum, "vote allocation sums exactly to the turnout")

	assert.Equal("Alice", res.Entries[0].Candidate.Name)
}

func TestSimulateRegionScoreFloor(t *testing.T) {
	e, _, m := newEngine(t)
	ctx := context.Background()

	// Corruption far above points and stamina would push the raw score
	// negative; the floor keeps every candidate in the running.
	c := types.Candidacy{
		UserID: "u1", Name: "Alice", SeatID: "COL-GOV",
		Party: types.PartyDemocrats, State: "Columbia", Office: "Governor",
		Stamina: 0, Corruption: 100, Points: 0,
	}
	require.NoError(t, m.AppendRow(ctx, ledger.TableSignups, candidacy.FormatRow(c)))

	res, err := e.SimulateRegion(ctx, ledger.TableSignups, "Governor", "Columbia", "")
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 0.1, res.Entries[0].Score)
	assert.Equal(t, res.TotalVotes, res.Entries[0].Votes)
}

func TestSimulateRegionEmptyPool(t *testing.T) {
	e, _, _ := newEngine(t)

	_, err := e.SimulateRegion(context.Background(), ledger.TableSignups, "Governor", "Columbia", "")
	assert.ErrorIs(t, err, types.ErrEmptyPool)
}

func TestSimulateRegionConcurrent(t *testing.T) {
	e, _, m := newEngine(t)
	ctx := context.Background()

	seed(t, m, "u1", "Alice", types.PartyDemocrats, 120, "")
	seed(t, m, "u2", "Bob", types.PartyDemocrats, 40, "")

	// Simulated polls can be requested from the HTTP API and the bot at
	// the same time; every run must still allocate its turnout exactly.
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				res, err := e.SimulateRegion(ctx, ledger.TableSignups, "Governor", "Columbia", "")
				if err != nil {
					errs <- err
					return
				}
				sum := 0
				for _, entry := range res.Entries {
					sum += entry.Votes
				}
				if sum != res.TotalVotes {
					errs <- fmt.Errorf("allocated %d of %d votes", sum, res.TotalVotes)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestSimulateRegionDoesNotMutateLedger(t *testing.T) {
	e, store, m := newEngine(t)
	ctx := context.Background()

	seed(t, m, "u1", "Alice", types.PartyDemocrats, 120, "")

	_, err := e.SimulateRegion(ctx, ledger.TableSignups, "Governor", "Columbia", "")
	require.NoError(t, err)

	records, err := store.List(ctx, ledger.TableSignups)
	require.NoError(t, err)
	assert.Equal(t, 120.0, records[0].Points)
}
