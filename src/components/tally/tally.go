// Package tally resolves races and carries declared winners forward.
package tally

import (
	"context"
	"strconv"
	"strings"

	"github.com/aprp/electionbot/src/components/candidacy"
	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
)

// Engine groups candidacies into races and resolves them.
type Engine struct {
	store       ledger.Ledger
	candidacies *candidacy.Store
}

func NewEngine(store ledger.Ledger, candidacies *candidacy.Store) *Engine {
	return &Engine{store: store, candidacies: candidacies}
}

// Summary reports what a tally run did.
type Summary struct {
	Winners int `json:"winners"`
	Skipped int `json:"skipped"`
}

type raceKey struct {
	seatID string
	party  string
}

// TallyWinners groups the non-terminal signups rows by (seat, party)
// and marks the highest-points candidate of each race Winner and the
// rest Losers. Ties resolve to the first candidate encountered.
func (e *Engine) TallyWinners(ctx context.Context) (Summary, error) {
	records, err := e.candidacies.List(ctx, ledger.TableSignups)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	races := make(map[raceKey][]types.Candidacy)
	var order []raceKey
	for _, c := range records {
		if types.IsTerminal(c.Status) {
			continue
		}
		if c.UserID == "" || c.Name == "" || c.SeatID == "" || c.Party == "" {
			summary.Skipped++
			continue
		}
		key := raceKey{c.SeatID, c.Party}
		if _, seen := races[key]; !seen {
			order = append(order, key)
		}
		races[key] = append(races[key], c)
	}

	for _, key := range order {
		group := races[key]
		winner := group[0]
		for _, c := range group[1:] {
			if c.Points > winner.Points {
				winner = c
			}
		}
		for _, c := range group {
			status := types.StatusLoser
			if c.Row == winner.Row {
				status = types.StatusWinner
			}
			if err := e.candidacies.SetStatus(ctx, c.Table, c.Row, status); err != nil {
				return summary, err
			}
		}
		summary.Winners++
	}
	return summary, nil
}

// TransferWinners archives each declared winner into the history table
// and seeds a fresh general-race candidacy for them. Winners already
// present in the history for (seat, name, year) are skipped, so
// repeated runs are idempotent.
func (e *Engine) TransferWinners(ctx context.Context, year int) (int, error) {
	for _, table := range []string{ledger.TableHistory, ledger.TableGeneral} {
		if err := e.store.EnsureTable(ctx, table); err != nil {
			return 0, err
		}
	}

	records, err := e.candidacies.List(ctx, ledger.TableSignups)
	if err != nil {
		return 0, err
	}
	history, err := e.store.ListRows(ctx, ledger.TableHistory)
	if err != nil {
		return 0, err
	}

	transferred := 0
	for _, c := range records {
		if c.Status != types.StatusWinner {
			continue
		}
		if historyContains(history, year, c.SeatID, c.Name) {
			continue
		}

		historyRow := []string{
			strconv.Itoa(year),
			c.Office,
			c.State,
			c.SeatID,
			c.Name,
			c.Party,
			strconv.FormatFloat(c.Points, 'f', -1, 64),
			"", // votes, filled by later stages
			strconv.Itoa(c.Corruption),
			"", // final score, filled by later stages
			"Yes",
		}
		if err := e.store.AppendRow(ctx, ledger.TableHistory, historyRow); err != nil {
			return transferred, err
		}

		general := types.Candidacy{
			UserID:     c.UserID,
			Name:       c.Name,
			SeatID:     c.SeatID,
			Party:      c.Party,
			Phase:      string(types.PhaseGeneralCampaign),
			State:      c.State,
			Office:     c.Office,
			Corruption: c.Corruption,
			Stamina:    100,
		}
		if err := e.store.AppendRow(ctx, ledger.TableGeneral, candidacy.FormatRow(general)); err != nil {
			return transferred, err
		}
		transferred++
	}
	return transferred, nil
}

func historyContains(rows [][]string, year int, seatID, name string) bool {
	for i, row := range rows {
		if i == 0 || len(row) < 5 {
			continue
		}
		y, _ := strconv.Atoi(strings.TrimSpace(row[0]))
		if y == year &&
			strings.EqualFold(strings.TrimSpace(row[3]), seatID) &&
			strings.EqualFold(strings.TrimSpace(row[4]), name) {
			return true
		}
	}
	return false
}
