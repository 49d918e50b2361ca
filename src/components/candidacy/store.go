// Package candidacy is the schema and mutation rules for signup and
// general-race records.
package candidacy

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
)

// Store reads and mutates candidacy rows. Row mutations serialize
// through a per-row mutex since the ledger has no optimistic locking.
type Store struct {
	store ledger.Ledger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(store ledger.Ledger) *Store {
	return &Store{store: store, locks: make(map[string]*sync.Mutex)}
}

func (s *Store) rowLock(table string, row int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledger.Normalize(table) + "#" + strconv.Itoa(row)
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Parse decodes one ledger row into a Candidacy. rowIdx is 1-based.
func Parse(table string, rowIdx int, cells []string) types.Candidacy {
	get := func(col int) string {
		if col <= len(cells) {
			return strings.TrimSpace(cells[col-1])
		}
		return ""
	}
	num := func(col int) int {
		v, _ := strconv.Atoi(get(col))
		return v
	}
	points, _ := strconv.ParseFloat(get(ledger.ColPoints), 64)
	return types.Candidacy{
		Table:      ledger.Normalize(table),
		Row:        rowIdx,
		UserID:     get(ledger.ColUserID),
		Name:       get(ledger.ColName),
		SeatID:     get(ledger.ColSeatID),
		Party:      get(ledger.ColParty),
		Phase:      get(ledger.ColPhase),
		State:      get(ledger.ColState),
		Office:     get(ledger.ColOffice),
		Corruption: num(ledger.ColCorruption),
		Stamina:    num(ledger.ColStamina),
		Points:     points,
		Status:     get(ledger.ColWinner),
	}
}

// List returns every candidacy row in a table, skipping the header.
func (s *Store) List(ctx context.Context, table string) ([]types.Candidacy, error) {
	rows, err := s.store.ListRows(ctx, table)
	if err != nil {
		return nil, err
	}
	var out []types.Candidacy
	for i, cells := range rows {
		if i == 0 {
			continue
		}
		out = append(out, Parse(table, i+1, cells))
	}
	return out, nil
}

// FindByOwner returns the owner's first non-terminal candidacy,
// searching the signups table before the general table.
func (s *Store) FindByOwner(ctx context.Context, ownerID string) (types.Candidacy, bool, error) {
	for _, table := range []string{ledger.TableSignups, ledger.TableGeneral} {
		records, err := s.List(ctx, table)
		if err != nil {
			return types.Candidacy{}, false, err
		}
		for _, c := range records {
			if c.UserID == ownerID && !types.IsTerminal(c.Status) && c.UserID != "" {
				return c, true, nil
			}
		}
	}
	return types.Candidacy{}, false, nil
}

// FindByName returns rows matching a candidate name, case-insensitive,
// optionally restricted to one owner.
func (s *Store) FindByName(ctx context.Context, table, name, ownerID string) ([]types.Candidacy, error) {
	records, err := s.List(ctx, table)
	if err != nil {
		return nil, err
	}
	var out []types.Candidacy
	for _, c := range records {
		if !strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			continue
		}
		if ownerID != "" && c.UserID != ownerID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Signup appends a fresh candidacy row. An owner may hold at most one
// non-terminal candidacy across both tables.
func (s *Store) Signup(ctx context.Context, ownerID, name, party, seatID, state, office string, phase types.Phase) (types.Candidacy, error) {
	if _, found, err := s.FindByOwner(ctx, ownerID); err != nil {
		return types.Candidacy{}, err
	} else if found {
		return types.Candidacy{}, types.ErrDuplicateCandidacy
	}
	c := types.Candidacy{
		Table:   ledger.TableSignups,
		UserID:  ownerID,
		Name:    strings.TrimSpace(name),
		SeatID:  seatID,
		Party:   party,
		Phase:   string(phase),
		State:   state,
		Office:  office,
		Stamina: 100,
	}
	if err := s.store.AppendRow(ctx, ledger.TableSignups, FormatRow(c)); err != nil {
		return types.Candidacy{}, err
	}
	return c, nil
}

// FormatRow encodes a candidacy in schema order.
func FormatRow(c types.Candidacy) []string {
	return []string{
		c.UserID,
		c.Name,
		c.SeatID,
		c.Party,
		c.Phase,
		c.State,
		c.Office,
		strconv.Itoa(c.Corruption),
		strconv.Itoa(c.Stamina),
		strconv.FormatFloat(c.Points, 'f', -1, 64),
		c.Status,
	}
}

// Withdraw deletes the owner's named signup row. Decided candidacies
// (Winner, Loser or an already-withdrawn marker) stay put.
func (s *Store) Withdraw(ctx context.Context, ownerID, name string) (types.Candidacy, error) {
	matches, err := s.FindByName(ctx, ledger.TableSignups, name, ownerID)
	if err != nil {
		return types.Candidacy{}, err
	}
	if len(matches) == 0 {
		return types.Candidacy{}, types.ErrNotFound
	}
	for _, c := range matches {
		if !types.IsTerminal(c.Status) {
			if err := s.store.DeleteRow(ctx, c.Table, c.Row); err != nil {
				return types.Candidacy{}, err
			}
			return c, nil
		}
	}
	return types.Candidacy{}, types.ErrTerminalState
}

// ApplyAction locates the caller's first non-withdrawn row in a table
// (by name when given, else by owner), gates on stamina, then applies
// the yield produced by effect and persists the changed cells.
//
// effect runs after the stamina gate so randomized draws are only spent
// on actions that go through. It returns the points yield and the
// corruption gain.
func (s *Store) ApplyAction(ctx context.Context, table, ownerID, name string, staminaCost int, effect func() (float64, int)) (types.Candidacy, float64, error) {
	c, err := s.findTarget(ctx, table, ownerID, name)
	if err != nil {
		return types.Candidacy{}, 0, err
	}

	lock := s.rowLock(c.Table, c.Row)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock so concurrent actions see each other.
	c, err = s.findTarget(ctx, table, ownerID, name)
	if err != nil {
		return types.Candidacy{}, 0, err
	}

	if staminaCost > 0 && c.Stamina < staminaCost {
		return c, 0, types.ErrInsufficientStamina
	}

	points, corruption := effect()
	c.Stamina -= staminaCost
	if c.Stamina < 0 {
		c.Stamina = 0
	}
	c.Corruption += corruption
	if c.Corruption > 100 {
		c.Corruption = 100
	}
	c.Points += points

	updates := map[int]string{
		ledger.ColStamina:    strconv.Itoa(c.Stamina),
		ledger.ColCorruption: strconv.Itoa(c.Corruption),
		ledger.ColPoints:     strconv.FormatFloat(c.Points, 'f', -1, 64),
	}
	for col, value := range updates {
		if err := s.store.UpdateCell(ctx, c.Table, c.Row, col, value); err != nil {
			return c, 0, err
		}
	}
	return c, points, nil
}

func (s *Store) findTarget(ctx context.Context, table, ownerID, name string) (types.Candidacy, error) {
	records, err := s.List(ctx, table)
	if err != nil {
		return types.Candidacy{}, err
	}
	for _, c := range records {
		if c.Status == types.StatusWithdrawn || c.UserID == "" {
			continue
		}
		if c.UserID != ownerID {
			continue
		}
		if name != "" && !strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			continue
		}
		return c, nil
	}
	return types.Candidacy{}, types.ErrNoCandidacy
}

// AddPoints adds a flat reward to a candidate matched by name, office
// and state (plus party when given). Used by poll rewards.
func (s *Store) AddPoints(ctx context.Context, table, name, office, state, party string, delta float64) error {
	records, err := s.List(ctx, table)
	if err != nil {
		return err
	}
	for _, c := range records {
		if c.Status == types.StatusWithdrawn {
			continue
		}
		if !strings.EqualFold(c.Name, name) || !strings.EqualFold(c.Office, office) || !strings.EqualFold(c.State, state) {
			continue
		}
		if party != "" && !strings.EqualFold(c.Party, party) {
			continue
		}

		lock := s.rowLock(c.Table, c.Row)
		lock.Lock()
		rows, err := s.store.ListRows(ctx, c.Table)
		if err == nil && c.Row <= len(rows) {
			fresh := Parse(c.Table, c.Row, rows[c.Row-1])
			err = s.store.UpdateCell(ctx, c.Table, c.Row, ledger.ColPoints,
				strconv.FormatFloat(fresh.Points+delta, 'f', -1, 64))
		}
		lock.Unlock()
		return err
	}
	return types.ErrNotFound
}

// SetStatus writes the winner-status cell of one row.
func (s *Store) SetStatus(ctx context.Context, table string, row int, status string) error {
	lock := s.rowLock(table, row)
	lock.Lock()
	defer lock.Unlock()
	return s.store.UpdateCell(ctx, table, row, ledger.ColWinner, status)
}
