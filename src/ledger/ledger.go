// Package ledger abstracts the spreadsheet-like record store the game
// persists into. Rows are 1-based with row 1 reserved for the header;
// all mutation operations address rows by that convention.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/aprp/electionbot/src/types"
)

// Well-known table names.
const (
	TableSignups = "All Signups"
	TableGeneral = "All Winners"
	TableHistory = "Election History"
	TableCycles  = "Cycles"
)

// Ledger is the record-store contract. ListRows on a table that does
// not exist yet returns zero rows and no error; EnsureTable racing with
// a concurrent create may leave a reader observing that state briefly.
type Ledger interface {
	ListRows(ctx context.Context, table string) ([][]string, error)
	AppendRow(ctx context.Context, table string, values []string) error
	UpdateCell(ctx context.Context, table string, row, col int, value string) error
	DeleteRow(ctx context.Context, table string, row int) error
	EnsureTable(ctx context.Context, table string) error
}

// Headers by table, in fixed schema order. Used for parsing and for
// initial creation by EnsureTable.
var headers = map[string][]string{
	TableSignups: {"User ID", "Name", "Seat ID", "Party", "Phase", "States", "Office", "Corruption", "Stamina", "Points", "Winner"},
	TableGeneral: {"User ID", "Name", "Seat ID", "Party", "Phase", "States", "Office", "Corruption", "Stamina", "Points", "Winner"},
	TableHistory: {"Year", "Office", "State", "Seat ID", "Candidate", "Party", "Points", "Votes", "Corruption", "Final Score", "Winner"},
	TableCycles:  {"Seat ID", "Office", "State", "Origin Year", "Term Length", "", "Settings"},
}

// Header returns the schema header for a known table, or nil.
func Header(table string) []string {
	h, ok := headers[Normalize(table)]
	if !ok {
		return nil
	}
	out := make([]string, len(h))
	copy(out, h)
	return out
}

// Column indexes (1-based) into the default candidacy schema.
const (
	ColUserID = iota + 1
	ColName
	ColSeatID
	ColParty
	ColPhase
	ColState
	ColOffice
	ColCorruption
	ColStamina
	ColPoints
	ColWinner
)

// Normalize title-cases a table name so lookups are case-insensitive.
func Normalize(table string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(table)))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func wrapStorage(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, types.ErrStorage)
}
