// Package cycle owns the shared game clock: year, cycle, month, pause
// flag and the phase derived from them, plus the seat reference data
// that lives in the same config table.
package cycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
)

// Settings block addresses inside the Cycles table.
const (
	settingsCol = 7
	rowCycle    = 2
	rowYear     = 3
	rowMonth    = 4
	rowPaused   = 5

	// minConfigRows is the header plus the four settings rows. Anything
	// shorter reads as the bootstrap default.
	minConfigRows = 5
)

// Bootstrap defaults used when the config table is absent or incomplete.
const (
	defaultCycle = 1
	defaultYear  = 1990
	defaultMonth = 8
)

// Admin setter bounds.
const (
	minYear = 1990
	maxYear = 2100
)

type phaseRange struct {
	phase      types.Phase
	year       int
	startMonth int
	endMonth   int
}

// The clock only models two in-world years; outside them every month
// derives Signups. First matching range wins, including at overlapping
// boundary months.
var phaseRanges = []phaseRange{
	{types.PhaseSignups, 1991, 4, 8},
	{types.PhasePrimaryCampaign, 1991, 8, 12},
	{types.PhasePrimaryElection, 1991, 12, 12},
	{types.PhaseGeneralCampaign, 1992, 4, 9},
	{types.PhaseGeneralElection, 1992, 12, 12},
}

// PhaseFor derives the phase for a month/year. Never persisted.
func PhaseFor(month, year int) types.Phase {
	for _, r := range phaseRanges {
		if year == r.year && month >= r.startMonth && month <= r.endMonth {
			return r.phase
		}
	}
	return types.PhaseSignups
}

func startMonthOf(p types.Phase, year int) (int, bool) {
	for _, r := range phaseRanges {
		if r.phase == p && r.year == year {
			return r.startMonth, true
		}
	}
	return 0, false
}

// Service reads and mutates the clock through the ledger.
type Service struct {
	store ledger.Ledger
}

func NewService(store ledger.Ledger) *Service {
	return &Service{store: store}
}

// Bootstrap makes sure the config table exists with its settings block.
// Best effort at startup; an existing table is left untouched.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.store.EnsureTable(ctx, ledger.TableCycles); err != nil {
		return err
	}
	rows, err := s.store.ListRows(ctx, ledger.TableCycles)
	if err != nil {
		return err
	}
	if len(rows) >= minConfigRows {
		return nil
	}
	defaults := map[int]string{
		rowCycle:  strconv.Itoa(defaultCycle),
		rowYear:   strconv.Itoa(defaultYear),
		rowMonth:  strconv.Itoa(defaultMonth),
		rowPaused: "FALSE",
	}
	for row := len(rows) + 1; row <= minConfigRows; row++ {
		cells := make([]string, settingsCol)
		cells[settingsCol-1] = defaults[row]
		if err := s.store.AppendRow(ctx, ledger.TableCycles, cells); err != nil {
			return err
		}
	}
	return nil
}

// GetCurrentState reads the clock. A missing or incomplete config table
// yields the bootstrap default without persisting it.
func (s *Service) GetCurrentState(ctx context.Context) (types.CycleState, error) {
	state := types.CycleState{Cycle: defaultCycle, Year: defaultYear, Month: defaultMonth}
	rows, err := s.store.ListRows(ctx, ledger.TableCycles)
	if err != nil {
		return state, err
	}
	if len(rows) >= minConfigRows {
		state.Cycle = cellInt(rows, rowCycle, defaultCycle)
		state.Year = cellInt(rows, rowYear, defaultYear)
		state.Month = cellInt(rows, rowMonth, defaultMonth)
		state.Paused = strings.EqualFold(cell(rows, rowPaused), "true")
	}
	state.Phase = PhaseFor(state.Month, state.Year)
	return state, nil
}

// AdvanceTick moves the clock one month forward and persists the new
// position. Paused clocks do not move. When the derived phase changes,
// the month is re-encoded to the new phase's start month so the phase
// survives a raw month read; the re-encode is skipped when the start
// month would derive a different phase, which happens at overlapping
// range boundaries.
func (s *Service) AdvanceTick(ctx context.Context) (types.CycleState, error) {
	state, err := s.GetCurrentState(ctx)
	if err != nil {
		return state, err
	}
	if state.Paused {
		return state, nil
	}

	oldPhase := state.Phase
	state.Month++
	if state.Month > 12 {
		state.Month = 1
		state.Year++
		state.Cycle++
		if err := s.setCell(ctx, rowYear, strconv.Itoa(state.Year)); err != nil {
			return state, err
		}
		if err := s.setCell(ctx, rowCycle, strconv.Itoa(state.Cycle)); err != nil {
			return state, err
		}
	}

	state.Phase = PhaseFor(state.Month, state.Year)
	if state.Phase != oldPhase {
		if start, ok := startMonthOf(state.Phase, state.Year); ok && PhaseFor(start, state.Year) == state.Phase {
			state.Month = start
		}
	}
	if err := s.setCell(ctx, rowMonth, strconv.Itoa(state.Month)); err != nil {
		return state, err
	}
	return state, nil
}

// SetYear persists a new in-world year.
func (s *Service) SetYear(ctx context.Context, year int) error {
	if year < minYear || year > maxYear {
		return types.Validation("year", fmt.Sprintf("must be between %d and %d", minYear, maxYear))
	}
	return s.setCell(ctx, rowYear, strconv.Itoa(year))
}

// SetCycle persists a new cycle number.
func (s *Service) SetCycle(ctx context.Context, cycle int) error {
	if cycle < 1 {
		return types.Validation("cycle", "must be at least 1")
	}
	return s.setCell(ctx, rowCycle, strconv.Itoa(cycle))
}

// SetMonth persists a new in-world month.
func (s *Service) SetMonth(ctx context.Context, month int) error {
	if month < 1 || month > 12 {
		return types.Validation("month", "must be between 1 and 12")
	}
	return s.setCell(ctx, rowMonth, strconv.Itoa(month))
}

// SetPaused persists the pause flag.
func (s *Service) SetPaused(ctx context.Context, paused bool) error {
	return s.setCell(ctx, rowPaused, strings.ToUpper(strconv.FormatBool(paused)))
}

func (s *Service) setCell(ctx context.Context, row int, value string) error {
	return s.store.UpdateCell(ctx, ledger.TableCycles, row, settingsCol, value)
}

// Seats reads the seat reference rows from the config table.
func (s *Service) Seats(ctx context.Context) ([]types.Seat, error) {
	rows, err := s.store.ListRows(ctx, ledger.TableCycles)
	if err != nil {
		return nil, err
	}
	var seats []types.Seat
	for i, row := range rows {
		if i == 0 || len(row) < 5 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		origin, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			continue
		}
		term, _ := strconv.Atoi(strings.TrimSpace(row[4]))
		seats = append(seats, types.Seat{
			SeatID:     strings.TrimSpace(row[0]),
			Office:     strings.TrimSpace(row[1]),
			State:      strings.TrimSpace(row[2]),
			OriginYear: origin,
			TermLength: term,
		})
	}
	return seats, nil
}

// EligibleSeats filters the seat reference data to seats up for
// election in the given year, optionally in one state.
func (s *Service) EligibleSeats(ctx context.Context, year int, state string) ([]types.Seat, error) {
	seats, err := s.Seats(ctx)
	if err != nil {
		return nil, err
	}
	var out []types.Seat
	for _, seat := range seats {
		if !seat.EligibleIn(year) {
			continue
		}
		if state != "" && !strings.EqualFold(seat.State, state) {
			continue
		}
		out = append(out, seat)
	}
	return out, nil
}

func cell(rows [][]string, row int) string {
	if row <= len(rows) && len(rows[row-1]) >= settingsCol {
		return strings.TrimSpace(rows[row-1][settingsCol-1])
	}
	return ""
}

func cellInt(rows [][]string, row, def int) int {
	v, err := strconv.Atoi(cell(rows, row))
	if err != nil {
		return def
	}
	return v
}
