package candidacy

import (
	"context"
	"errors"
	"testing"

	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *ledger.Memory) {
	t.Helper()
	m := ledger.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.EnsureTable(ctx, ledger.TableSignups))
	require.NoError(t, m.EnsureTable(ctx, ledger.TableGeneral))
	return NewStore(m), m
}

func TestSignupAndFindByOwner(t *testing.T) {
	assert := assert.New(t)
	s, _ := newStore(t)
	ctx := context.Background()

	c, err := s.Signup(ctx, "u1", " Alice Reed ", types.PartyDemocrats, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)
	assert.Equal("Alice Reed", c.Name)
	assert.Equal(100, c.Stamina)
	assert.Equal(0.0, c.Points)

	found, ok, err := s.FindByOwner(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal("Alice Reed", found.Name)
	assert.Equal(2, found.Row)
}

func TestSignupRejectsSecondCandidacy(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "u1", "Alice", types.PartyDemocrats, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)

	_, err = s.Signup(ctx, "u1", "Other Name", types.PartyRepublicans, "AUS-SEN", "Austin", "Senator", types.PhaseSignups)
	assert.ErrorIs(t, err, types.ErrDuplicateCandidacy)
}

func TestSignupAllowedAfterTerminalStatus(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	c, err := s.Signup(ctx, "u1", "Alice", types.PartyDemocrats, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(ctx, ledger.TableSignups, 2, types.StatusLoser))
	_ = c

	_, err = s.Signup(ctx, "u1", "Alice Again", types.PartyDemocrats, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	assert.NoError(t, err)
}

func TestWithdrawDeletesRowAndShifts(t *testing.T) {
	assert := assert.New(t)
	s, m := newStore(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "u1", "Alice", types.PartyDemocrats, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)
	_, err = s.Signup(ctx, "u2", "Bob", types.PartyRepublicans, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)

	withdrawn, err := s.Withdraw(ctx, "u1", "alice")
	require.NoError(t, err)
	assert.Equal("Alice", withdrawn.Name)

	rows, err := m.ListRows(ctx, ledger.TableSignups)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal("Bob", rows[1][ledger.ColName-1])

	// Bob's record is now addressable at the shifted row.
	found, ok, err := s.FindByOwner(ctx, "u2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(2, found.Row)
}

func TestWithdrawErrors(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Withdraw(ctx, "u1", "Nobody")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.Signup(ctx, "u1", "Alice", types.PartyDemocrats, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(ctx, ledger.TableSignups, 2, types.StatusWinner))

	_, err = s.Withdraw(ctx, "u1", "Alice")
	assert.ErrorIs(t, err, types.ErrTerminalState)
}

func TestApplyActionUpdatesRecord(t *testing.T) {
	assert := assert.New(t)
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "u1", "Alice", types.PartyDemocrats, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)

	c, yield, err := s.ApplyAction(ctx, ledger.TableSignups, "u1", "", 10, func() (float64, int) { return 42.5, 3 })
	require.NoError(t, err)
	assert.Equal(42.5, yield)
	assert.Equal(90, c.Stamina)
	assert.Equal(3, c.Corruption)
	assert.Equal(42.5, c.Points)

	// Effects accumulate across actions.
	c, _, err = s.ApplyAction(ctx, ledger.TableSignups, "u1", "Alice", 0, func() (float64, int) { return 0.5, 0 })
	require.NoError(t, err)
	assert.Equal(43.0, c.Points)
	assert.Equal(90, c.Stamina)
}

func TestApplyActionStaminaGate(t *testing.T) {
	s, m := newStore(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "u1", "Alice", types.PartyDemocrats, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)
	require.NoError(t, m.UpdateCell(ctx, ledger.TableSignups, 2, ledger.ColStamina, "5"))

	ran := false
	_, _, err = s.ApplyAction(ctx, ledger.TableSignups, "u1", "", 10, func() (float64, int) {
		ran = true
		return 1, 0
	})
	assert.ErrorIs(t, err, types.ErrInsufficientStamina)
	assert.False(t, ran, "effect must not run when the stamina gate rejects")
}

func TestApplyActionClampsCorruption(t *testing.T) {
	s, m := newStore(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "u1", "Alice", types.PartyDemocrats, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)
	require.NoError(t, m.UpdateCell(ctx, ledger.TableSignups, 2, ledger.ColCorruption, "98"))

	c, _, err := s.ApplyAction(ctx, ledger.TableSignups, "u1", "", 0, func() (float64, int) { return 0, 15 })
	require.NoError(t, err)
	assert.Equal(t, 100, c.Corruption)
}

func TestApplyActionNoCandidacy(t *testing.T) {
	s, _ := newStore(t)

	_, _, err := s.ApplyAction(context.Background(), ledger.TableSignups, "ghost", "", 0, func() (float64, int) { return 1, 0 })
	assert.ErrorIs(t, err, types.ErrNoCandidacy)
	assert.True(t, errors.Is(err, types.ErrNoCandidacy))
}

func TestAddPoints(t *testing.T) {
	assert := assert.New(t)
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "u1", "Alice", types.PartyDemocrats, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)

	require.NoError(t, s.AddPoints(ctx, ledger.TableSignups, "ALICE", "governor", "columbia", types.PartyDemocrats, 8))

	found, ok, err := s.FindByOwner(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(8.0, found.Points)

	err = s.AddPoints(ctx, ledger.TableSignups, "Alice", "Governor", "Columbia", types.PartyRepublicans, 8)
	assert.ErrorIs(err, types.ErrNotFound)
}
