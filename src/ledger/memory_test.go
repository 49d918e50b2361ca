package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("All Signups", Normalize("all signups"))
	assert.Equal("All Signups", Normalize("  ALL   SIGNUPS "))
	assert.Equal("Cycles", Normalize("cycles"))
}

func TestEnsureTableWritesHeaderOnce(t *testing.T) {
	assert := assert.New(t)
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.EnsureTable(ctx, TableSignups))
	require.NoError(t, m.AppendRow(ctx, TableSignups, []string{"u1", "Alice"}))
	require.NoError(t, m.EnsureTable(ctx, TableSignups))

	rows, err := m.ListRows(ctx, TableSignups)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(Header(TableSignups), rows[0])
	assert.Equal("Alice", rows[1][1])
}

func TestEnsureTableUnknownSchema(t *testing.T) {
	m := NewMemory()
	assert.Error(t, m.EnsureTable(context.Background(), "No Such Table"))
}

func TestListRowsMissingTable(t *testing.T) {
	m := NewMemory()
	rows, err := m.ListRows(context.Background(), TableGeneral)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateCellGrowsRow(t *testing.T) {
	assert := assert.New(t)
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.EnsureTable(ctx, TableSignups))
	require.NoError(t, m.AppendRow(ctx, TableSignups, []string{"u1"}))
	require.NoError(t, m.UpdateCell(ctx, TableSignups, 2, ColPoints, "12.5"))

	rows, err := m.ListRows(ctx, TableSignups)
	require.NoError(t, err)
	assert.Equal("12.5", rows[1][ColPoints-1])
}

func TestUpdateCellRejectsHeaderRow(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.EnsureTable(ctx, TableSignups))

	assert.Error(t, m.UpdateCell(ctx, TableSignups, 1, 1, "x"))
	assert.Error(t, m.UpdateCell(ctx, TableSignups, 5, 1, "x"))
}

func TestDeleteRowShiftsFollowing(t *testing.T) {
	assert := assert.New(t)
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.EnsureTable(ctx, TableSignups))
	require.NoError(t, m.AppendRow(ctx, TableSignups, []string{"u1", "Alice"}))
	require.NoError(t, m.AppendRow(ctx, TableSignups, []string{"u2", "Bob"}))
	require.NoError(t, m.AppendRow(ctx, TableSignups, []string{"u3", "Cara"}))

	require.NoError(t, m.DeleteRow(ctx, TableSignups, 2))

	rows, err := m.ListRows(ctx, TableSignups)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal("Bob", rows[1][1])
	assert.Equal("Cara", rows[2][1])
}

func TestListRowsReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.AppendRow(ctx, TableSignups, []string{"u1", "Alice"}))
	rows, err := m.ListRows(ctx, TableSignups)
	require.NoError(t, err)
	rows[0][1] = "mutated"

	again, err := m.ListRows(ctx, TableSignups)
	require.NoError(t, err)
	assert.Equal(t, "Alice", again[0][1])
}
