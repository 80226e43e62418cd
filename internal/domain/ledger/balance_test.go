package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByPair(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	ab := Pair{PayerID: a, PayeeID: b}
	ba := Pair{PayerID: b, PayeeID: a}
	ac := Pair{PayerID: a, PayeeID: c}

	items := []AccrualItem{
		{InvoiceID: uuid.New(), Pair: ab, Amount: decimal.NewFromInt(100)},
		{InvoiceID: uuid.New(), Pair: ba, Amount: decimal.NewFromInt(10)},
		{InvoiceID: uuid.New(), Pair: ab, Amount: decimal.NewFromInt(50)},
		{InvoiceID: uuid.New(), Pair: ac, Amount: decimal.NewFromInt(1)},
	}

	groups := GroupByPair(items)
	require.Len(t, groups, 3)

	assert.Equal(t, ab, groups[0].Pair)
	assert.Equal(t, ba, groups[1].Pair)
	assert.Equal(t, ac, groups[2].Pair)

	assert.True(t, groups[0].Total().Equal(decimal.NewFromInt(150)))
	assert.Equal(t, []uuid.UUID{items[0].InvoiceID, items[2].InvoiceID}, groups[0].InvoiceIDs())
	assert.Empty(t, GroupByPair(nil))
}

func TestAggregateDeltas(t *testing.T) {
	blocked, x, y := uuid.New(), uuid.New(), uuid.New()

	deltas := NewAggregateDeltas()
	deltas.AddBalance(Pair{PayerID: blocked, PayeeID: x}, decimal.NewFromInt(-100))
	deltas.AddBalance(Pair{PayerID: y, PayeeID: blocked}, decimal.NewFromInt(-30))
	deltas.AddBalance(Pair{PayerID: blocked, PayeeID: y}, decimal.NewFromInt(-5))

	got := make(map[uuid.UUID]AggregateDelta)
	var order []uuid.UUID
	err := deltas.Each(func(id uuid.UUID, d AggregateDelta) error {
		order = append(order, id)
		got[id] = d
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 3, deltas.Len())
	assert.Equal(t, []uuid.UUID{blocked, x, y}, order)
	assert.True(t, got[blocked].Payable.Equal(decimal.NewFromInt(-105)))
	assert.True(t, got[blocked].Receivable.Equal(decimal.NewFromInt(-30)))
	assert.True(t, got[x].Receivable.Equal(decimal.NewFromInt(-100)))
	assert.True(t, got[y].Payable.Equal(decimal.NewFromInt(-30)))
	assert.True(t, got[y].Receivable.Equal(decimal.NewFromInt(-5)))
}

func TestAggregateDeltas_SkipsZero(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	deltas := NewAggregateDeltas()
	deltas.AddBalance(Pair{PayerID: a, PayeeID: b}, decimal.Zero)

	calls := 0
	require.NoError(t, deltas.Each(func(uuid.UUID, AggregateDelta) error {
		calls++
		return nil
	}))
	assert.Zero(t, calls)
}

func TestSummarizeRuns(t *testing.T) {
	run1, run2 := uuid.New(), uuid.New()
	loop1, loop2, loop3 := uuid.New(), uuid.New(), uuid.New()

	runs := SummarizeRuns([]RunLoopRef{
		{RunID: run2, LoopID: loop3},
		{RunID: run1, LoopID: loop1},
		{RunID: run2, LoopID: loop3},
		{RunID: run1, LoopID: loop2},
	})

	require.Len(t, runs, 2)
	assert.Equal(t, run2, runs[0].RunID)
	assert.Equal(t, []uuid.UUID{loop3}, runs[0].LoopIDs)
	assert.Equal(t, run1, runs[1].RunID)
	assert.Equal(t, []uuid.UUID{loop1, loop2}, runs[1].LoopIDs)
}

func TestBalance_Involves(t *testing.T) {
	b := &Balance{PayerID: uuid.New(), PayeeID: uuid.New()}
	assert.True(t, b.Involves(b.PayerID))
	assert.True(t, b.Involves(b.PayeeID))
	assert.False(t, b.Involves(uuid.New()))
	assert.Equal(t, Pair{PayerID: b.PayerID, PayeeID: b.PayeeID}, b.Pair())
}
