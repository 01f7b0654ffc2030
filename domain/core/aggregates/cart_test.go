package aggregates

import (
	"fmt"
	"math/rand"
	"testing"

	"cartsync/domain/config"
	"cartsync/domain/core/entities"
	"cartsync/domain/core/valueobjects"
	"cartsync/domain/events"
	pkgerrors "cartsync/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineItem(t *testing.T, id string, price float64) entities.LineItem {
	t.Helper()
	item, err := entities.NewLineItem(id, "Item "+id, price, 1, "Acme", "/"+id+".jpg")
	require.NoError(t, err)
	return item
}

func newCart(t *testing.T) *Cart {
	t.Helper()
	cart, err := NewCart("s1", nil)
	require.NoError(t, err)
	return cart
}

func eventTypes(evts []events.DomainEvent) []string {
	out := make([]string, 0, len(evts))
	for _, e := range evts {
		out = append(out, e.GetEventType())
	}
	return out
}

func TestNewCart(t *testing.T) {
	_, err := NewCart("", nil)
	assert.Error(t, err)

	cart := newCart(t)
	assert.Equal(t, "s1", cart.ID())
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, 0.0, cart.Total())
	assert.Equal(t, 1, cart.Version())
}

func TestCart_AddMergesByProductID(t *testing.T) {
	cart := newCart(t)

	line, err := cart.Add(lineItem(t, "p1", 10), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)

	_, err = cart.Add(lineItem(t, "p2", 5), 1)
	require.NoError(t, err)

	line, err = cart.Add(lineItem(t, "p1", 10), 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	items := cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ID.String(), "merge keeps the original position")
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 2, cart.LineCount())
	assert.Equal(t, 6, cart.UnitCount())
	assert.Equal(t, 55.0, cart.Total())
	assert.Equal(t, []string{events.TypeCartItemAdded, events.TypeCartItemAdded, events.TypeCartItemAdded},
		eventTypes(cart.GetUncommittedEvents()))
}

type addOp struct {
	id    string
	delta int
}

// checkAddSequence applies ops to an empty cart and checks that every product
// has exactly one line, in first-add order, holding the sum of its deltas
func checkAddSequence(t *testing.T, ops []addOp) {
	t.Helper()
	cart := newCart(t)

	want := map[string]int{}
	var order []string
	for _, op := range ops {
		if _, seen := want[op.id]; !seen {
			order = append(order, op.id)
		}
		want[op.id] += op.delta

		line, err := cart.Add(lineItem(t, op.id, 2), op.delta)
		require.NoError(t, err)
		require.Equal(t, want[op.id], line.Quantity)
	}

	items := cart.Items()
	require.Len(t, items, len(order))
	units := 0
	for i, item := range items {
		assert.Equal(t, order[i], item.ID.String())
		assert.Equal(t, want[item.ID.String()], item.Quantity)
		units += item.Quantity
	}
	assert.Equal(t, units, cart.UnitCount())
	assert.Equal(t, float64(units)*2, cart.Total())

	reloaded, err := ReconstructCart("s1", items, nil)
	require.NoError(t, err)
	assert.Equal(t, items, reloaded.Items())
}

func TestCart_AddSequences(t *testing.T) {
	tests := []struct {
		name string
		ops  []addOp
	}{
		{"single", []addOp{{"a", 1}}},
		{"same product repeated", []addOp{{"a", 1}, {"a", 2}, {"a", 3}}},
		{"distinct products", []addOp{{"a", 1}, {"b", 1}, {"c", 4}}},
		{"interleaved", []addOp{{"a", 2}, {"b", 1}, {"a", 1}, {"c", 5}, {"b", 3}, {"a", 1}}},
		{"large delta", []addOp{{"a", 1000}, {"a", 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkAddSequence(t, tt.ops)
		})
	}
}

func TestCart_AddSequencesGenerated(t *testing.T) {
	for seed := int64(1); seed <= 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		ops := make([]addOp, 1+rng.Intn(40))
		for i := range ops {
			ops[i] = addOp{id: fmt.Sprintf("p%d", rng.Intn(6)), delta: 1 + rng.Intn(5)}
		}
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			checkAddSequence(t, ops)
		})
	}
}

func TestCart_AddRejectsInvalidInput(t *testing.T) {
	cart := newCart(t)

	_, err := cart.Add(entities.LineItem{}, 1)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = cart.Add(lineItem(t, "p1", 1), 0)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.True(t, cart.IsEmpty())
}

func TestCart_Limits(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxLinesPerCart = 1
	cfg.MaxLineQuantity = 3
	cart, err := NewCart("s1", cfg)
	require.NoError(t, err)

	_, err = cart.Add(lineItem(t, "p1", 1), 2)
	require.NoError(t, err)

	_, err = cart.Add(lineItem(t, "p2", 1), 1)
	assert.True(t, pkgerrors.IsBusinessRule(err))

	_, err = cart.Add(lineItem(t, "p1", 1), 2)
	assert.True(t, pkgerrors.IsBusinessRule(err))

	_, err = cart.UpdateQuantity(valueobjects.MustProductID("p1"), 5)
	assert.True(t, pkgerrors.IsBusinessRule(err))

	line, ok := cart.Find(valueobjects.MustProductID("p1"))
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity, "rejected mutations leave the line untouched")
}

func TestCart_UpdateQuantity(t *testing.T) {
	p1 := valueobjects.MustProductID("p1")

	tests := []struct {
		name        string
		delta       int
		wantChanged bool
		wantQty     int
		wantPresent bool
	}{
		{"increment", 2, true, 5, true},
		{"decrement", -1, true, 2, true},
		{"to zero removes", -3, true, 0, false},
		{"below zero removes", -10, true, 0, false},
		{"zero delta", 0, false, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := newCart(t)
			_, err := cart.Add(lineItem(t, "p1", 1), 3)
			require.NoError(t, err)

			changed, err := cart.UpdateQuantity(p1, tt.delta)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)

			line, ok := cart.Find(p1)
			assert.Equal(t, tt.wantPresent, ok)
			if ok {
				assert.Equal(t, tt.wantQty, line.Quantity)
			}
		})
	}
}

func TestCart_UnknownProductIsNoop(t *testing.T) {
	cart := newCart(t)
	_, err := cart.Add(lineItem(t, "p1", 1), 1)
	require.NoError(t, err)
	cart.MarkEventsAsCommitted()
	version := cart.Version()

	changed, err := cart.UpdateQuantity(valueobjects.MustProductID("ghost"), 4)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, cart.Remove(valueobjects.MustProductID("ghost")))

	assert.Equal(t, version, cart.Version())
	assert.Empty(t, cart.GetUncommittedEvents())
}

func TestCart_RemoveAndClear(t *testing.T) {
	cart := newCart(t)
	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := cart.Add(lineItem(t, id, 2), 1)
		require.NoError(t, err)
	}

	assert.True(t, cart.Remove(valueobjects.MustProductID("p2")))
	items := cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ID.String())
	assert.Equal(t, "p3", items[1].ID.String())

	assert.Equal(t, 2, cart.Clear())
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, 0.0, cart.Total())

	evts := eventTypes(cart.GetUncommittedEvents())
	assert.Equal(t, events.TypeCartCleared, evts[len(evts)-1])
	assert.Contains(t, evts, events.TypeCartItemRemoved)
}

func TestCart_ItemsIsACopy(t *testing.T) {
	cart := newCart(t)
	_, err := cart.Add(lineItem(t, "p1", 1), 1)
	require.NoError(t, err)

	items := cart.Items()
	items[0].Quantity = 99

	line, _ := cart.Find(valueobjects.MustProductID("p1"))
	assert.Equal(t, 1, line.Quantity)
}

func TestCart_MarkDrainedClearsConcurrentAdds(t *testing.T) {
	cart := newCart(t)
	_, err := cart.Add(lineItem(t, "p1", 1), 2)
	require.NoError(t, err)
	_, err = cart.Add(lineItem(t, "p2", 1), 1)
	require.NoError(t, err)
	delivered := cart.Items()

	// added while the drain was in flight
	_, err = cart.Add(lineItem(t, "p1", 1), 1)
	require.NoError(t, err)
	_, err = cart.Add(lineItem(t, "p3", 1), 4)
	require.NoError(t, err)

	extra := cart.MarkDrained(delivered)
	assert.Equal(t, 1, extra)
	assert.Empty(t, cart.Items())
	assert.Equal(t, 0, cart.LineCount())

	evts := cart.GetUncommittedEvents()
	drained, ok := evts[len(evts)-1].(events.CartDrained)
	require.True(t, ok)
	assert.Equal(t, events.TypeCartDrained, drained.GetEventType())
}

func TestReconstructCart(t *testing.T) {
	snapshot := []entities.LineItem{
		lineItem(t, "p1", 1),
		{ID: valueobjects.MustProductID("bad"), Quantity: 0},
		lineItem(t, "p2", 3),
		lineItem(t, "p1", 1),
		{Quantity: 2},
	}

	cart, err := ReconstructCart("s1", snapshot, nil)
	require.NoError(t, err)

	items := cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ID.String())
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "p2", items[1].ID.String())
	assert.Empty(t, cart.GetUncommittedEvents())
}
