package entities

import (
	"encoding/json"
	"testing"

	pkgerrors "cartsync/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLineItem(t *testing.T) {
	item, err := NewLineItem(" p1 ", " Chair ", 25, 2, " Acme ", " /p1.jpg ")
	require.NoError(t, err)
	assert.Equal(t, "p1", item.ID.String())
	assert.Equal(t, "Chair", item.Name)
	assert.Equal(t, "Acme", item.Vendor)
	assert.Equal(t, "/p1.jpg", item.Image)
	assert.Equal(t, 50.0, item.Subtotal())
	assert.True(t, item.IsValid())

	tests := []struct {
		name     string
		id       string
		price    float64
		quantity int
	}{
		{"empty id", "", 1, 1},
		{"negative price", "p1", -1, 1},
		{"zero quantity", "p1", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLineItem(tt.id, "x", tt.price, tt.quantity, "", "")
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}

func TestLineItem_SnapshotShape(t *testing.T) {
	item, err := NewLineItem("p1", "Chair", 10, 3, "Acme", "/p1.jpg")
	require.NoError(t, err)

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"p1","name":"Chair","price":10,"quantity":3,"vendor":"Acme","image":"/p1.jpg"}`, string(data))

	var back LineItem
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, item, back)

	var broken LineItem
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p1","quantity":0}`), &broken))
	assert.False(t, broken.IsValid())
}

func TestNewWishlistItem(t *testing.T) {
	item, err := NewWishlistItem("w1", "Sofa", 400, "https://img/w1.png", " oak ")
	require.NoError(t, err)
	assert.Equal(t, "oak", item.Material)
	assert.True(t, item.IsValid())

	_, err = NewWishlistItem("", "Sofa", 1, "", "")
	assert.True(t, pkgerrors.IsValidation(err))
	_, err = NewWishlistItem("w1", "Sofa", -3, "", "")
	assert.True(t, pkgerrors.IsValidation(err))

	data, err := json.Marshal(WishlistItem{ID: item.ID, Name: "Sofa"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "material")
}
