package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Arithmetic(t *testing.T) {
	unit := MustMoney("5.00").Add(MustMoney("1.50"))
	assert.Equal(t, "6.50", unit.String())
	assert.Equal(t, "19.50", unit.Mul(3).String())
	assert.Equal(t, "0.00", ZeroMoney().String())
}

func TestMoney_ApplyDiscount(t *testing.T) {
	price := MustMoney("79.99")

	assert.Equal(t, "79.99", price.ApplyDiscount(0).String())
	assert.Equal(t, "71.99", price.ApplyDiscount(10).String())
	assert.Equal(t, "0.00", price.ApplyDiscount(150).String())
}

func TestMoney_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Price Money `json:"price"`
	}{Price: MustMoney("10")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":"10.00"}`, string(out))

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.345","b":3.1}`), &in))
	assert.Equal(t, "12.35", in.A.String())
	assert.Equal(t, "3.10", in.B.String())
}

func TestCartItem_SameLine(t *testing.T) {
	v1, v2 := uint(1), uint(2)

	plain := CartItem{ProductID: 10}
	assert.True(t, plain.SameLine(10, nil))
	assert.False(t, plain.SameLine(10, &v1))
	assert.False(t, plain.SameLine(11, nil))

	variant := CartItem{ProductID: 10, VariantID: &v1}
	assert.True(t, variant.SameLine(10, &v1))
	assert.False(t, variant.SameLine(10, &v2))
	assert.False(t, variant.SameLine(10, nil))
}

func TestStatuses(t *testing.T) {
	assert.True(t, OrderStatusShipped.Valid())
	assert.False(t, OrderStatus("lost").Valid())
	assert.True(t, OrderStatusDelivered.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.False(t, OrderStatusProcessing.Terminal())
	assert.True(t, PaymentStatusRefunded.Valid())
	assert.False(t, PaymentStatus("completed").Valid())
}
