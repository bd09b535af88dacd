package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func latte() Product {
	return Product{
		ID:        "p-latte",
		Name:      "Latte",
		BasePrice: decimal.RequireFromString("55.00"),
		Category:  "Coffee",
		OptionGroups: []OptionGroup{
			{
				Name: "Size",
				Mode: SelectionSingle,
				Choices: []Choice{
					{Name: "Regular", PriceModifier: decimal.Zero},
					{Name: "Large", PriceModifier: decimal.RequireFromString("10.00")},
				},
			},
			{
				Name: "Toppings",
				Mode: SelectionMulti,
				Choices: []Choice{
					{Name: "Whipped cream", PriceModifier: decimal.RequireFromString("5.00")},
					{Name: "Caramel", PriceModifier: decimal.RequireFromString("7.00")},
				},
			},
		},
	}
}

func TestResolveSelections_OrderedByGroup(t *testing.T) {
	choices, err := latte().ResolveSelections([]Selection{
		{Group: "Toppings", Choice: "Caramel"},
		{Group: "Size", Choice: "Large"},
		{Group: "Toppings", Choice: "Whipped cream"},
	})
	require.NoError(t, err)
	require.Len(t, choices, 3)
	assert.Equal(t, "Large", choices[0].Name)
	assert.Equal(t, "Caramel", choices[1].Name)
	assert.Equal(t, "Whipped cream", choices[2].Name)
}

func TestResolveSelections_MultiGroupMayBeEmpty(t *testing.T) {
	choices, err := latte().ResolveSelections([]Selection{{Group: "Size", Choice: "Regular"}})
	require.NoError(t, err)
	require.Len(t, choices, 1)
	assert.True(t, choices[0].PriceModifier.IsZero())
}

func TestResolveSelections_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		selections []Selection
	}{
		{"missing single choice", nil},
		{"two single choices", []Selection{{"Size", "Regular"}, {"Size", "Large"}}},
		{"unknown group", []Selection{{"Size", "Regular"}, {"Milk", "Oat"}}},
		{"unknown choice", []Selection{{"Size", "Huge"}}},
		{"duplicate multi choice", []Selection{{"Size", "Large"}, {"Toppings", "Caramel"}, {"Toppings", "Caramel"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := latte().ResolveSelections(tt.selections)
			assert.ErrorIs(t, err, ErrInvalidSelection)
		})
	}
}

func TestResolveSelections_NoOptionGroups(t *testing.T) {
	p := Product{ID: "p-cookie", Name: "Cookie", BasePrice: decimal.NewFromInt(30)}

	choices, err := p.ResolveSelections(nil)
	require.NoError(t, err)
	assert.Empty(t, choices)
}

func TestResolveSelections_RepeatedGroupNameUsesFirst(t *testing.T) {
	p := Product{
		ID:        "p-tea",
		Name:      "Milk tea",
		BasePrice: decimal.NewFromInt(40),
		OptionGroups: []OptionGroup{
			{Name: "Extras", Mode: SelectionMulti, Choices: []Choice{{Name: "Honey", PriceModifier: decimal.NewFromInt(5)}}},
			{Name: "Extras", Mode: SelectionMulti, Choices: []Choice{{Name: "Boba", PriceModifier: decimal.NewFromInt(10)}}},
		},
	}

	choices, err := p.ResolveSelections([]Selection{{"Extras", "Honey"}})
	require.NoError(t, err)
	require.Len(t, choices, 1)
	assert.Equal(t, "Honey", choices[0].Name)
	assert.True(t, decimal.NewFromInt(5).Equal(choices[0].PriceModifier))

	_, err = p.ResolveSelections([]Selection{{"Extras", "Boba"}})
	assert.ErrorIs(t, err, ErrInvalidSelection)
}
