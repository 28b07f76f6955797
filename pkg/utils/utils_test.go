package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		name     string
		input    decimal.Decimal
		expected string
	}{
		{name: "already two places", input: decimal.RequireFromString("200.00"), expected: "200"},
		{name: "half rounds up", input: decimal.RequireFromString("0.125"), expected: "0.13"},
		{name: "repeating thirds", input: decimal.NewFromInt(200).Div(decimal.NewFromInt(3)), expected: "66.67"},
		{name: "negative half rounds away from zero", input: decimal.RequireFromString("-1.005"), expected: "-1.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundMoney(tt.input)
			assert.True(t, result.Equal(decimal.RequireFromString(tt.expected)),
				"Expected %s, but got %s", tt.expected, result)
		})
	}
}

func TestFloorZero(t *testing.T) {
	assert.True(t, FloorZero(decimal.NewFromInt(-10)).IsZero())
	assert.True(t, FloorZero(decimal.NewFromInt(10)).Equal(decimal.NewFromInt(10)))
	assert.True(t, FloorZero(decimal.Zero).IsZero())
}

func TestSum(t *testing.T) {
	assert.True(t, Sum().IsZero())
	assert.True(t, Sum(decimal.NewFromInt(1000), decimal.NewFromInt(300)).Equal(decimal.NewFromInt(1300)))
}

func TestDateOrToday(t *testing.T) {
	now := time.Date(2024, 12, 31, 15, 4, 5, 0, time.UTC)
	explicit := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), DateOrToday(nil, now))
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), DateOrToday(&explicit, now))
}
