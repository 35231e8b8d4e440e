package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    Cents
		wantErr bool
	}{
		{"100", 10000, false},
		{"100.00", 10000, false},
		{"33.3", 3330, false},
		{"0.01", 1, false},
		{".5", 50, false},
		{"-2.50", -250, false},
		{"1.234", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{".", 0, true},
		{"--5", 0, true},
		{"+-5", 0, true},
		{"1.+5", 0, true},
		{"1.-5", 0, true},
		{"1_000", 0, true},
		{" 7.25 ", 725, false},
		{"92233720368547757.07", 9223372036854775707, false},
		{"92233720368547758.00", 0, true},
		{"200000000000000000.00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCentsString(t *testing.T) {
	assert.Equal(t, "33.34", Cents(3334).String())
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "-1.10", Cents(-110).String())
}

func TestCentsJSON(t *testing.T) {
	var body struct {
		Amount Cents `json:"amount"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"amount": 60}`), &body))
	assert.Equal(t, Cents(6000), body.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount": "12.5"}`), &body))
	assert.Equal(t, Cents(1250), body.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount": 1.005}`), &body))

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"12.50"}`, string(out))
}

func TestObligationBlocks(t *testing.T) {
	assert.True(t, Obligation{Linked: true}.Blocks())
	assert.False(t, Obligation{Linked: true, Resolved: true}.Blocks())
	assert.False(t, Obligation{Linked: true, Internal: true}.Blocks())
	assert.False(t, Obligation{Linked: false}.Blocks(), "missing resolution record never blocks")
}
