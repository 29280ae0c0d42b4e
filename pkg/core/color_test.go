package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Color
	}{
		{name: "six digits", in: "#1A2B3C", want: Color{R: 0x1A, G: 0x2B, B: 0x3C, A: 0xFF}},
		{name: "lower case", in: "#ff0000", want: Color{R: 0xFF, A: 0xFF}},
		{name: "eight digits", in: "#00FF0080", want: Color{G: 0xFF, A: 0x80}},
		{name: "black", in: "#000000", want: Black},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseColor_Invalid(t *testing.T) {
	for _, in := range []string{"", "1A2B3C", "#1A2B3", "#GGGGGG", "#1A2B3C4D5E"} {
		_, err := ParseColor(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrValidation), in)
	}
}

func TestColorHexRoundTrip(t *testing.T) {
	for _, in := range []string{"#1A2B3C", "#FFFFFF", "#00000000", "#12345678"} {
		c, err := ParseColor(in)
		require.NoError(t, err)
		assert.Equal(t, in, c.Hex())
	}
}

func TestColorJSON(t *testing.T) {
	layer := Layer{Name: "walls", Color: MustParseColor("#1A2B3C")}
	data, err := json.Marshal(layer)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"color":"#1A2B3C"`)

	var decoded Layer
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, layer.Color, decoded.Color)
}
