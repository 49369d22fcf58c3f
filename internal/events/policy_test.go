package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "auto_clear", AutoClear.String())
	assert.Equal(t, "persistent", Persistent.String())
	assert.Equal(t, "policy(0)", Policy(0).String())
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected Policy
	}{
		{"auto_clear", AutoClear},
		{"auto", AutoClear},
		{"persistent", Persistent},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePolicy(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
			assert.True(t, p.Valid())
		})
	}
}

func TestParsePolicy_Unknown(t *testing.T) {
	_, err := ParsePolicy("forever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forever")
	assert.False(t, Policy(0).Valid())
}
