package frameset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   int
	}{
		{name: "empty filter defaults to 1", filter: "", want: 1},
		{name: "default filter", filter: "step=1", want: 1},
		{name: "plain step", filter: "step=5", want: 5},
		{name: "last assignment wins", filter: "a=2,step=7", want: 7},
		{name: "chained equals", filter: "a=2=9", want: 9},
		{name: "bare number", filter: "4", want: 4},
		{name: "surrounding spaces", filter: "step= 3 ", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStep(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStep_Malformed(t *testing.T) {
	for _, filter := range []string{"step=", "step=x", "step=1.5", "step=0", "step=-2", "step", "step=3,"} {
		t.Run(filter, func(t *testing.T) {
			_, err := ParseStep(filter)
			assert.ErrorIs(t, err, ErrMalformedFrameFilter)
			assert.Contains(t, err.Error(), filter)
		})
	}
}

func TestFormatStep_RoundTrip(t *testing.T) {
	for step := 1; step <= 50; step++ {
		got, err := ParseStep(FormatStep(step))
		require.NoError(t, err)
		assert.Equal(t, step, got)
	}
	assert.Equal(t, DefaultFrameFilter, FormatStep(1))
}
