package frameset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultFrameFilter is assumed when a dataset has no frame filter
const DefaultFrameFilter = "step=1"

// ErrMalformedFrameFilter is returned when a frame filter has no usable step
var ErrMalformedFrameFilter = errors.New("malformed frame filter")

// ParseStep returns the sampling step encoded in a frame filter.
// The step is the value after the last '=', so "a=1,step=3" yields 3.
func ParseStep(filter string) (int, error) {
	if filter == "" {
		filter = DefaultFrameFilter
	}

	value := filter[strings.LastIndex(filter, "=")+1:]
	step, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedFrameFilter, filter)
	}
	if step < 1 {
		return 0, fmt.Errorf("%w: %q: step must be positive", ErrMalformedFrameFilter, filter)
	}

	return step, nil
}

// FormatStep encodes a sampling step as a frame filter
func FormatStep(step int) string {
	return "step=" + strconv.Itoa(step)
}
