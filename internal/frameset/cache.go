package frameset

import (
	"sync"

	"github.com/bdougie/gtlayout/internal/models"
)

type stepKey struct {
	dataID int
	filter string
}

// StepCache memoizes parsed steps per dataset. It is safe for concurrent use.
type StepCache struct {
	steps sync.Map // stepKey -> int
}

// Step returns the dataset's sampling step, parsing its filter at most once
func (c *StepCache) Step(ds models.Dataset) (int, error) {
	key := stepKey{dataID: ds.ID, filter: ds.FrameFilter}

	// Check cache first
	if cached, ok := c.steps.Load(key); ok {
		return cached.(int), nil
	}

	step, err := ParseStep(ds.FrameFilter)
	if err != nil {
		return 0, err
	}
	c.steps.Store(key, step)

	return step, nil
}

// Resolver resolves segment frame sets, sharing parsed steps between calls
type Resolver struct {
	cache StepCache
}

// NewResolver creates a resolver with an empty step cache
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve is SegmentRelFrameSet with the step taken from the cache
func (r *Resolver) Resolve(seg models.Segment, ds models.Dataset) ([]models.RelFrame, error) {
	step, err := r.cache.Step(ds)
	if err != nil {
		return nil, err
	}
	return resolve(seg, ds, step)
}
