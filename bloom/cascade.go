package bloom

// DefaultCascadeRatio is the per-level capacity decay.
const DefaultCascadeRatio = 0.5

// Cascade is a sequence of filters of geometrically decreasing capacity.
// Every level must accept a value for the cascade to accept it, so the
// combined false positive rate is approximately the product of the
// per-level rates.
type Cascade struct {
	levels []*Filter
}

// NewCascade creates a cascade of levels filters. Level i is sized for
// expectedItems * ratio^i at the given per-level false positive rate.
func NewCascade(levels int, expectedItems uint64, fpRate float64, ratio float64) (*Cascade, error) {
	if levels < 1 {
		return nil, ErrBadLevels
	}
	if ratio <= 0 || ratio >= 1 {
		return nil, ErrBadRatio
	}
	c := &Cascade{levels: make([]*Filter, 0, levels)}
	capacity := float64(expectedItems)
	for range levels {
		n := uint64(capacity)
		if n == 0 {
			n = 1
		}
		f, err := New(n, fpRate)
		if err != nil {
			return nil, err
		}
		c.levels = append(c.levels, f)
		capacity *= ratio
	}
	return c, nil
}

// Levels returns the number of levels.
func (c *Cascade) Levels() int { return len(c.levels) }

// Level returns level i for inspection. The caller must not mutate it.
func (c *Cascade) Level(i int) *Filter { return c.levels[i] }

// Add inserts data into every level.
func (c *Cascade) Add(data []byte) {
	for _, f := range c.levels {
		f.Add(data)
	}
}

// Query reports whether every level accepts data.
func (c *Cascade) Query(data []byte) bool {
	for _, f := range c.levels {
		if !f.Query(data) {
			return false
		}
	}
	return true
}

// Clear zeros every level.
func (c *Cascade) Clear() {
	for _, f := range c.levels {
		f.Clear()
	}
}
