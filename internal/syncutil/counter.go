package syncutil

// Counter is a linearizable integer counter. Every operation observes a value
// that is a prior state plus zero or more applied deltas; there are no torn
// reads or lost updates.
type Counter struct {
	v *Guard[int64]
}

// NewCounter returns a counter starting at initial.
func NewCounter(initial int64) *Counter {
	return &Counter{v: NewGuard(initial)}
}

// Increment adds delta and returns the new value.
func (c *Counter) Increment(delta int64) int64 {
	var out int64
	c.v.Do(func(v *int64) {
		*v += delta
		out = *v
	})
	return out
}

// Decrement subtracts delta and returns the new value.
func (c *Counter) Decrement(delta int64) int64 {
	return c.Increment(-delta)
}

// Get returns the current value.
func (c *Counter) Get() int64 {
	return c.v.Get()
}

// Set replaces the current value.
func (c *Counter) Set(v int64) {
	c.v.Set(v)
}

// Reset sets the counter back to zero.
func (c *Counter) Reset() {
	c.v.Set(0)
}
