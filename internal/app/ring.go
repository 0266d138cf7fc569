package app

// Ring is a circular buffer of the most recent values.
type Ring struct {
	buf   []float64
	pos   int
	count int
}

// NewRing creates a buffer with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		buf: make([]float64, capacity),
	}
}

// Push adds a value, overwriting the oldest once full.
func (r *Ring) Push(val float64) {
	r.buf[r.pos] = val
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Values returns all stored values in chronological order.
func (r *Ring) Values() []float64 {
	if r.count == 0 {
		return nil
	}
	result := make([]float64, r.count)
	if r.count < len(r.buf) {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.pos:])
		copy(result[n:], r.buf[:r.pos])
	}
	return result
}

// Reset empties the buffer.
func (r *Ring) Reset() {
	r.pos, r.count = 0, 0
}
