// Package entropy provides the seeded pseudo-random source the simulation
// draws from. Every stochastic decision inside a tick goes through a Source
// owned by the world, so two worlds with the same seed make the same choices.
// The generator state is a single exported word, which lets the state digest
// and snapshots capture it.
package entropy

// Source is a SplitMix64 generator. The zero value is valid but every zero
// Source produces the same stream; use New with a seed.
type Source struct {
	state uint64
}

// New creates a source from a seed.
func New(seed int64) *Source {
	return &Source{state: uint64(seed)}
}

// Restore creates a source positioned at a previously captured state.
func Restore(state uint64) *Source {
	return &Source{state: state}
}

// State returns the current generator state.
func (s *Source) State() uint64 {
	return s.state
}

// Uint64 returns the next pseudo-random 64-bit value.
func (s *Source) Uint64() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Intn returns a value in [0, n). Returns 0 when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Uint64() % uint64(n))
}

// Range returns a value in [lo, hi].
func (s *Source) Range(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.Intn(hi-lo+1)
}

// Float returns a value in [0, 1) built from the top 53 bits.
func (s *Source) Float() float64 {
	return float64(s.Uint64()>>11) / float64(1<<53)
}

// Chance returns true with probability p.
func (s *Source) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.Float() < p
}

// Split derives an independent source, advancing this one by one draw.
func (s *Source) Split() *Source {
	return &Source{state: s.Uint64()}
}
