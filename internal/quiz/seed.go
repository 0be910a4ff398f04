package quiz

import "math/rand/v2"

// Seeder hands out independent, reproducible random sources. The i-th call to
// Next is keyed by (base, i), so every draw depends only on the base seed and
// the order of calls.
type Seeder struct {
	base int64
	next uint64
}

// NewSeeder returns a seeder rooted at *seed, or at a random base when seed is nil.
func NewSeeder(seed *int64) *Seeder {
	var base int64
	if seed != nil {
		base = *seed
	} else {
		base = rand.Int64()
	}
	return &Seeder{base: base}
}

// Base returns the root seed, useful for logging an unseeded run.
func (s *Seeder) Base() int64 {
	return s.base
}

// Next returns a fresh source for one draw.
func (s *Seeder) Next() *rand.Rand {
	i := s.next
	s.next++
	return rand.New(rand.NewPCG(splitmix(uint64(s.base)), splitmix(i^0x5851f42d4c957f2d)))
}

// splitmix scatters nearby inputs so base+1 and draw+1 never share a stream.
func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// VersionSeed derives the seed for a 1-based exam version.
// Returns nil when no base seed was supplied.
func VersionSeed(base *int64, version int) *int64 {
	if base == nil {
		return nil
	}
	v := *base + int64(version)
	return &v
}
