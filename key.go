package bojax

import (
	"fmt"
	"math/rand/v2"
)

// Key is an immutable, splittable random key. Every stochastic operation in
// this package takes one Key and derives the randomness it needs from it, so
// identical keys and inputs always produce identical outputs.
//
// A Key is never advanced in place. A caller that needs k independent draws
// derives k child keys with Split and hands one to each consumer.
//
// Usage example:
//
//	key := NewKey(42)
//	sampleKey, initKey := key.Split2()
//	rng := sampleKey.Rand()
type Key struct {
	hi, lo uint64
}

// NewKey returns the key for the given seed.
func NewKey(seed uint64) Key {
	hi := splitmix64(seed)

	return Key{hi: hi, lo: splitmix64(hi ^ seed)}
}

// Split derives n child keys. Child i depends only on k and i.
func (k Key) Split(n int) []Key {
	keys := make([]Key, n)
	for i := range keys {
		c := uint64(i) + 1
		hi := splitmix64(k.hi ^ splitmix64(k.lo+c))
		lo := splitmix64(k.lo ^ splitmix64(hi+c*0xd1b54a32d192ed03))
		keys[i] = Key{hi: hi, lo: lo}
	}

	return keys
}

// Split2 derives two child keys. It is shorthand for Split(2).
func (k Key) Split2() (Key, Key) {
	keys := k.Split(2)

	return keys[0], keys[1]
}

// Source returns a fresh PCG source seeded from k. Each call returns a new
// source starting at the same state.
func (k Key) Source() rand.Source {
	return rand.NewPCG(k.hi, k.lo)
}

// Rand returns a fresh generator seeded from k.
func (k Key) Rand() *rand.Rand {
	return rand.New(k.Source())
}

// String returns the key as 32 hex digits.
func (k Key) String() string {
	return fmt.Sprintf("%016x%016x", k.hi, k.lo)
}

// splitmix64 is the SplitMix64 output function. It is a bijection on uint64
// with good avalanche, which makes it suitable for deriving child seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb

	return x ^ (x >> 31)
}
