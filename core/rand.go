package core

// Rand is the random source used for walk durations, idle delays and backoff.
type Rand interface {
	Uint32() uint32
}

// XorShift32 is a small allocation-free generator that is safe to use from
// a single interrupt handler. It is not safe for concurrent use.
type XorShift32 struct {
	state uint32
}

// NewXorShift32 seeds the generator. A zero seed is replaced, since the
// all-zero state never leaves zero.
func NewXorShift32(seed uint32) *XorShift32 {
	if seed == 0 {
		seed = 0x9E3779B9
	}
	return &XorShift32{state: seed}
}

func (x *XorShift32) Uint32() uint32 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

// RandN returns a value in [0, n). n == 0 yields 0.
func RandN(r Rand, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return r.Uint32() % n
}
