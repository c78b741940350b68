package engine

import "math"

// Stream is a sequential random source over one (seeds, nonce) pair.
// Every call consumes floats in order, so replaying the same calls against
// a new Stream with the same seeds reproduces the same choices.
type Stream struct {
	gen      *byteGenerator
	consumed uint64
}

// NewStream starts a stream at cursor 0.
func NewStream(seeds Seeds, nonce uint64) *Stream {
	return &Stream{gen: newByteGenerator(seeds, nonce, 0)}
}

// Consumed returns the number of floats drawn so far.
func (s *Stream) Consumed() uint64 { return s.consumed }

func (s *Stream) float() float64 {
	s.consumed++
	return s.gen.nextFloat()
}

// Pick returns an index in [0, n) chosen uniformly. n must be positive.
func (s *Stream) Pick(n int) int {
	if n <= 0 {
		panic("engine: Pick on empty range")
	}
	return scaleIndex(s.float(), n)
}

// Sample returns min(k, n) distinct indices from [0, n) in draw order,
// using Fisher-Yates selection with stable removal from the pool.
func (s *Stream) Sample(k, n int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return []int{}
	}

	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}

	out := make([]int, k)
	for i := 0; i < k; i++ {
		idx := scaleIndex(s.float(), len(pool))
		out[i] = pool[idx]
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return out
}

func scaleIndex(f float64, n int) int {
	idx := int(math.Floor(f * float64(n)))
	if idx >= n {
		idx = n - 1
	}
	return idx
}
