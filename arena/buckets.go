package arena

import "math/bits"

// minRank is the smallest supported bucket rank: an actor of any size,
// even zero, is clamped up to this rank.
const minRank = 4 // 2^4 = 16 bytes

// RankFor computes ceil(log2(totalSizeBytes)), clamped to minRank.
func RankFor(totalSizeBytes int) int {
	if totalSizeBytes <= 0 {
		return minRank
	}
	rank := bits.Len(uint(totalSizeBytes - 1))
	if rank < minRank {
		return minRank
	}
	return rank
}

// SizedBuckets is a vector of ChunkedArenas indexed by bucket rank.
type SizedBuckets[A any] struct {
	buckets map[int]*ChunkedArena[A]
}

// NewSizedBuckets returns an empty bucket set.
func NewSizedBuckets[A any]() *SizedBuckets[A] {
	return &SizedBuckets[A]{buckets: make(map[int]*ChunkedArena[A])}
}

func (b *SizedBuckets[A]) arenaFor(rank int) *ChunkedArena[A] {
	ar, ok := b.buckets[rank]
	if !ok {
		ar = NewChunkedArena[A]()
		b.buckets[rank] = ar
	}
	return ar
}

// Push inserts val into the bucket for rank, returning the bucket's rank
// and the slot within it.
func (b *SizedBuckets[A]) Push(rank int, val A) (bucketRank, slot int) {
	ar := b.arenaFor(rank)
	return rank, ar.Push(val)
}

// At returns a pointer to the element at (rank, slot).
func (b *SizedBuckets[A]) At(rank, slot int) *A {
	return b.arenaFor(rank).At(slot)
}

// SwapRemove removes the element at (rank, slot), as ChunkedArena.SwapRemove.
func (b *SizedBuckets[A]) SwapRemove(rank, slot int) (removed A, swappedFromSlot int, hadSwap bool) {
	return b.arenaFor(rank).SwapRemove(slot)
}

// Len returns the number of live elements in the bucket for rank.
func (b *SizedBuckets[A]) Len(rank int) int {
	ar, ok := b.buckets[rank]
	if !ok {
		return 0
	}
	return ar.Len()
}

// Ranks returns every rank that currently has a backing arena, ascending.
func (b *SizedBuckets[A]) Ranks() []int {
	ranks := make([]int, 0, len(b.buckets))
	for r := range b.buckets {
		ranks = append(ranks, r)
	}
	// Small, bounded set (ranks are bit-lengths of byte sizes); a simple
	// insertion sort keeps this dependency-free and deterministic.
	for i := 1; i < len(ranks); i++ {
		for j := i; j > 0 && ranks[j-1] > ranks[j]; j-- {
			ranks[j-1], ranks[j] = ranks[j], ranks[j-1]
		}
	}
	return ranks
}
