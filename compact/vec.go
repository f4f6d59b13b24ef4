package compact

import "unsafe"

// Vec is a Compact ordered sequence: indexable, supports
// push/pop/insert/remove/iter. Up to inlineCapacity elements live
// in the inline array; growing past that spills to overflow, which is
// exactly the container-level "inline in the tail" vs. "out-of-line,
// owned" distinction every container records in its shallow part.
type Vec[T any] struct {
	inline    [inlineCapacity]T
	inlineLen int
	overflow  []T
	outOfLine bool
}

// NewVec returns an empty, inline Vec.
func NewVec[T any]() *Vec[T] {
	return &Vec[T]{}
}

// VecOf builds a Vec from elements, spilling out-of-line immediately if
// there are more than inlineCapacity of them.
func VecOf[T any](elements ...T) *Vec[T] {
	v := NewVec[T]()
	for _, e := range elements {
		v.Push(e)
	}
	return v
}

// Len returns the number of elements.
func (v *Vec[T]) Len() int {
	if v.outOfLine {
		return len(v.overflow)
	}
	return v.inlineLen
}

// At returns the element at index i.
func (v *Vec[T]) At(i int) T {
	if v.outOfLine {
		return v.overflow[i]
	}
	return v.inline[i]
}

// Set overwrites the element at index i.
func (v *Vec[T]) Set(i int, val T) {
	if v.outOfLine {
		v.overflow[i] = val
		return
	}
	v.inline[i] = val
}

// Push appends an element, spilling to overflow if inline capacity is
// exceeded. Spilling is the moment this container "transitions to
// out-of-line"; the owning actor's IsStillCompact will report false until
// the Swarm resizes it.
func (v *Vec[T]) Push(val T) {
	if v.outOfLine {
		v.overflow = append(v.overflow, val)
		return
	}
	if v.inlineLen < inlineCapacity {
		v.inline[v.inlineLen] = val
		v.inlineLen++
		return
	}
	v.spill()
	v.overflow = append(v.overflow, val)
}

func (v *Vec[T]) spill() {
	v.overflow = make([]T, v.inlineLen, v.inlineLen*2)
	copy(v.overflow, v.inline[:v.inlineLen])
	v.outOfLine = true
	v.inlineLen = 0
}

// Pop removes and returns the last element. ok is false if v is empty.
func (v *Vec[T]) Pop() (val T, ok bool) {
	n := v.Len()
	if n == 0 {
		return val, false
	}
	val = v.At(n - 1)
	if v.outOfLine {
		v.overflow = v.overflow[:n-1]
	} else {
		v.inlineLen--
	}
	return val, true
}

// Insert places val at index i, shifting later elements right.
func (v *Vec[T]) Insert(i int, val T) {
	n := v.Len()
	if i < 0 || i > n {
		panic("compact.Vec.Insert: index out of range")
	}
	if !v.outOfLine && n+1 > inlineCapacity {
		v.spill()
	}
	if v.outOfLine {
		v.overflow = append(v.overflow, val)
		copy(v.overflow[i+1:], v.overflow[i:len(v.overflow)-1])
		v.overflow[i] = val
		return
	}
	copy(v.inline[i+1:v.inlineLen+1], v.inline[i:v.inlineLen])
	v.inline[i] = val
	v.inlineLen++
}

// Remove deletes the element at index i, shifting later elements left.
func (v *Vec[T]) Remove(i int) T {
	n := v.Len()
	if i < 0 || i >= n {
		panic("compact.Vec.Remove: index out of range")
	}
	removed := v.At(i)
	if v.outOfLine {
		copy(v.overflow[i:], v.overflow[i+1:])
		v.overflow = v.overflow[:n-1]
		return removed
	}
	copy(v.inline[i:v.inlineLen-1], v.inline[i+1:v.inlineLen])
	v.inlineLen--
	return removed
}

// Iter calls fn for every element in order. Iteration stops early if fn
// returns false.
func (v *Vec[T]) Iter(fn func(int, T) bool) {
	n := v.Len()
	for i := 0; i < n; i++ {
		if !fn(i, v.At(i)) {
			return
		}
	}
}

// DynamicSizeBytes implements Value.
func (v *Vec[T]) DynamicSizeBytes() int {
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	return v.Len() * elemSize
}

// IsStillCompact implements Value.
func (v *Vec[T]) IsStillCompact() bool { return !v.outOfLine }

// CompactFrom implements Value: copies src's elements into a fresh Vec,
// inline again if they fit.
func (v *Vec[T]) CompactFrom(src *Vec[T]) *Vec[T] {
	out := NewVec[T]()
	src.Iter(func(_ int, val T) bool {
		out.Push(val)
		return true
	})
	return out
}

// Decompact implements Value: returns a freestanding out-of-line copy.
func (v *Vec[T]) Decompact() *Vec[T] {
	out := &Vec[T]{outOfLine: true}
	out.overflow = make([]T, v.Len())
	v.Iter(func(i int, val T) bool {
		out.overflow[i] = val
		return true
	})
	return out
}
