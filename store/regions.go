package store

import "math"

// Regions decides how the slots of a table are grouped under locks.
//
// Buckets returns the number of regions for a table of the given size and
// BucketOf the region guarding a slot. BucketOf must return a value in
// [0, Buckets(size)) for every offset in [0, size).
type Regions interface {
	Buckets(size int) int
	BucketOf(offset, size int) int
}

// ConstantRegions splits the table into a fixed number of contiguous regions.
type ConstantRegions int

func (c ConstantRegions) Buckets(size int) int {
	n := int(c)
	if n > size {
		n = size
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (c ConstantRegions) BucketOf(offset, size int) int {
	return int(int64(offset) * int64(c.Buckets(size)) / int64(size))
}

// LinearRegions puts a fixed number of slots in each region.
type LinearRegions int

func (l LinearRegions) slots() int {
	if l < 1 {
		return 1
	}
	return int(l)
}

func (l LinearRegions) Buckets(size int) int {
	return (size + l.slots() - 1) / l.slots()
}

func (l LinearRegions) BucketOf(offset, size int) int { return offset / l.slots() }

// SqrtRegions uses about sqrt(size) regions of about sqrt(size) slots.
type SqrtRegions struct{}

func sqrtSlots(size int) int {
	s := int(math.Sqrt(float64(size)))
	if s < 1 {
		return 1
	}
	return s
}

func (SqrtRegions) Buckets(size int) int {
	s := sqrtSlots(size)
	return (size + s - 1) / s
}

func (SqrtRegions) BucketOf(offset, size int) int { return offset / sqrtSlots(size) }
