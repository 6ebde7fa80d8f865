package model

// TimeVarying holds a system quantity that is either time-invariant (a
// single stored slice reused at every t) or time-varying (one slice per
// observation). Indexing follows the `t*tv` convention: tv is 0 for a
// static array and 1 for a varying one, so At never branches on length.
type TimeVarying[T any] struct {
	vals []T
	tv   int
}

// NewStatic returns a TimeVarying holding a single, time-invariant value.
func NewStatic[T any](v T) TimeVarying[T] {
	return TimeVarying[T]{vals: []T{v}, tv: 0}
}

// NewVarying returns a TimeVarying holding one value per time step. It
// panics if vals is empty.
func NewVarying[T any](vals []T) TimeVarying[T] {
	if len(vals) == 0 {
		panic("model: NewVarying requires at least one value")
	}
	return TimeVarying[T]{vals: vals, tv: 1}
}

// At returns the value in effect at time t.
func (tv TimeVarying[T]) At(t int) T {
	return tv.vals[t*tv.tv]
}

// Len returns the number of distinct stored values: 1 when static, or the
// full series length when time-varying.
func (tv TimeVarying[T]) Len() int {
	return len(tv.vals)
}

// IsVarying reports whether the quantity has one value per time step.
func (tv TimeVarying[T]) IsVarying() bool {
	return tv.tv == 1
}
