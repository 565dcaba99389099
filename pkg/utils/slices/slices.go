package slices

import "sort"

// map each element in sli.
//
// args:
//   - sli : slice of `T`s
//   - mapper : mapping function from T to R
//
// return:
//
//	slice of `R`s.
//	each element indexed `N` is given with `mapper(sli[N])` .
func Map[T any, R any](sli []T, mapper func(v T) R) []R {
	ret := make([]R, len(sli))
	for nth, v := range sli {
		ret[nth] = mapper(v)
	}
	return ret
}

// pick elements satisfying predicator.
func Filter[T any](sli []T, predicator func(v T) bool) []T {
	ret := []T{}
	for _, v := range sli {
		if predicator(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

// return a sorted copy of sli. sli itself is kept unchanged.
func Sorted[T any](sli []T, less func(a, b T) bool) []T {
	ret := make([]T, len(sli))
	copy(ret, sli)
	sort.SliceStable(ret, func(i, j int) bool { return less(ret[i], ret[j]) })
	return ret
}
