package cmp

func SliceEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for nth, va := range a {
		if va != b[nth] {
			return false
		}
	}
	return true
}

func SliceEqWith[T any, U any](a []T, b []U, pred func(a T, b U) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for nth := range a {
		if !pred(a[nth], b[nth]) {
			return false
		}
	}
	return true
}

// check a and b have same elements, ignoring ordering.
//
// Should either slice hold duplicated elements, multiplicity matters;
// {x, x, y} and {x, y, y} are not "content equal".
func SliceContentEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}

	rest := make(map[T]int, len(a))
	for _, va := range a {
		rest[va] += 1
	}
	for _, vb := range b {
		rest[vb] -= 1
		if rest[vb] < 0 {
			return false
		}
	}
	return true
}

func SliceContentEqWith[T any, U any](a []T, b []U, pred func(a T, b U) bool) bool {
	if len(a) != len(b) {
		return false
	}

	used := make([]bool, len(b))
A:
	for _, va := range a {
		for nth, vb := range b {
			if used[nth] || !pred(va, vb) {
				continue
			}
			used[nth] = true
			continue A
		}
		return false
	}
	return true
}
