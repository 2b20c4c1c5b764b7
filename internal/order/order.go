// Package order computes fractional sort keys for sibling sequencing.
package order

import "slices"

// Keyed is anything that can be sequenced among its siblings.
type Keyed interface {
	SortOrder() float64
	SortID() string
}

// Midpoint returns an order key strictly between the siblings at index-1
// and index. siblings must already be sorted ascending and must not contain
// the item being placed. A missing predecessor counts as 0 and a missing
// successor as predecessor+2, so inserting into an empty list yields 1 and
// appending yields predecessor+1.
func Midpoint[T Keyed](siblings []T, index int) float64 {
	index = max(0, min(index, len(siblings)))

	if index == 0 && len(siblings) > 0 && siblings[0].SortOrder() <= 0 {
		// Head is at or below the implicit 0 predecessor.
		return siblings[0].SortOrder() - 1
	}

	var prev float64
	if index > 0 {
		prev = siblings[index-1].SortOrder()
	}
	next := prev + 2
	if index < len(siblings) {
		next = siblings[index].SortOrder()
	}
	return (prev + next) / 2
}

// Compare orders two siblings by (order, id).
func Compare[T Keyed](a, b T) int {
	ao, bo := a.SortOrder(), b.SortOrder()
	switch {
	case ao < bo:
		return -1
	case ao > bo:
		return 1
	}
	ai, bi := a.SortID(), b.SortID()
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	}
	return 0
}

// Sort sorts siblings in place by (order, id).
func Sort[T Keyed](siblings []T) {
	slices.SortFunc(siblings, Compare[T])
}

// IndexOf returns the position of id in siblings, or -1.
func IndexOf[T Keyed](siblings []T, id string) int {
	for i, s := range siblings {
		if s.SortID() == id {
			return i
		}
	}
	return -1
}

// Without returns a copy of siblings with id removed, plus the index id
// occupied (-1 if absent).
func Without[T Keyed](siblings []T, id string) ([]T, int) {
	out := make([]T, 0, len(siblings))
	at := -1
	for i, s := range siblings {
		if s.SortID() == id {
			at = i
			continue
		}
		out = append(out, s)
	}
	return out, at
}
