package util

import (
	"sort"

	"golang.org/x/exp/constraints"
)

func sortSlice[T constraints.Ordered](s []T) {
	sort.Slice(s, func(i, j int) bool {
		return s[i] < s[j]
	})
}

// SortedDistinct returns the distinct values of the input in ascending order.
func SortedDistinct[T constraints.Ordered](input []T) []T {
	seen := map[T]bool{}
	result := make([]T, 0, len(input))
	for _, v := range input {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	sortSlice(result)
	return result
}
