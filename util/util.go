package util

import (
	"math"
	"strings"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

func GetKeys[A constraints.Ordered, B any](m map[A]B) []A {
	keys := make([]A, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func SortedKeys[A constraints.Ordered, B any](m map[A]B) []A {
	keys := GetKeys(m)
	slices.Sort(keys)
	return keys
}

func Sum[A constraints.Integer | constraints.Float](nums []A) A {
	var total A
	for _, v := range nums {
		total += v
	}
	return total
}

// Mean returns 0 for an empty slice.
func Mean[A constraints.Integer | constraints.Float](nums []A) float64 {
	if len(nums) == 0 {
		return 0
	}
	return float64(Sum(nums)) / float64(len(nums))
}

func Round(v float64) int {
	return int(math.Round(v))
}

// ContainsFold reports whether sub is within s, ignoring case.
func ContainsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
