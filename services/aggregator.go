package services

import (
	"fmt"
	"strconv"
	"strings"
)

// Aggregate returns, for each listing, the comma-joined ids of every listing
// sharing its cluster label, itself included, in input order. A noise listing
// gets only its own id.
func Aggregate(ids []int64, labels []int) ([]string, error) {
	if len(ids) != len(labels) {
		return nil, fmt.Errorf("aggregate: %d ids but %d labels", len(ids), len(labels))
	}

	members := make(map[int][]string)
	for i, l := range labels {
		if l == NoiseLabel {
			continue
		}
		members[l] = append(members[l], strconv.FormatInt(ids[i], 10))
	}
	joined := make(map[int]string, len(members))
	for l, m := range members {
		joined[l] = strings.Join(m, ",")
	}

	out := make([]string, len(ids))
	for i, l := range labels {
		if l == NoiseLabel {
			out[i] = strconv.FormatInt(ids[i], 10)
			continue
		}
		out[i] = joined[l]
	}
	return out, nil
}
