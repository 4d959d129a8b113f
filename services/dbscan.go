package services

const unvisited = -2

// dbscan labels points by density connectivity: a point with at least
// minSamples neighbours within eps (itself included) is a core point, and a
// cluster is everything reachable through chains of core points. Points
// reachable from no core point get NoiseLabel.
func dbscan(vectors [][]float64, eps float64, minSamples int, dist metric) []int {
	count := len(vectors)
	labels := make([]int, count)
	for i := range labels {
		labels[i] = unvisited
	}

	neighbours := func(p int) []int {
		var out []int
		for q := 0; q < count; q++ {
			if q == p || dist(p, q) <= eps {
				out = append(out, q)
			}
		}
		return out
	}

	cluster := 0
	for p := 0; p < count; p++ {
		if labels[p] != unvisited {
			continue
		}
		seeds := neighbours(p)
		if len(seeds) < minSamples {
			labels[p] = NoiseLabel
			continue
		}

		labels[p] = cluster
		for k := 0; k < len(seeds); k++ {
			q := seeds[k]
			if labels[q] == NoiseLabel {
				// border point: reachable, but not expanded from
				labels[q] = cluster
				continue
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = cluster
			if more := neighbours(q); len(more) >= minSamples {
				seeds = append(seeds, more...)
			}
		}
		cluster++
	}
	return labels
}
