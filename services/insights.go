package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"airbnb-similarity/models"
	"airbnb-similarity/utils"
)

const topClusterCount = 5

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

// Generate summarises one clustering run. labels[i] belongs to listings[i].
func (s *InsightService) Generate(listings []*models.Listing, labels []int) *models.ClusterReport {
	report := &models.ClusterReport{
		SizeHistogram:     make(map[int]int),
		ClustersByBorough: make(map[string]int),
	}
	if len(listings) == 0 || len(listings) != len(labels) {
		if len(listings) != len(labels) {
			s.logger.Warn("[insights] %d listings but %d labels, report left empty", len(listings), len(labels))
		}
		return report
	}
	report.TotalListings = len(listings)

	byLabel := make(map[int][]*models.Listing)
	var order []int
	for i, l := range listings {
		label := labels[i]
		if label == NoiseLabel {
			report.NoiseListings++
			continue
		}
		if _, ok := byLabel[label]; !ok {
			order = append(order, label)
		}
		byLabel[label] = append(byLabel[label], l)
		report.ClusteredListings++
	}
	report.Clusters = len(order)

	summaries := make([]*models.ClusterSummary, 0, len(order))
	for _, label := range order {
		members := byLabel[label]
		sum := summarise(label, members)
		summaries = append(summaries, sum)
		report.SizeHistogram[sum.Size]++

		boroughs := make(map[string]struct{})
		for _, l := range members {
			if l.NeighbourhoodGroup != "" {
				boroughs[l.NeighbourhoodGroup] = struct{}{}
			}
		}
		for b := range boroughs {
			report.ClustersByBorough[b]++
		}
	}

	// Largest first; label order breaks ties
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Size > summaries[j].Size
	})
	if len(summaries) > 0 {
		report.LargestCluster = summaries[0]
	}
	if len(summaries) > topClusterCount {
		report.TopClusters = summaries[:topClusterCount]
	} else {
		report.TopClusters = summaries
	}

	return report
}

func summarise(label int, members []*models.Listing) *models.ClusterSummary {
	sum := &models.ClusterSummary{Label: label, Size: len(members)}

	var total float64
	var priced int
	seen := make(map[string]bool)
	for _, l := range members {
		if l.Price > 0 {
			total += l.Price
			priced++
		}
		if l.Neighbourhood != "" && !seen[l.Neighbourhood] {
			seen[l.Neighbourhood] = true
			sum.Neighbourhoods = append(sum.Neighbourhoods, l.Neighbourhood)
		}
	}
	if priced > 0 {
		sum.AveragePrice = round2(total / float64(priced))
	}
	sort.Strings(sum.Neighbourhoods)
	return sum
}

func (s *InsightService) Print(r *models.ClusterReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 SIMILAR LISTINGS REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.RunID != "" {
		fmt.Fprintf(w, "  Run                : %s\n", r.RunID)
	}
	fmt.Fprintf(w, "  Mode               : \033[1m%s\033[0m (%d dims)\n", r.Mode, r.Dimensions)
	fmt.Fprintf(w, "  Listings clustered : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Clusters found     : \033[1m%d\033[0m\n", r.Clusters)
	fmt.Fprintf(w, "  In a cluster       : \033[1;32m%d\033[0m\n", r.ClusteredListings)
	fmt.Fprintf(w, "  Noise (no match)   : \033[1;31m%d\033[0m\n", r.NoiseListings)
	fmt.Fprintln(w)

	// Largest clusters
	fmt.Fprintf(w, "\033[1;33m  Top %d Largest Clusters\033[0m\n", topClusterCount)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopClusters) == 0 {
		fmt.Fprintf(w, "  No clusters found\n")
	} else {
		for i, c := range r.TopClusters {
			hoods := truncate(strings.Join(c.Neighbourhoods, ", "), 30)
			fmt.Fprintf(w, "  \033[1m%d.\033[0m cluster %-5d %3d listings  \033[1;32m$%8.2f\033[0m  %s\n",
				i+1, c.Label, c.Size, c.AveragePrice, hoods)
		}
	}
	fmt.Fprintln(w)

	// Size distribution
	fmt.Fprintf(w, "\033[1;33m  Cluster Size Distribution\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.SizeHistogram) == 0 {
		fmt.Fprintf(w, "  No clusters\n")
	} else {
		sizes := make([]int, 0, len(r.SizeHistogram))
		for size := range r.SizeHistogram {
			sizes = append(sizes, size)
		}
		sort.Ints(sizes)
		for _, size := range sizes {
			count := r.SizeHistogram[size]
			bar := strings.Repeat("█", min(count, 40))
			fmt.Fprintf(w, "  size %-4d %s (%d)\n", size, bar, count)
		}
	}
	fmt.Fprintln(w)

	// Clusters by borough
	fmt.Fprintf(w, "\033[1;33m  Clusters by Borough\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ClustersByBorough) == 0 {
		fmt.Fprintf(w, "  No location data\n")
	} else {
		type boroughCount struct {
			name  string
			count int
		}
		var rows []boroughCount
		for name, cnt := range r.ClustersByBorough {
			rows = append(rows, boroughCount{name, cnt})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].count != rows[j].count {
				return rows[i].count > rows[j].count
			}
			return rows[i].name < rows[j].name
		})
		for _, bc := range rows {
			bar := strings.Repeat("█", min(bc.count, 40))
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(bc.name, 28), bar, bc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// truncate shortens s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
