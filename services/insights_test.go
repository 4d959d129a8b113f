package services

import (
	"bytes"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airbnb-similarity/models"
)

func sampleListings() []*models.Listing {
	return []*models.Listing{
		{ID: 1, Price: 200, NeighbourhoodGroup: "Manhattan", Neighbourhood: "Chelsea"},
		{ID: 2, Price: 100, NeighbourhoodGroup: "Manhattan", Neighbourhood: "SoHo"},
		{ID: 3, Price: 80, NeighbourhoodGroup: "Brooklyn", Neighbourhood: "Bushwick"},
		{ID: 4, Price: 0, NeighbourhoodGroup: "Brooklyn", Neighbourhood: "Bushwick"},
		{ID: 5, Price: 300, NeighbourhoodGroup: "Queens", Neighbourhood: "Astoria"},
		{ID: 6, Price: 60, NeighbourhoodGroup: "Manhattan", Neighbourhood: "Harlem"},
	}
}

func sampleLabels() []int {
	return []int{0, 0, 1, 1, NoiseLabel, 0}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleListings(), sampleLabels())

	assert.Equal(t, 6, r.TotalListings)
	assert.Equal(t, 2, r.Clusters)
	assert.Equal(t, 5, r.ClusteredListings)
	assert.Equal(t, 1, r.NoiseListings)
}

func TestInsightLargestCluster(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleListings(), sampleLabels())

	require.NotNil(t, r.LargestCluster)
	assert.Equal(t, 0, r.LargestCluster.Label)
	assert.Equal(t, 3, r.LargestCluster.Size)
	assert.Equal(t, 120.0, r.LargestCluster.AveragePrice)
	assert.Equal(t, []string{"Chelsea", "Harlem", "SoHo"}, r.LargestCluster.Neighbourhoods)
}

func TestInsightIgnoresMissingPrices(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleListings(), sampleLabels())

	require.Len(t, r.TopClusters, 2)
	assert.Equal(t, 80.0, r.TopClusters[1].AveragePrice)
	assert.Equal(t, []string{"Bushwick"}, r.TopClusters[1].Neighbourhoods)
}

func TestInsightHistogramAndBoroughs(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleListings(), sampleLabels())

	assert.Equal(t, map[int]int{3: 1, 2: 1}, r.SizeHistogram)
	assert.Equal(t, map[string]int{"Manhattan": 1, "Brooklyn": 1}, r.ClustersByBorough)
}

func TestInsightTopClustersCapped(t *testing.T) {
	var listings []*models.Listing
	var labels []int
	for i := 0; i < 8; i++ {
		listings = append(listings, &models.Listing{ID: int64(i)})
		labels = append(labels, i)
	}
	r := NewInsightService(newTestLogger()).Generate(listings, labels)
	assert.Equal(t, 8, r.Clusters)
	assert.Len(t, r.TopClusters, topClusterCount)
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil, nil)

	assert.Equal(t, 0, r.TotalListings)
	assert.Nil(t, r.LargestCluster)
	assert.Empty(t, r.TopClusters)
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	var buf bytes.Buffer
	svc.out = &buf

	r := svc.Generate(sampleListings(), sampleLabels())
	r.Mode = "dbscan"
	svc.Print(r)

	out := buf.String()
	assert.Contains(t, out, "SIMILAR LISTINGS REPORT")
	assert.Contains(t, out, "dbscan")
	assert.Contains(t, out, "Manhattan")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	// Multibyte names are cut on rune boundaries.
	assert.Equal(t, "Café Ñuñoa", truncate("Café Ñuñoa", 10))
	got := truncate("Bedford–Stuyvesant Café", 12)
	assert.Equal(t, "Bedford–S...", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 12, utf8.RuneCountInString(got))
}
