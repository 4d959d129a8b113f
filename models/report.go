package models

// ClusterReport holds the computed statistics of one pipeline run.
type ClusterReport struct {
	RunID             string
	Mode              string
	Dimensions        int
	TotalListings     int
	Clusters          int
	ClusteredListings int
	NoiseListings     int
	LargestCluster    *ClusterSummary
	SizeHistogram     map[int]int // cluster size -> number of clusters of that size
	TopClusters       []*ClusterSummary
	ClustersByBorough map[string]int
}

// ClusterSummary describes one cluster in the report.
type ClusterSummary struct {
	Label          int
	Size           int
	AveragePrice   float64
	Neighbourhoods []string
}
