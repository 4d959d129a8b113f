package services

import (
	"bytes"
	"context"
	"errors"
	"hash/fnv"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airbnb-similarity/config"
	"airbnb-similarity/embedding"
	"airbnb-similarity/models"
	"airbnb-similarity/storage"
	"airbnb-similarity/utils"
)

const seededDim = 64

// seededEmbedder maps each distinct text to a fixed pseudo-random vector, so
// identical narratives embed identically and different ones land far apart.
type seededEmbedder struct {
	fail bool
}

func (s *seededEmbedder) Name() string   { return "seeded" }
func (s *seededEmbedder) Dimension() int { return seededDim }

func (s *seededEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	if s.fail {
		return nil, errors.New("backend unavailable")
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		h := fnv.New64a()
		_, _ = h.Write([]byte(t))
		rng := rand.New(rand.NewSource(int64(h.Sum64())))
		v := make([]float64, seededDim)
		for j := range v {
			v[j] = rng.NormFloat64()
		}
		out[i] = v
	}
	return out, nil
}

// fiveListings holds two near-identical listings (10, 11) and three that
// differ in every view, including their review score bands.
func fiveListings() *models.RawDataset {
	return dataset(
		rawRow("10", nil),
		rawRow("11", map[string]string{
			models.ColDescription: "A cozy apartment in the very heart of NYC.",
		}),
		rawRow("20", map[string]string{
			models.ColPropertyType:         "Private room in home",
			models.ColRoomType:             "Private room",
			models.ColBathroomsText:        "1 shared bath",
			models.ColBedrooms:             "1",
			models.ColBeds:                 "1",
			models.ColAccommodates:         "1",
			models.ColPrice:                "$65.00",
			models.ColNeighbourhoodGroup:   "Queens",
			models.ColNeighbourhood:        "Astoria",
			models.ColNeighborhoodOverview: "Working-class Queens area with Greek bakeries and late-night diners.",
			models.ColDescription:          "Small bedroom upstairs, shared kitchen, street parking only.",
			models.ColRating:               "3.1",
			models.ColCleanliness:          "3.0",
			models.ColCheckin:              "3.2",
			models.ColCommunication:        "2.9",
			models.ColLocation:             "3.3",
			models.ColValue:                "3.0",
		}),
		rawRow("21", map[string]string{
			models.ColPropertyType:         "Entire loft",
			models.ColBathroomsText:        "2 baths",
			models.ColBedrooms:             "3",
			models.ColBeds:                 "3",
			models.ColAccommodates:         "6",
			models.ColPrice:                "$320.00",
			models.ColNeighbourhoodGroup:   "Brooklyn",
			models.ColNeighbourhood:        "Williamsburg",
			models.ColNeighborhoodOverview: "Warehouse district by the waterfront, bars and galleries everywhere.",
			models.ColDescription:          "Industrial loft with exposed brick, twelve-foot ceilings and a rooftop deck.",
			models.ColRating:               "4.0",
			models.ColCleanliness:          "3.8",
			models.ColCheckin:              "4.1",
			models.ColCommunication:        "3.9",
			models.ColLocation:             "4.2",
			models.ColValue:                "3.6",
		}),
		rawRow("22", map[string]string{
			models.ColPropertyType:         "Entire townhouse",
			models.ColBathroomsText:        "3.5 baths",
			models.ColBedrooms:             "5",
			models.ColBeds:                 "6",
			models.ColAccommodates:         "10",
			models.ColPrice:                "$780.00",
			models.ColNeighbourhoodGroup:   "Brooklyn",
			models.ColNeighbourhood:        "Park Slope",
			models.ColNeighborhoodOverview: "Brownstone block two minutes from Prospect Park playgrounds.",
			models.ColDescription:          "Family townhouse with a private garden, piano room and nursery.",
			models.ColRating:               "4.95",
			models.ColCleanliness:          "5.0",
			models.ColCheckin:              "4.9",
			models.ColCommunication:        "5.0",
			models.ColLocation:             "4.95",
			models.ColValue:                "4.7",
		}),
	)
}

func seedStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	res, err := NewCleaner(newTestLogger()).Clean(fiveListings())
	require.NoError(t, err)
	require.Len(t, res.Listings, 5)
	require.NoError(t, store.UpsertAll(ctx, res.Listings))
	return store
}

const hashDim = 512

func dbscanPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Mode:                config.ModeDBSCAN,
		SimilarityThreshold: 0.93,
		MinSamples:          2,
		FusionWeights:       config.FusionWeights{Outline: 0.5, Overview: 0.3, HighLevel: 0.2},
	}
}

func newTestPipeline(t *testing.T, store storage.Store, e embedding.Embedder, cfg config.PipelineConfig) *Pipeline {
	t.Helper()
	gen := embedding.NewGenerator(e, embedding.GeneratorOptions{BatchSize: 2}, newTestLogger())
	p, err := NewPipeline(store, gen, cfg, newTestLogger())
	require.NoError(t, err)
	return p
}

func byID(listings []*models.Listing) map[int64]*models.Listing {
	out := make(map[int64]*models.Listing, len(listings))
	for _, l := range listings {
		out[l.ID] = l
	}
	return out
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	p := newTestPipeline(t, store, embedding.NewHashEmbedder(hashDim), dbscanPipelineConfig())

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, res.Report.Clusters)
	assert.Equal(t, 3, res.Report.NoiseListings)
	assert.Equal(t, hashDim, res.Report.Dimensions)

	stored, err := store.FetchAll(ctx)
	require.NoError(t, err)
	got := byID(stored)

	for _, id := range []int64{10, 11} {
		require.NotNil(t, got[id].Cluster)
		assert.Equal(t, 0, *got[id].Cluster)
		assert.Equal(t, "10,11", got[id].ListingsInCluster)
	}
	for _, id := range []int64{20, 21, 22} {
		require.NotNil(t, got[id].Cluster)
		assert.Equal(t, NoiseLabel, *got[id].Cluster)
		assert.Equal(t, []int64{id}, got[id].MemberIDs())
	}
	for _, l := range stored {
		assert.NotEmpty(t, l.DescriptionSummary)
		assert.NotEmpty(t, l.PropertyOutline)
		assert.NotEmpty(t, l.HighLevelOverview)
	}

	q := NewQueryService(store)
	members, err := q.GetListingsInCluster(ctx, 11)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, int64(10), members[0].ID)
	assert.Equal(t, int64(11), members[1].ID)
}

func TestPipelineRerunIsStable(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	p := newTestPipeline(t, store, embedding.NewHashEmbedder(hashDim), dbscanPipelineConfig())

	first, err := p.Run(ctx)
	require.NoError(t, err)
	second, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Labels, second.Labels)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestPipelineFailureLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	p := newTestPipeline(t, store, &seededEmbedder{fail: true}, dbscanPipelineConfig())

	_, err := p.Run(ctx)
	var encErr *embedding.EncodingError
	require.ErrorAs(t, err, &encErr)

	stored, err := store.FetchAll(ctx)
	require.NoError(t, err)
	for _, l := range stored {
		assert.Nil(t, l.Cluster)
		assert.Empty(t, l.ListingsInCluster)
		assert.Empty(t, l.DescriptionSummary)
	}
}

func TestPipelineEmptyStore(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	p := newTestPipeline(t, store, &seededEmbedder{}, dbscanPipelineConfig())
	_, err = p.Run(ctx)
	var ce *ClusteringError
	assert.ErrorAs(t, err, &ce)
}

func TestPipelineHDBSCANWithReduction(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	cfg := dbscanPipelineConfig()
	cfg.Mode = config.ModeHDBSCAN
	cfg.MinClusterSize = 2
	cfg.MinSamples = 1
	cfg.UseReduction = true
	cfg.VarianceRetained = 0.95
	p := newTestPipeline(t, store, embedding.NewHashEmbedder(128), cfg)

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Report.Dimensions, 5)

	got := byID(res.Listings)
	assert.Equal(t, *got[10].Cluster, *got[11].Cluster)
	assert.Equal(t, got[10].ListingsInCluster, got[11].ListingsInCluster)
	assert.Contains(t, got[10].MemberIDs(), int64(11))
}

func TestNewPipelineRejectsZeroWeights(t *testing.T) {
	cfg := dbscanPipelineConfig()
	cfg.FusionWeights = config.FusionWeights{}
	gen := embedding.NewGenerator(&seededEmbedder{}, embedding.GeneratorOptions{}, newTestLogger())

	_, err := NewPipeline(nil, gen, cfg, newTestLogger())
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestNewPipelineWarnsWhenReductionIgnored(t *testing.T) {
	cfg := dbscanPipelineConfig()
	cfg.UseReduction = true
	cfg.VarianceRetained = 0.95
	gen := embedding.NewGenerator(&seededEmbedder{}, embedding.GeneratorOptions{}, newTestLogger())

	var buf bytes.Buffer
	p, err := NewPipeline(nil, gen, cfg, utils.NewLoggerTo(&buf, "debug"))
	require.NoError(t, err)
	assert.Nil(t, p.reducer)
	assert.Contains(t, buf.String(), "USE_REDUCTION is ignored in dbscan mode")

	buf.Reset()
	cfg.Mode = config.ModeHDBSCAN
	cfg.MinClusterSize = 2
	p, err = NewPipeline(nil, gen, cfg, utils.NewLoggerTo(&buf, "debug"))
	require.NoError(t, err)
	assert.NotNil(t, p.reducer)
	assert.NotContains(t, buf.String(), "USE_REDUCTION")
}
