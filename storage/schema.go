package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"airbnb-similarity/models"
)

type columnKind int

const (
	kindText columnKind = iota
	kindFloat
	kindInt
	kindBigInt
	kindNullInt
)

type column struct {
	name string
	kind columnKind
}

// listingColumns is the listing table layout. The order matches
// listingValues and scanListing.
var listingColumns = []column{
	{models.ColID, kindBigInt},
	{models.ColListingURL, kindText},
	{models.ColPrice, kindFloat},
	{models.ColPropertyType, kindText},
	{models.ColRoomType, kindText},
	{models.ColBathroomsText, kindText},
	{models.ColBedrooms, kindInt},
	{models.ColBeds, kindInt},
	{models.ColAccommodates, kindInt},
	{models.ColLatitude, kindFloat},
	{models.ColLongitude, kindFloat},
	{models.ColNeighbourhoodGroup, kindText},
	{models.ColNeighbourhood, kindText},
	{models.ColNeighborhoodOverview, kindText},
	{models.ColDescription, kindText},
	{models.ColAmenities, kindText},
	{models.ColHostAbout, kindText},
	{models.ColRating, kindFloat},
	{models.ColCleanliness, kindFloat},
	{models.ColCheckin, kindFloat},
	{models.ColCommunication, kindFloat},
	{models.ColLocation, kindFloat},
	{models.ColValue, kindFloat},
	{models.ColNumberOfReviews, kindInt},
	{models.ColDescriptionSummary, kindText},
	{models.ColPropertyOutline, kindText},
	{models.ColHighLevelOverview, kindText},
	{models.ColCluster, kindNullInt},
	{models.ColListingsInCluster, kindText},
}

const tableName = "listing"

func columnNames() []string {
	names := make([]string, len(listingColumns))
	for i, c := range listingColumns {
		names[i] = c.name
	}
	return names
}

func listingValues(l *models.Listing) []any {
	var cluster any
	if l.Cluster != nil {
		cluster = int64(*l.Cluster)
	}
	return []any{
		l.ID, l.ListingURL, l.Price, l.PropertyType, l.RoomType, l.BathroomsText,
		l.Bedrooms, l.Beds, l.Accommodates, l.Latitude, l.Longitude,
		l.NeighbourhoodGroup, l.Neighbourhood, l.NeighborhoodOverview,
		l.Description, l.Amenities, l.HostAbout,
		l.ReviewRating, l.ReviewCleanliness, l.ReviewCheckin,
		l.ReviewCommunication, l.ReviewLocation, l.ReviewValue,
		l.NumberOfReviews,
		l.DescriptionSummary, l.PropertyOutline, l.HighLevelOverview,
		cluster, l.ListingsInCluster,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(s rowScanner) (*models.Listing, error) {
	l := &models.Listing{}
	var cluster sql.NullInt64
	if err := s.Scan(
		&l.ID, &l.ListingURL, &l.Price, &l.PropertyType, &l.RoomType, &l.BathroomsText,
		&l.Bedrooms, &l.Beds, &l.Accommodates, &l.Latitude, &l.Longitude,
		&l.NeighbourhoodGroup, &l.Neighbourhood, &l.NeighborhoodOverview,
		&l.Description, &l.Amenities, &l.HostAbout,
		&l.ReviewRating, &l.ReviewCleanliness, &l.ReviewCheckin,
		&l.ReviewCommunication, &l.ReviewLocation, &l.ReviewValue,
		&l.NumberOfReviews,
		&l.DescriptionSummary, &l.PropertyOutline, &l.HighLevelOverview,
		&cluster, &l.ListingsInCluster,
	); err != nil {
		return nil, err
	}
	if cluster.Valid {
		c := int(cluster.Int64)
		l.Cluster = &c
	}
	return l, nil
}

// dialect captures the SQL differences between backends.
type dialect struct {
	name        string
	floatType   string
	bigIntType  string
	placeholder func(n int) string
	// upsert renders the INSERT prefix and the conflict clause for one
	// multi-row statement.
	upsert func(cols []string) (prefix, suffix string)
}

func (d dialect) createTable() string {
	defs := make([]string, len(listingColumns))
	for i, c := range listingColumns {
		var def string
		switch c.kind {
		case kindBigInt:
			def = d.bigIntType + " PRIMARY KEY"
		case kindText:
			def = "TEXT NOT NULL DEFAULT ''"
		case kindFloat:
			def = d.floatType + " NOT NULL DEFAULT 0"
		case kindInt:
			def = "INTEGER NOT NULL DEFAULT 0"
		case kindNullInt:
			def = "INTEGER"
		}
		defs[i] = fmt.Sprintf("%s %s", c.name, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", tableName, strings.Join(defs, ",\n\t"))
}

func (d dialect) indexes() []string {
	return []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_listing_cluster ON %s(%s)", tableName, models.ColCluster),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_listing_neighbourhood ON %s(%s)", tableName, models.ColNeighbourhood),
	}
}

var postgresDialect = dialect{
	name:        "postgres",
	floatType:   "DOUBLE PRECISION",
	bigIntType:  "BIGINT",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	upsert: func(cols []string) (string, string) {
		sets := make([]string, 0, len(cols)-1)
		for _, c := range cols {
			if c == models.ColID {
				continue
			}
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
		prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", tableName, strings.Join(cols, ", "))
		suffix := fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", models.ColID, strings.Join(sets, ", "))
		return prefix, suffix
	},
}

var sqliteDialect = dialect{
	name:        "sqlite",
	floatType:   "REAL",
	bigIntType:  "INTEGER",
	placeholder: func(int) string { return "?" },
	upsert: func(cols []string) (string, string) {
		return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES ", tableName, strings.Join(cols, ", ")), ""
	},
}
