package models

import (
	"strconv"
	"strings"
)

// MissingText is what string fields hold when the source had no value.
const MissingText = ""

// Column names shared by the raw CSV, the cleaned CSV and the listing table.
const (
	ColID                   = "id"
	ColListingURL           = "listing_url"
	ColPrice                = "price"
	ColPropertyType         = "property_type"
	ColRoomType             = "room_type"
	ColBathroomsText        = "bathrooms_text"
	ColBedrooms             = "bedrooms"
	ColBeds                 = "beds"
	ColAccommodates         = "accommodates"
	ColLatitude             = "latitude"
	ColLongitude            = "longitude"
	ColNeighbourhoodGroup   = "neighbourhood_group_cleansed"
	ColNeighbourhood        = "neighbourhood_cleansed"
	ColNeighborhoodOverview = "neighborhood_overview"
	ColDescription          = "description"
	ColAmenities            = "amenities"
	ColHostAbout            = "host_about"
	ColRating               = "review_scores_rating"
	ColCleanliness          = "review_scores_cleanliness"
	ColCheckin              = "review_scores_checkin"
	ColCommunication        = "review_scores_communication"
	ColLocation             = "review_scores_location"
	ColValue                = "review_scores_value"
	ColNumberOfReviews      = "number_of_reviews"

	ColDescriptionSummary = "description_summary"
	ColPropertyOutline    = "property_outline"
	ColHighLevelOverview  = "high_level_overview"
	ColCluster            = "cluster"
	ColListingsInCluster  = "listings_in_cluster"
)

// RequiredColumns is the cleaned schema, in output order.
var RequiredColumns = []string{
	ColID, ColListingURL, ColPrice, ColPropertyType, ColRoomType, ColBathroomsText,
	ColBedrooms, ColBeds, ColAccommodates, ColLatitude, ColLongitude,
	ColNeighbourhoodGroup, ColNeighbourhood, ColNeighborhoodOverview,
	ColDescription, ColAmenities, ColHostAbout,
	ColRating, ColCleanliness, ColCheckin, ColCommunication, ColLocation, ColValue,
	ColNumberOfReviews,
}

// ClusteredColumns is the cleaned schema extended with the pipeline output.
var ClusteredColumns = append(append([]string{}, RequiredColumns...),
	ColDescriptionSummary, ColPropertyOutline, ColHighLevelOverview,
	ColCluster, ColListingsInCluster,
)

// RawDataset is a tabular source before cleaning.
type RawDataset struct {
	Columns []string
	Rows    []RawListing
}

// RawListing holds one unprocessed row keyed by column name.
// An absent key or a blank value means null.
type RawListing map[string]string

// Value returns the trimmed cell for col and whether it is non-null.
func (r RawListing) Value(col string) (string, bool) {
	v := strings.TrimSpace(r[col])
	return v, v != ""
}

// Listing is a cleaned, typed listing record. The trailing fields are filled
// in by the similarity pipeline.
type Listing struct {
	ID                   int64   `json:"id"`
	ListingURL           string  `json:"listing_url"`
	Price                float64 `json:"price"`
	PropertyType         string  `json:"property_type"`
	RoomType             string  `json:"room_type"`
	BathroomsText        string  `json:"bathrooms_text"`
	Bedrooms             int     `json:"bedrooms"`
	Beds                 int     `json:"beds"`
	Accommodates         int     `json:"accommodates"`
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
	NeighbourhoodGroup   string  `json:"neighbourhood_group_cleansed"`
	Neighbourhood        string  `json:"neighbourhood_cleansed"`
	NeighborhoodOverview string  `json:"neighborhood_overview"`
	Description          string  `json:"description"`
	Amenities            string  `json:"amenities"`
	HostAbout            string  `json:"host_about"`
	ReviewRating         float64 `json:"review_scores_rating"`
	ReviewCleanliness    float64 `json:"review_scores_cleanliness"`
	ReviewCheckin        float64 `json:"review_scores_checkin"`
	ReviewCommunication  float64 `json:"review_scores_communication"`
	ReviewLocation       float64 `json:"review_scores_location"`
	ReviewValue          float64 `json:"review_scores_value"`
	NumberOfReviews      int     `json:"number_of_reviews"`

	DescriptionSummary string `json:"description_summary"`
	PropertyOutline    string `json:"property_outline"`
	HighLevelOverview  string `json:"high_level_overview"`
	// Cluster is nil until the listing has been through a pipeline run.
	Cluster           *int   `json:"cluster"`
	ListingsInCluster string `json:"listings_in_cluster"`
}

// NarrativeViews are the three text renderings of a listing that get embedded.
type NarrativeViews struct {
	Overview  string
	Outline   string
	HighLevel string
}

// SetNarratives stores v on the listing's narrative columns.
func (l *Listing) SetNarratives(v NarrativeViews) {
	l.DescriptionSummary = v.Overview
	l.PropertyOutline = v.Outline
	l.HighLevelOverview = v.HighLevel
}

// SetCluster records a cluster label and its serialized membership set.
func (l *Listing) SetCluster(label int, members string) {
	l.Cluster = &label
	l.ListingsInCluster = members
}

// MemberIDs parses ListingsInCluster. Unparsable entries are skipped.
func (l *Listing) MemberIDs() []int64 {
	if strings.TrimSpace(l.ListingsInCluster) == "" {
		return nil
	}
	parts := strings.Split(l.ListingsInCluster, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Row renders the listing as a raw row, the inverse of cleaning.
func (l *Listing) Row() RawListing {
	r := RawListing{
		ColID:                   strconv.FormatInt(l.ID, 10),
		ColListingURL:           l.ListingURL,
		ColPrice:                formatFloat(l.Price),
		ColPropertyType:         l.PropertyType,
		ColRoomType:             l.RoomType,
		ColBathroomsText:        l.BathroomsText,
		ColBedrooms:             strconv.Itoa(l.Bedrooms),
		ColBeds:                 strconv.Itoa(l.Beds),
		ColAccommodates:         strconv.Itoa(l.Accommodates),
		ColLatitude:             formatFloat(l.Latitude),
		ColLongitude:            formatFloat(l.Longitude),
		ColNeighbourhoodGroup:   l.NeighbourhoodGroup,
		ColNeighbourhood:        l.Neighbourhood,
		ColNeighborhoodOverview: l.NeighborhoodOverview,
		ColDescription:          l.Description,
		ColAmenities:            l.Amenities,
		ColHostAbout:            l.HostAbout,
		ColRating:               formatFloat(l.ReviewRating),
		ColCleanliness:          formatFloat(l.ReviewCleanliness),
		ColCheckin:              formatFloat(l.ReviewCheckin),
		ColCommunication:        formatFloat(l.ReviewCommunication),
		ColLocation:             formatFloat(l.ReviewLocation),
		ColValue:                formatFloat(l.ReviewValue),
		ColNumberOfReviews:      strconv.Itoa(l.NumberOfReviews),

		ColDescriptionSummary: l.DescriptionSummary,
		ColPropertyOutline:    l.PropertyOutline,
		ColHighLevelOverview:  l.HighLevelOverview,
		ColListingsInCluster:  l.ListingsInCluster,
	}
	if l.Cluster != nil {
		r[ColCluster] = strconv.Itoa(*l.Cluster)
	}
	return r
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
