package services

import (
	"strconv"

	"airbnb-similarity/models"
	"airbnb-similarity/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

// rawRow returns a fully populated raw row; overrides replace or blank cells.
func rawRow(id string, overrides map[string]string) models.RawListing {
	r := models.RawListing{
		models.ColID:                   id,
		models.ColListingURL:           "https://www.airbnb.com/rooms/" + id,
		models.ColPrice:                "$150.00",
		models.ColPropertyType:         "Entire rental unit",
		models.ColRoomType:             "Entire home/apt",
		models.ColBathroomsText:        "1 bath",
		models.ColBedrooms:             "2",
		models.ColBeds:                 "2",
		models.ColAccommodates:         "4",
		models.ColLatitude:             "40.7128",
		models.ColLongitude:            "-74.006",
		models.ColNeighbourhoodGroup:   "Manhattan",
		models.ColNeighbourhood:        "Chelsea",
		models.ColNeighborhoodOverview: "Quiet tree-lined street near the High Line.",
		models.ColDescription:          "A cozy apartment in the heart of NYC.",
		models.ColAmenities:            "Wifi, Kitchen, Air conditioning",
		models.ColHostAbout:            "Friendly host.",
		models.ColRating:               "4.8",
		models.ColCleanliness:          "4.9",
		models.ColCheckin:              "4.7",
		models.ColCommunication:        "4.9",
		models.ColLocation:             "4.6",
		models.ColValue:                "4.5",
		models.ColNumberOfReviews:      "10",
	}
	for k, v := range overrides {
		r[k] = v
	}
	return r
}

func dataset(rows ...models.RawListing) *models.RawDataset {
	return &models.RawDataset{
		Columns: append([]string{}, models.RequiredColumns...),
		Rows:    rows,
	}
}

func idRows(ids ...int) []models.RawListing {
	rows := make([]models.RawListing, len(ids))
	for i, id := range ids {
		rows[i] = rawRow(strconv.Itoa(id), nil)
	}
	return rows
}
