package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"airbnb-similarity/models"
	"airbnb-similarity/utils"
)

var (
	// priceNoiseRegexp matches currency symbols, thousands separators and
	// anything else that is not part of a plain decimal number.
	priceNoiseRegexp = regexp.MustCompile(`[^\d.\-]`)
)

// maxNullFraction is the share of nulls above which a column is discarded.
const maxNullFraction = 0.5

var textFields = map[string]func(*models.Listing) *string{
	models.ColListingURL:           func(l *models.Listing) *string { return &l.ListingURL },
	models.ColPropertyType:         func(l *models.Listing) *string { return &l.PropertyType },
	models.ColRoomType:             func(l *models.Listing) *string { return &l.RoomType },
	models.ColBathroomsText:        func(l *models.Listing) *string { return &l.BathroomsText },
	models.ColNeighbourhoodGroup:   func(l *models.Listing) *string { return &l.NeighbourhoodGroup },
	models.ColNeighbourhood:        func(l *models.Listing) *string { return &l.Neighbourhood },
	models.ColNeighborhoodOverview: func(l *models.Listing) *string { return &l.NeighborhoodOverview },
	models.ColDescription:          func(l *models.Listing) *string { return &l.Description },
	models.ColAmenities:            func(l *models.Listing) *string { return &l.Amenities },
	models.ColHostAbout:            func(l *models.Listing) *string { return &l.HostAbout },
}

// floatFields are filled with the column mean when null.
var floatFields = map[string]func(*models.Listing) *float64{
	models.ColPrice:         func(l *models.Listing) *float64 { return &l.Price },
	models.ColLatitude:      func(l *models.Listing) *float64 { return &l.Latitude },
	models.ColLongitude:     func(l *models.Listing) *float64 { return &l.Longitude },
	models.ColRating:        func(l *models.Listing) *float64 { return &l.ReviewRating },
	models.ColCleanliness:   func(l *models.Listing) *float64 { return &l.ReviewCleanliness },
	models.ColCheckin:       func(l *models.Listing) *float64 { return &l.ReviewCheckin },
	models.ColCommunication: func(l *models.Listing) *float64 { return &l.ReviewCommunication },
	models.ColLocation:      func(l *models.Listing) *float64 { return &l.ReviewLocation },
	models.ColValue:         func(l *models.Listing) *float64 { return &l.ReviewValue },
}

// countFields are filled with zero when null; a mean would invent
// fractional bedrooms for listings that have none.
var countFields = map[string]func(*models.Listing) *int{
	models.ColBedrooms:        func(l *models.Listing) *int { return &l.Bedrooms },
	models.ColBeds:            func(l *models.Listing) *int { return &l.Beds },
	models.ColAccommodates:    func(l *models.Listing) *int { return &l.Accommodates },
	models.ColNumberOfReviews: func(l *models.Listing) *int { return &l.NumberOfReviews },
}

// CleanResult is the outcome of one cleaning pass.
type CleanResult struct {
	Listings []*models.Listing
	// DroppedInvalidID counts rows whose id was not numeric.
	DroppedInvalidID int
	DroppedDuplicate int
	// DroppedColumns lists columns discarded for being mostly null. Their
	// fields hold the text sentinel or zero on every listing.
	DroppedColumns []string
}

// Cleaner transforms a raw dataset into clean, fully populated Listings.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean validates the schema, drops rows without a numeric id and fills every
// remaining null according to the missing-value policy.
func (c *Cleaner) Clean(ds *models.RawDataset) (*CleanResult, error) {
	if missing := missingColumns(ds.Columns); len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	res := &CleanResult{}
	seen := make(map[int64]struct{}, len(ds.Rows))
	rows := make([]models.RawListing, 0, len(ds.Rows))
	listings := make([]*models.Listing, 0, len(ds.Rows))

	for _, r := range ds.Rows {
		raw, _ := r.Value(models.ColID)
		id, ok := parseID(raw)
		if !ok {
			res.DroppedInvalidID++
			c.logger.Debug("[cleaner] Dropping listing with non-numeric id %q", raw)
			continue
		}
		if _, dup := seen[id]; dup {
			res.DroppedDuplicate++
			c.logger.Debug("[cleaner] Duplicate id skipped: %d", id)
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, r)
		listings = append(listings, &models.Listing{ID: id})
	}

	for _, col := range models.RequiredColumns {
		var dropped bool
		switch {
		case textFields[col] != nil:
			dropped = fillText(rows, listings, textFields[col], col)
		case floatFields[col] != nil:
			dropped = fillFloat(rows, listings, floatFields[col], col)
		case countFields[col] != nil:
			dropped = fillCount(rows, listings, countFields[col], col)
		}
		if dropped {
			res.DroppedColumns = append(res.DroppedColumns, col)
			c.logger.Warn("[cleaner] Column %q is more than %.0f%% null; discarding its values",
				col, maxNullFraction*100)
		}
	}

	res.Listings = listings
	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d non-numeric ids, %d duplicates)",
		len(ds.Rows), len(listings), res.DroppedInvalidID, res.DroppedDuplicate)
	return res, nil
}

func fillText(rows []models.RawListing, out []*models.Listing, field func(*models.Listing) *string, col string) bool {
	nulls := 0
	for _, r := range rows {
		if _, ok := r.Value(col); !ok {
			nulls++
		}
	}
	drop := tooSparse(nulls, len(rows))
	for i, r := range rows {
		v, ok := r.Value(col)
		if drop || !ok {
			v = models.MissingText
		} else {
			v = normaliseText(v)
		}
		*field(out[i]) = v
	}
	return drop
}

func fillFloat(rows []models.RawListing, out []*models.Listing, field func(*models.Listing) *float64, col string) bool {
	parse := parseNumber
	if col == models.ColPrice {
		parse = parsePrice
	}
	vals, valid, nulls := parseColumn(rows, col, parse)
	drop := tooSparse(nulls, len(rows))

	var sum float64
	for i, v := range vals {
		if valid[i] {
			sum += v
		}
	}
	mean := 0.0
	if n := len(rows) - nulls; n > 0 {
		mean = sum / float64(n)
	}

	for i := range rows {
		switch {
		case drop:
			*field(out[i]) = 0
		case valid[i]:
			*field(out[i]) = vals[i]
		default:
			*field(out[i]) = mean
		}
	}
	return drop
}

func fillCount(rows []models.RawListing, out []*models.Listing, field func(*models.Listing) *int, col string) bool {
	vals, valid, nulls := parseColumn(rows, col, parseNumber)
	drop := tooSparse(nulls, len(rows))
	for i := range rows {
		if drop || !valid[i] {
			*field(out[i]) = 0
			continue
		}
		*field(out[i]) = int(math.Round(vals[i]))
	}
	return drop
}

func parseColumn(rows []models.RawListing, col string, parse func(string) (float64, bool)) ([]float64, []bool, int) {
	vals := make([]float64, len(rows))
	valid := make([]bool, len(rows))
	nulls := 0
	for i, r := range rows {
		raw, ok := r.Value(col)
		if ok {
			vals[i], valid[i] = parse(raw)
		}
		if !valid[i] {
			nulls++
		}
	}
	return vals, valid, nulls
}

func tooSparse(nulls, total int) bool {
	return total > 0 && float64(nulls) > maxNullFraction*float64(total)
}

func missingColumns(columns []string) []string {
	have := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		have[strings.TrimSpace(col)] = struct{}{}
	}
	var missing []string
	for _, col := range models.RequiredColumns {
		if _, ok := have[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// parseID accepts plain integers and integral floats such as "42.0".
func parseID(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// parsePrice strips currency symbols and separators before parsing.
// Examples:
//
//	"$1,234.50" → 1234.50
//	"€ 99"      → 99
//	"free"      → null
func parsePrice(raw string) (float64, bool) {
	return parseNumber(priceNoiseRegexp.ReplaceAllString(raw, ""))
}

func parseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
