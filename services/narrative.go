package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"airbnb-similarity/models"
)

const (
	notAvailable     = "N/A"
	noDescription    = "No detailed description available."
	positiveScoreMin = 4.5
	mixedScoreMin    = 3.5
)

// scoreTier holds the sentence used for each threshold band of a review sub-score.
type scoreTier struct {
	positive, mixed, negative string
}

var (
	cleanlinessTier = scoreTier{
		positive: "The property is consistently rated highly for cleanliness.",
		mixed:    "The property is generally clean but could use some improvement.",
		negative: "Cleanliness is often highlighted as a concern by guests.",
	}
	checkinTier = scoreTier{
		positive: "The check-in process is rated as smooth and easy by most guests.",
		mixed:    "The check-in process is generally okay, but there might be occasional issues.",
		negative: "Guests frequently report issues with the check-in process.",
	}
	communicationTier = scoreTier{
		positive: "The host is highly responsive and easy to communicate with.",
		mixed:    "Communication with the host is generally fine, with some areas for improvement.",
		negative: "Guests have often faced difficulties in communicating with the host.",
	}
	locationTier = scoreTier{
		positive: "The location is highly rated by guests, with many finding it convenient.",
		mixed:    "The location is generally good but may not be ideal for everyone.",
		negative: "The location might not be convenient or desirable for many guests.",
	}
	valueTier = scoreTier{
		positive: "Guests believe the property offers excellent value for money.",
		mixed:    "The property offers reasonable value, though some guests may feel it's a bit pricey.",
		negative: "Guests feel the property does not offer good value for the price.",
	}
)

func (t scoreTier) pick(score float64) string {
	switch {
	case score >= positiveScoreMin:
		return t.positive
	case score >= mixedScoreMin:
		return t.mixed
	default:
		return t.negative
	}
}

// NarrativeBuilder renders the three text views of a listing. It is pure:
// the same listing always yields byte-identical text.
type NarrativeBuilder struct{}

// NewNarrativeBuilder creates a NarrativeBuilder.
func NewNarrativeBuilder() *NarrativeBuilder {
	return &NarrativeBuilder{}
}

// Build returns all three views for l.
func (b *NarrativeBuilder) Build(l *models.Listing) models.NarrativeViews {
	return models.NarrativeViews{
		Overview:  b.Overview(l),
		Outline:   b.Outline(l),
		HighLevel: b.HighLevel(l),
	}
}

// Overview is a factual one-paragraph summary of the listing's attributes.
func (b *NarrativeBuilder) Overview(l *models.Listing) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "This %s-bedroom %s is located in %s. ",
		countText(l.Bedrooms), textOrNA(l.PropertyType), textOrNA(l.Neighbourhood))
	fmt.Fprintf(&sb, "The %s accommodates %s guests with %s bed(s) and %s. ",
		textOrNA(l.RoomType), countText(l.Accommodates), countText(l.Beds), textOrNA(l.BathroomsText))

	if present(l.Price) {
		fmt.Fprintf(&sb, "The price per night is $%.2f. ", l.Price)
	}
	if present(l.ReviewRating) {
		fmt.Fprintf(&sb, "The property has a review rating of %.1f/5.", l.ReviewRating)
	}
	return strings.TrimSpace(sb.String())
}

// Outline restates the description and turns the review sub-scores into
// qualitative sentences.
func (b *NarrativeBuilder) Outline(l *models.Listing) string {
	description := l.Description
	if description == models.MissingText {
		description = noDescription
	}

	sentences := []string{
		"Property Description: " + description,
		"Review Overview:",
		"• " + cleanlinessTier.pick(l.ReviewCleanliness),
		"• " + checkinTier.pick(l.ReviewCheckin),
		"• " + communicationTier.pick(l.ReviewCommunication),
		"• " + locationTier.pick(l.ReviewLocation),
		"• " + valueTier.pick(l.ReviewValue),
	}

	if allAtLeast(positiveScoreMin, l.ReviewRating, l.ReviewCleanliness, l.ReviewCheckin,
		l.ReviewCommunication, l.ReviewLocation, l.ReviewValue) {
		sentences = append(sentences,
			"Overall, the reviews suggest that the property consistently meets or exceeds expectations.")
	} else {
		sentences = append(sentences,
			"There are some areas where guest experiences may not fully align with the description, particularly in the aspects highlighted above.")
	}
	return strings.Join(sentences, " ")
}

// HighLevel joins the property type with whatever free text the listing has.
// Absent parts are left out rather than replaced with a placeholder.
func (b *NarrativeBuilder) HighLevel(l *models.Listing) string {
	parts := []string{fmt.Sprintf("This is a %s.", textOrNA(l.PropertyType))}
	if l.Description != models.MissingText {
		parts = append(parts, l.Description)
	}
	if l.NeighborhoodOverview != models.MissingText {
		parts = append(parts, "The neighborhood is described as: "+l.NeighborhoodOverview)
	}
	return strings.Join(parts, " ")
}

// countText renders a count; zero is the cleaner's fill value for an
// unknown count, so it reads as not available.
func countText(n int) string {
	if n <= 0 {
		return notAvailable
	}
	return strconv.Itoa(n)
}

func textOrNA(s string) string {
	if s == models.MissingText {
		return notAvailable
	}
	return s
}

func present(f float64) bool {
	return !math.IsNaN(f) && f > 0
}

func allAtLeast(min float64, scores ...float64) bool {
	for _, s := range scores {
		if math.IsNaN(s) || s < min {
			return false
		}
	}
	return true
}
