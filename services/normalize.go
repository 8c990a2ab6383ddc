package services

import (
	"classifieds-scraper/models"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	numberRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	yearRe   = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// dateLayouts are the listing date formats seen on classifieds sites.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
}

// VehicleRow is a vehicle with its fields coerced for the database.
type VehicleRow struct {
	Name       string
	Location   string
	Price      float64
	Mileage    int
	Year       int
	Date       string
	ImageURL   string
	ListingURL string
}

type VenueRow struct {
	Name        string
	Location    string
	Capacity    int
	Rating      float64
	Reviews     int
	Description string
	Price       float64
}

func NormalizeVehicle(v models.Vehicle, now time.Time) VehicleRow {
	year := ParseYear(string(v.Year), now)
	if year == 0 {
		year = YearFromText(string(v.Name), now)
	}

	return VehicleRow{
		Name:       strings.TrimSpace(string(v.Name)),
		Location:   strings.TrimSpace(string(v.Location)),
		Price:      ParsePrice(string(v.Price)),
		Mileage:    ParseDigits(string(v.Mileage)),
		Year:       year,
		Date:       ParseDate(string(v.Date), now),
		ImageURL:   strings.TrimSpace(string(v.ImageURL)),
		ListingURL: strings.TrimSpace(string(v.ListingURL)),
	}
}

func NormalizeVenue(v models.Venue) VenueRow {
	return VenueRow{
		Name:        strings.TrimSpace(string(v.Name)),
		Location:    strings.TrimSpace(string(v.Location)),
		Capacity:    ParseDigits(string(v.Capacity)),
		Rating:      ParsePrice(string(v.Rating)),
		Reviews:     ParseDigits(string(v.Reviews)),
		Description: strings.TrimSpace(string(v.Description)),
		Price:       ParsePrice(string(v.Price)),
	}
}

// ParsePrice returns the first number in raw with thousands separators removed,
// or 0 when raw holds no number ("Negotiable", "").
func ParsePrice(raw string) float64 {
	m := numberRe.FindString(raw)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseDigits keeps only the digits of raw: "85,000 km" becomes 85000.
func ParseDigits(raw string) int {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	v, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return v
}

// ParseYear accepts a 4-digit year within [1900, now's year], else returns 0.
func ParseYear(raw string, now time.Time) int {
	raw = strings.TrimSpace(raw)
	if len(raw) != 4 {
		return 0
	}
	y, err := strconv.Atoi(raw)
	if err != nil || y < 1900 || y > now.Year() {
		return 0
	}
	return y
}

// YearFromText finds the first plausible model year in free text such as a
// listing title.
func YearFromText(text string, now time.Time) int {
	for _, m := range yearRe.FindAllString(text, -1) {
		if y := ParseYear(m, now); y != 0 {
			return y
		}
	}
	return 0
}

// ParseDate reformats raw as 2006-01-02, falling back to now's date when raw
// matches no known layout.
func ParseDate(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateLayout)
		}
	}
	return now.Format(DateLayout)
}
