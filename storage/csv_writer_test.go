package storage

import (
	"classifieds-scraper/models"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVWriterWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "vehicles.csv")
	w := NewCSVWriter[models.Vehicle](path, models.VehicleSchema)

	require.NoError(t, w.Save(context.Background(), []models.Vehicle{
		{Name: "Toyota Aqua", Location: "Colombo", Price: "Rs. 6,250,000", Mileage: "98000",
			Date: "2024-05-14", ImageURL: "https://img.example/aqua.jpg", ListingURL: "https://riyasewana.com/buy/aqua"},
		{Name: "Honda, Vezel", Location: "Kandy", Price: "Negotiable", Mileage: "45000",
			Date: "2024-05-13", ImageURL: "https://img.example/vezel.jpg", ListingURL: "https://riyasewana.com/buy/vezel"},
	}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"name", "location", "price", "mileage", "date", "image_url", "listing_url"},
		{"Toyota Aqua", "Colombo", "Rs. 6,250,000", "98000", "2024-05-14", "https://img.example/aqua.jpg", "https://riyasewana.com/buy/aqua"},
		{"Honda, Vezel", "Kandy", "Negotiable", "45000", "2024-05-13", "https://img.example/vezel.jpg", "https://riyasewana.com/buy/vezel"},
	}, rows)
}

func TestCSVWriterSkipsEmptyRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venues.csv")
	w := NewCSVWriter[models.Venue](path, models.VenueSchema)

	require.NoError(t, w.Save(context.Background(), nil))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestCSVWriterVenueColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venues.csv")
	w := NewCSVWriter[models.Venue](path, models.VenueSchema)

	require.NoError(t, w.Save(context.Background(), []models.Venue{
		{Name: "Lakeside Hall", Location: "Kandy", Capacity: "250", Rating: "4.7", Reviews: "12", Description: "By the lake.", Price: "100"},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "name,location,capacity,rating,reviews,description\nLakeside Hall,Kandy,250,4.7,12,By the lake.\n", string(data))
}
