package services

import (
	"classifieds-scraper/models"
	"fmt"
	"math"
	"sort"
	"strings"
)

type Report[T models.Record] struct {
	TotalRecords      int
	PricedRecords     int
	AveragePrice      float64
	MinPrice          float64
	MaxPrice          float64
	MostExpensive     T
	HasMostExpensive  bool
	TopRated          []T
	RecordsByLocation map[string]int
}

// GenerateReport computes market insights over the collected records. Records
// whose price cannot be parsed are counted but left out of the price stats.
func GenerateReport[T models.Record](records []T) Report[T] {
	report := Report[T]{
		TotalRecords:      len(records),
		RecordsByLocation: make(map[string]int),
	}

	if len(records) == 0 {
		return report
	}

	var (
		priceSum float64
		maxPrice = -1.0
		minPrice = math.MaxFloat64
		rated    []T
	)

	for _, r := range records {
		report.RecordsByLocation[normalizeLocation(r.Field("location"))]++

		if price := ParsePrice(r.Field("price")); price > 0 {
			priceSum += price
			report.PricedRecords++

			if price > maxPrice {
				maxPrice = price
				report.MostExpensive = r
				report.HasMostExpensive = true
			}
			if price < minPrice {
				minPrice = price
			}
		}

		if ParsePrice(r.Field("rating")) > 0 {
			rated = append(rated, r)
		}
	}

	if report.PricedRecords > 0 {
		report.AveragePrice = priceSum / float64(report.PricedRecords)
		report.MinPrice = minPrice
		report.MaxPrice = maxPrice
	}

	sort.SliceStable(rated, func(i, j int) bool {
		ri, rj := ParsePrice(rated[i].Field("rating")), ParsePrice(rated[j].Field("rating"))
		if ri == rj {
			return ParsePrice(rated[i].Field("price")) > ParsePrice(rated[j].Field("price"))
		}
		return ri > rj
	})

	if len(rated) > 5 {
		rated = rated[:5]
	}
	report.TopRated = rated

	return report
}

func PrintReport[T models.Record](title string, report Report[T]) {
	fmt.Println()
	fmt.Println("┌──────────────────────────────────────────────────────────────┐")
	fmt.Printf("│ %-60s │\n", centerText(title, 60))
	fmt.Println("├───────────────────────────────┬──────────────────────────────┤")
	fmt.Printf("│ %-29s │ %-28d │\n", "Total Records", report.TotalRecords)
	fmt.Printf("│ %-29s │ %-28d │\n", "Records With Price", report.PricedRecords)
	fmt.Printf("│ %-29s │ %-28.2f │\n", "Average Price", report.AveragePrice)
	fmt.Printf("│ %-29s │ %-28.2f │\n", "Minimum Price", report.MinPrice)
	fmt.Printf("│ %-29s │ %-28.2f │\n", "Maximum Price", report.MaxPrice)
	fmt.Println("└───────────────────────────────┴──────────────────────────────┘")

	if report.HasMostExpensive {
		fmt.Println()
		fmt.Println("┌──────────────────────────────────────────────────────────────┐")
		fmt.Println("│                    Most Expensive Listing                    │")
		fmt.Println("├───────────────────────────────┬──────────────────────────────┤")
		fmt.Printf("│ %-29s │ %-28.2f │\n", "Price", report.MaxPrice)
		fmt.Printf("│ %-29s │ %-28s │\n", "Location", truncateText(normalizeLocation(report.MostExpensive.Field("location")), 28))
		fmt.Println("└───────────────────────────────┴──────────────────────────────┘")
		fmt.Printf("Name: %s\n", report.MostExpensive.Identity())
	}

	fmt.Println()
	fmt.Println("┌──────────────────────────────────────────────┬───────────────┐")
	fmt.Println("│ Records per Location                         │ Count         │")
	fmt.Println("├──────────────────────────────────────────────┼───────────────┤")
	for _, loc := range sortedLocations(report.RecordsByLocation) {
		fmt.Printf("│ %-44s │ %-13d │\n", truncateText(loc, 44), report.RecordsByLocation[loc])
	}
	fmt.Println("└──────────────────────────────────────────────┴───────────────┘")

	if len(report.TopRated) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("┌─────┬──────────────────────────────────────────────┬──────────┐")
	fmt.Println("│ #   │ Top 5 Highest Rated                          │ Rating   │")
	fmt.Println("├─────┼──────────────────────────────────────────────┼──────────┤")
	for i, r := range report.TopRated {
		fmt.Printf("│ %-3d │ %-44s │ %-8.2f │\n", i+1, truncateText(r.Identity(), 44), ParsePrice(r.Field("rating")))
	}
	fmt.Println("└─────┴──────────────────────────────────────────────┴──────────┘")
}

func normalizeLocation(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return "Unknown"
	}
	return location
}

func sortedLocations(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func centerText(s string, width int) string {
	s = truncateText(s, width)
	pad := (width - len([]rune(s))) / 2
	return strings.Repeat(" ", pad) + s
}

func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
