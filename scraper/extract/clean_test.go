package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><head><title>Cars</title><style>.x{}</style></head>
<body>
<div class="header">Riyasewana</div>
<li class="item round">
  <h2><a href="/buy/toyota-aqua-sale-colombo-1">Toyota Aqua 2014</a></h2>
  <img src="//img.example.com/aqua.jpg" alt="Toyota Aqua">
  <div class="boxintxt">Colombo</div>
  <div class="boxintxt b">Rs. 6,950,000</div>
  <div class="boxintxt">120000 km</div>
  <div class="boxintxt s">2024-05-14</div>
</li>
<li class="item round">
  <h2><a href="https://riyasewana.com/buy/honda-fit-2">Honda Fit</a></h2>
  <script>track()</script>
</li>
</body></html>`

func TestCleanWithSelector(t *testing.T) {
	page, err := Clean(listingHTML, "https://riyasewana.com/search/cars", "[class^='item round']")
	require.NoError(t, err)
	require.Equal(t, 2, page.Blocks)

	require.Contains(t, page.Content, "[Toyota Aqua 2014](https://riyasewana.com/buy/toyota-aqua-sale-colombo-1)")
	require.Contains(t, page.Content, "![Toyota Aqua](https://img.example.com/aqua.jpg)")
	require.Contains(t, page.Content, "Rs. 6,950,000")
	require.Contains(t, page.Content, "\n\n---\n\n")
	require.NotContains(t, page.Content, "Riyasewana")
	require.NotContains(t, page.Content, "track()")
}

func TestCleanWithoutSelectorUsesBody(t *testing.T) {
	page, err := Clean(listingHTML, "https://riyasewana.com/search/cars", "")
	require.NoError(t, err)
	require.Equal(t, 1, page.Blocks)
	require.Contains(t, page.Content, "Riyasewana")
	require.NotContains(t, page.Text, ".x{}")
	require.NotContains(t, page.Text, "Cars")
}

func TestContainsMarker(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		marker   string
		expected bool
	}{
		{"exact", "Sorry. No results found for your search", "No results found", true},
		{"case and spacing", "NO   results\nFOUND", "No results found", true},
		{"absent", "Toyota Aqua 2014 Colombo", "No results found", false},
		{"empty marker", "anything", "  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ContainsMarker(tt.text, tt.marker))
		})
	}
}

func TestCleanNoResultsPage(t *testing.T) {
	html := `<html><body><div class="alert"><p>No results</p> <p>found</p></div></body></html>`
	page, err := Clean(html, "https://example.com", "")
	require.NoError(t, err)
	require.True(t, ContainsMarker(page.Text, "No results found"))
	require.False(t, strings.Contains(page.Content, "<p>"))
}
