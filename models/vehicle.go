package models

type Vehicle struct {
	Name       Text `json:"name"`
	Location   Text `json:"location"`
	Price      Text `json:"price"`
	Mileage    Text `json:"mileage"`
	Date       Text `json:"date"`
	ImageURL   Text `json:"image_url"`
	ListingURL Text `json:"listing_url"`
	Year       Text `json:"year,omitempty"`
}

func (v Vehicle) Identity() string {
	return string(v.Name)
}

func (v Vehicle) Field(name string) string {
	switch name {
	case "name":
		return string(v.Name)
	case "location":
		return string(v.Location)
	case "price":
		return string(v.Price)
	case "mileage":
		return string(v.Mileage)
	case "date":
		return string(v.Date)
	case "image_url":
		return string(v.ImageURL)
	case "listing_url":
		return string(v.ListingURL)
	case "year":
		return string(v.Year)
	}
	return ""
}

var VehicleSchema = Schema{
	Name: "vehicle",
	Required: []string{
		"name",
		"location",
		"price",
		"mileage",
		"date",
		"image_url",
		"listing_url",
	},
	IdentityField: "name",
	Instruction: "Extract all car listings with the following attributes:\n" +
		"- 'name': The car's make and model.\n" +
		"- 'location': The city or town where the car is listed.\n" +
		"- 'price': The listed price of the car.\n" +
		"- 'mileage': The number of kilometers driven.\n" +
		"- 'date': The date of the listing.\n" +
		"- 'image_url': The URL of the listing's thumbnail image.\n" +
		"- 'listing_url': The URL of the listing's detail page.\n" +
		"- 'year': The manufacturing year, if shown.\n",
	JSONSchema: map[string]any{
		"title": "Vehicle",
		"type":  "object",
		"properties": map[string]any{
			"name":        map[string]any{"type": "string"},
			"location":    map[string]any{"type": "string"},
			"price":       map[string]any{"type": "number"},
			"mileage":     map[string]any{"type": "integer"},
			"date":        map[string]any{"type": "string"},
			"image_url":   map[string]any{"type": "string"},
			"listing_url": map[string]any{"type": "string"},
			"year":        map[string]any{"type": "integer"},
		},
		"required": []string{"name", "location", "price", "mileage", "date", "image_url", "listing_url"},
	},
}
