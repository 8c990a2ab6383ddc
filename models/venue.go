package models

type Venue struct {
	Name        Text `json:"name"`
	Location    Text `json:"location"`
	Capacity    Text `json:"capacity"`
	Rating      Text `json:"rating"`
	Reviews     Text `json:"reviews"`
	Description Text `json:"description"`
	Price       Text `json:"price,omitempty"`
}

func (v Venue) Identity() string {
	return string(v.Name)
}

func (v Venue) Field(name string) string {
	switch name {
	case "name":
		return string(v.Name)
	case "location":
		return string(v.Location)
	case "capacity":
		return string(v.Capacity)
	case "rating":
		return string(v.Rating)
	case "reviews":
		return string(v.Reviews)
	case "description":
		return string(v.Description)
	case "price":
		return string(v.Price)
	}
	return ""
}

var VenueSchema = Schema{
	Name:          "venue",
	Required:      []string{"name", "location", "capacity", "rating", "reviews", "description"},
	IdentityField: "name",
	Instruction: "Extract all venue objects with 'name', 'location', 'price', 'capacity', " +
		"'rating', 'reviews', and a 1 sentence description of the venue from the " +
		"following content.",
	JSONSchema: map[string]any{
		"title": "Venue",
		"type":  "object",
		"properties": map[string]any{
			"name":        map[string]any{"type": "string"},
			"location":    map[string]any{"type": "string"},
			"capacity":    map[string]any{"type": "string"},
			"rating":      map[string]any{"type": "number"},
			"reviews":     map[string]any{"type": "integer"},
			"description": map[string]any{"type": "string"},
			"price":       map[string]any{"type": "string"},
		},
		"required": []string{"name", "location", "capacity", "rating", "reviews", "description"},
	},
}

// SchemaFor returns the schema for a variant name.
func SchemaFor(variant string) (Schema, bool) {
	switch variant {
	case VehicleSchema.Name:
		return VehicleSchema, true
	case VenueSchema.Name:
		return VenueSchema, true
	}
	return Schema{}, false
}
