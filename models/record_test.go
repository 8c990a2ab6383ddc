package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextAcceptsScalars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Text
	}{
		{"string", `"Toyota Aqua"`, "Toyota Aqua"},
		{"integer", `85000`, "85000"},
		{"float", `9500000.5`, "9500000.5"},
		{"bool", `false`, "false"},
		{"null", `null`, ""},
		{"empty string", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Text
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestTextRejectsNested(t *testing.T) {
	var got Text
	require.Error(t, json.Unmarshal([]byte(`{"a":1}`), &got))
	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &got))
}

func TestDecodeVehicle(t *testing.T) {
	raw := map[string]json.RawMessage{
		"name":        json.RawMessage(`"Honda Fit 2014"`),
		"location":    json.RawMessage(`"Colombo"`),
		"price":       json.RawMessage(`"Rs. 6,950,000"`),
		"mileage":     json.RawMessage(`120000`),
		"date":        json.RawMessage(`"2024-05-14"`),
		"image_url":   json.RawMessage(`"https://img.example/1.jpg"`),
		"listing_url": json.RawMessage(`"https://example.com/buy/honda-fit-1"`),
	}

	v, err := Decode[Vehicle](raw)
	require.NoError(t, err)
	require.Equal(t, "Honda Fit 2014", v.Identity())
	require.Equal(t, "120000", v.Field("mileage"))
	require.Equal(t, "", v.Field("unknown"))

	row := VehicleSchema.Row(v)
	require.Equal(t, []string{
		"Honda Fit 2014",
		"Colombo",
		"Rs. 6,950,000",
		"120000",
		"2024-05-14",
		"https://img.example/1.jpg",
		"https://example.com/buy/honda-fit-1",
	}, row)
}

func TestDecodeRejectsNonScalarField(t *testing.T) {
	raw := map[string]json.RawMessage{
		"name":  json.RawMessage(`"Hall"`),
		"price": json.RawMessage(`{"amount": 1}`),
	}
	_, err := Decode[Venue](raw)
	require.Error(t, err)
}

func TestSchemaFor(t *testing.T) {
	s, ok := SchemaFor("venue")
	require.True(t, ok)
	require.Equal(t, "name", s.IdentityField)

	_, ok = SchemaFor("boat")
	require.False(t, ok)
}
