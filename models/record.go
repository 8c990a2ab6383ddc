package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one extracted listing. Field returns the value of a schema field by
// its JSON name, or "" for unknown names.
type Record interface {
	Identity() string
	Field(name string) string
}

// Schema describes a record variant: the ordered required fields double as the
// CSV column order.
type Schema struct {
	Name          string
	Required      []string
	IdentityField string
	Instruction   string
	JSONSchema    map[string]any
}

// Row renders r in the order of s.Required.
func (s Schema) Row(r Record) []string {
	row := make([]string, len(s.Required))
	for i, name := range s.Required {
		row[i] = r.Field(name)
	}
	return row
}

// Text is a scalar field value as the extractor produced it. Strings, numbers
// and booleans are kept as text; null decodes to "".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*t = Text(strconv.FormatBool(b))
	case '{', '[':
		return fmt.Errorf("expected scalar value, got %s", data[:1])
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = Text(n.String())
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}

// Decode converts a raw extracted object into the typed record T.
func Decode[T Record](raw map[string]json.RawMessage) (T, error) {
	var rec T
	data, err := json.Marshal(raw)
	if err != nil {
		return rec, fmt.Errorf("re-encode record: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
