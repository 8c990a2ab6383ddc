package storage

import (
	"classifieds-scraper/models"
	"classifieds-scraper/utils"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVWriter saves a run's records to a CSV file. Columns follow the schema's
// required fields in order.
type CSVWriter[T models.Record] struct {
	path   string
	schema models.Schema
}

func NewCSVWriter[T models.Record](path string, schema models.Schema) *CSVWriter[T] {
	return &CSVWriter[T]{path: path, schema: schema}
}

func (w *CSVWriter[T]) Path() string {
	return w.path
}

// Save writes all records to the CSV file, replacing any previous content.
// The file is not created when there is nothing to write.
func (w *CSVWriter[T]) Save(_ context.Context, records []T) error {
	if len(records) == 0 {
		utils.Warn("No records to write")
		return nil
	}

	// Create output directory if needed (e.g. "output/" folder)
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("could not create output dir: %w", err)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(w.schema.Required); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(w.schema.Row(r)); err != nil {
			return fmt.Errorf("csv write error: %w", err)
		}
	}

	// must flush or data stays in buffer
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("could not close file: %w", err)
	}

	utils.Success("Saved %d %s records to '%s'", len(records), w.schema.Name, w.path)
	return nil
}
