package storage

import (
	"classifieds-scraper/models"
	"classifieds-scraper/utils"
	"context"
	"errors"
	"fmt"
)

type Saver[T models.Record] interface {
	Save(ctx context.Context, records []T) error
}

// Target is one destination of a Fanout. A failing optional target is logged
// and does not fail the save.
type Target[T models.Record] struct {
	Name     string
	Saver    Saver[T]
	Optional bool
}

// Fanout hands the same records to every target in order. Each target runs
// regardless of earlier failures.
type Fanout[T models.Record] struct {
	targets []Target[T]
}

func NewFanout[T models.Record](targets ...Target[T]) *Fanout[T] {
	return &Fanout[T]{targets: targets}
}

func (f *Fanout[T]) Save(ctx context.Context, records []T) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.Saver.Save(ctx, records); err != nil {
			if t.Optional {
				utils.Error("Failed to save records to %s: %v", t.Name, err)
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}
