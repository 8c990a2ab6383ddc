package storage

import (
	"classifieds-scraper/models"
	"classifieds-scraper/services"
	"classifieds-scraper/utils"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	CommitPerRecord = "record"
	CommitBatch     = "batch"
)

type PostgresWriter struct {
	pool *pgxpool.Pool
}

func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &PostgresWriter{pool: pool}, nil
}

func (w *PostgresWriter) Close() {
	if w.pool != nil {
		w.pool.Close()
	}
}

// EnsureSchema creates the listing tables and the procedures that insert into
// them. Both are idempotent.
func (w *PostgresWriter) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	sql := `
	CREATE TABLE IF NOT EXISTS vehicle_listings (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		name TEXT NOT NULL,
		location TEXT,
		price NUMERIC(14,2),
		mileage INTEGER,
		year INTEGER,
		listed_on DATE,
		image_url TEXT,
		listing_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_vehicle_listings_run ON vehicle_listings(run_id);
	CREATE INDEX IF NOT EXISTS idx_vehicle_listings_price ON vehicle_listings(price);

	CREATE TABLE IF NOT EXISTS venue_listings (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		name TEXT NOT NULL,
		location TEXT,
		capacity INTEGER,
		rating NUMERIC(3,2),
		reviews INTEGER,
		description TEXT,
		price NUMERIC(14,2),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_venue_listings_run ON venue_listings(run_id);

	CREATE OR REPLACE PROCEDURE save_vehicle_listing(
		p_run_id UUID, p_name TEXT, p_location TEXT, p_price NUMERIC,
		p_mileage INTEGER, p_year INTEGER, p_listed_on DATE,
		p_image_url TEXT, p_listing_url TEXT
	)
	LANGUAGE plpgsql AS $$
	BEGIN
		INSERT INTO vehicle_listings (run_id, name, location, price, mileage, year, listed_on, image_url, listing_url)
		VALUES (p_run_id, p_name, p_location, p_price, p_mileage, NULLIF(p_year, 0), p_listed_on, p_image_url, p_listing_url);
	END;
	$$;

	CREATE OR REPLACE PROCEDURE save_venue_listing(
		p_run_id UUID, p_name TEXT, p_location TEXT, p_capacity INTEGER,
		p_rating NUMERIC, p_reviews INTEGER, p_description TEXT, p_price NUMERIC
	)
	LANGUAGE plpgsql AS $$
	BEGIN
		INSERT INTO venue_listings (run_id, name, location, capacity, rating, reviews, description, price)
		VALUES (p_run_id, p_name, p_location, p_capacity, p_rating, p_reviews, p_description, p_price);
	END;
	$$;
	`

	if _, err := w.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	return nil
}

// txBeginner is the part of the pool the sink needs. *pgxpool.Pool satisfies it.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresSink calls a stored procedure once per record. In CommitPerRecord
// mode every call has its own transaction and a failing record is logged and
// skipped. In CommitBatch mode all calls share one transaction and any failure
// rolls back the whole batch.
type PostgresSink[T models.Record] struct {
	db    txBeginner
	name  string
	call  string
	args  func(T) []any
	batch bool
}

func NewPostgresSink[T models.Record](db txBeginner, procedure string, arity int, args func(T) []any, mode string) *PostgresSink[T] {
	return &PostgresSink[T]{
		db:    db,
		name:  procedure,
		call:  callSQL(procedure, arity),
		args:  args,
		batch: mode == CommitBatch,
	}
}

// VehicleSink stores vehicles through save_vehicle_listing, tagging every row
// with runID.
func VehicleSink(w *PostgresWriter, runID uuid.UUID, mode string) *PostgresSink[models.Vehicle] {
	return NewPostgresSink(w.pool, "save_vehicle_listing", 9, vehicleArgs(runID, time.Now()), mode)
}

func VenueSink(w *PostgresWriter, runID uuid.UUID, mode string) *PostgresSink[models.Venue] {
	return NewPostgresSink(w.pool, "save_venue_listing", 8, venueArgs(runID), mode)
}

func vehicleArgs(runID uuid.UUID, now time.Time) func(models.Vehicle) []any {
	return func(v models.Vehicle) []any {
		row := services.NormalizeVehicle(v, now)
		return []any{
			runID.String(),
			row.Name,
			row.Location,
			row.Price,
			row.Mileage,
			row.Year,
			row.Date,
			row.ImageURL,
			row.ListingURL,
		}
	}
}

func venueArgs(runID uuid.UUID) func(models.Venue) []any {
	return func(v models.Venue) []any {
		row := services.NormalizeVenue(v)
		return []any{
			runID.String(),
			row.Name,
			row.Location,
			row.Capacity,
			row.Rating,
			row.Reviews,
			row.Description,
			row.Price,
		}
	}
}

func (s *PostgresSink[T]) Save(ctx context.Context, records []T) error {
	if len(records) == 0 {
		return nil
	}
	if s.batch {
		return s.saveBatch(ctx, records)
	}

	saved := 0
	for _, r := range records {
		if err := s.saveOne(ctx, r); err != nil {
			utils.Warn("Failed to save %q: %v", r.Identity(), err)
			continue
		}
		saved++
	}

	utils.Success("Saved %d/%d records to PostgreSQL via %s", saved, len(records), s.name)
	return nil
}

func (s *PostgresSink[T]) saveOne(ctx context.Context, r T) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// no-op once committed
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, s.call, s.args(r)...); err != nil {
		return fmt.Errorf("call %s: %w", s.name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresSink[T]) saveBatch(ctx context.Context, records []T) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(s.call, s.args(r)...)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("batch call failed at row %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	utils.Success("Saved %d records to PostgreSQL via %s", len(records), s.name)
	return nil
}

// callSQL builds "CALL proc($1, $2, ...)".
func callSQL(procedure string, arity int) string {
	params := make([]string, arity)
	for i := range params {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("CALL %s(%s)", procedure, strings.Join(params, ", "))
}
