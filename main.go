package main

import (
	"classifieds-scraper/config"
	"classifieds-scraper/models"
	"classifieds-scraper/scraper"
	"classifieds-scraper/scraper/browser"
	"classifieds-scraper/scraper/extract"
	"classifieds-scraper/scraper/listings"
	"classifieds-scraper/services"
	"classifieds-scraper/storage"
	"classifieds-scraper/utils"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var flags struct {
	config   string
	env      string
	variant  string
	csv      string
	db       bool
	maxPages int
	fetcher  string
	headless bool
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:           "classifieds-scraper",
	Short:         "Crawls paginated classifieds listings and extracts structured records with an LLM.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(cfg)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.config, "config", "", "YAML config file")
	f.StringVar(&flags.env, "env", ".env", "dotenv file with API keys and DB credentials")
	f.StringVar(&flags.variant, "variant", "", "record variant: vehicle or venue")
	f.StringVar(&flags.csv, "csv", "", "CSV output path")
	f.BoolVar(&flags.db, "db", false, "also store records in PostgreSQL")
	f.IntVar(&flags.maxPages, "max-pages", 0, "stop after this many pages (0 = no limit)")
	f.StringVar(&flags.fetcher, "fetcher", "", "page fetcher: chromedp or colly")
	f.BoolVar(&flags.headless, "headless", true, "run Chrome headless")
	f.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		utils.Error("%v", err)
		os.Exit(1)
	}
}

// loadConfig layers command-line flags over the file and environment config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.config, flags.env)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("variant") {
		cfg.Variant = flags.variant
	}
	if f.Changed("csv") {
		cfg.CSVPath = flags.csv
	}
	if f.Changed("db") {
		cfg.DB.Enabled = flags.db
	}
	if f.Changed("max-pages") {
		cfg.MaxPages = flags.maxPages
	}
	if f.Changed("fetcher") {
		cfg.Fetcher = flags.fetcher
	}
	if f.Changed("headless") {
		cfg.Headless = flags.headless
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(cfg *config.Config) error {
	utils.SetupLogger(os.Stdout, cfg.LogLevel)

	schema, ok := models.SchemaFor(cfg.Variant)
	if !ok {
		return fmt.Errorf("unknown variant %q", cfg.Variant)
	}

	utils.Info("Scraper starting | variant=%s fetcher=%s delay=%v max_pages=%d",
		cfg.Variant, cfg.Fetcher, cfg.PageDelay, cfg.MaxPages)

	source, err := newPageSource(cfg)
	if err != nil {
		return fmt.Errorf("could not start browser: %w", err)
	}
	crawler := scraper.NewCrawler(source)
	defer crawler.Close()

	llm, err := extract.NewLLM(extract.LLMOptions{
		BaseURL:             cfg.LLM.Endpoint(),
		APIKey:              cfg.LLM.APIKey,
		Model:               cfg.LLM.Model,
		FallbackModel:       cfg.LLM.FallbackModel,
		Temperature:         cfg.LLM.Temperature,
		MaxTokens:           cfg.LLM.MaxTokens,
		ApplyChunking:       cfg.LLM.ApplyChunking,
		ChunkTokenThreshold: cfg.LLM.ChunkTokenThreshold,
		OverlapRate:         cfg.LLM.OverlapRate,
		Concurrency:         cfg.LLM.Concurrency,
		MaxRetries:          cfg.LLM.MaxRetries,
		RetryBackoff:        cfg.LLM.RetryBackoff,
		Timeout:             cfg.LLM.Timeout,
	}, schema)
	if err != nil {
		return fmt.Errorf("invalid llm config: %w", err)
	}
	utils.Info("Extracting with %s model %s at %s", cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.Endpoint())
	if cfg.LLM.APIKey == "" {
		utils.Warn("No LLM API key configured; requests will be sent unauthenticated")
	}

	runID := uuid.New()
	sessionID := fmt.Sprintf("%s-%s", cfg.SessionName, runID.String()[:8])
	utils.Debug("Run %s using session %s", runID, sessionID)

	pageOpts := listings.PageOptions{
		BaseURL:         cfg.BaseURL,
		PageParam:       cfg.PageParam,
		CSSSelector:     cfg.CSSSelector,
		NoResultsMarker: cfg.NoResultsMarker,
		SessionID:       sessionID,
	}
	driverOpts := listings.DriverOptions{
		PageDelay:        cfg.PageDelay,
		EmptyPageRetries: cfg.EmptyPageRetries,
		MaxPages:         cfg.MaxPages,
	}

	// The crawl is not cancellable: it runs until the listings end.
	ctx := context.Background()
	start := time.Now()

	var crawlErr error
	switch cfg.Variant {
	case "venue":
		crawlErr = runCrawl[models.Venue](ctx, cfg, crawler, llm, schema, pageOpts, driverOpts, runID, storage.VenueSink)
	default:
		crawlErr = runCrawl[models.Vehicle](ctx, cfg, crawler, llm, schema, pageOpts, driverOpts, runID, storage.VehicleSink)
	}

	llm.ShowUsage()
	utils.Info("Finished in %s", time.Since(start).Round(time.Second))
	return crawlErr
}

func newPageSource(cfg *config.Config) (scraper.PageSource, error) {
	opts := browser.Options{
		Headless:       cfg.Headless,
		RequestTimeout: cfg.RequestTimeout,
		RenderWait:     cfg.RenderWait,
	}
	if cfg.Fetcher == "colly" {
		return browser.NewHTTPSession(opts), nil
	}
	session, err := browser.NewSession(opts)
	if err != nil {
		return nil, err
	}
	return session, nil
}

type dbSinkFunc[T models.Record] func(w *storage.PostgresWriter, runID uuid.UUID, mode string) *storage.PostgresSink[T]

func runCrawl[T models.Record](
	ctx context.Context,
	cfg *config.Config,
	crawler *scraper.Crawler,
	llm *extract.LLM,
	schema models.Schema,
	pageOpts listings.PageOptions,
	driverOpts listings.DriverOptions,
	runID uuid.UUID,
	dbSink dbSinkFunc[T],
) error {
	targets := []storage.Target[T]{
		{Name: "csv", Saver: storage.NewCSVWriter[T](cfg.CSVPath, schema)},
	}

	if cfg.DB.Enabled {
		pg, err := openPostgres(ctx, cfg)
		if err != nil {
			utils.Error("PostgreSQL disabled for this run: %v", err)
		} else {
			defer pg.Close()
			targets = append(targets, storage.Target[T]{
				Name:     "postgres",
				Saver:    dbSink(pg, runID, cfg.DB.CommitMode),
				Optional: true,
			})
		}
	}

	processor := listings.NewPageProcessor[T](crawler, llm, schema, pageOpts)
	driver := listings.NewDriver[T](processor, storage.NewFanout(targets...), driverOpts)

	result, err := driver.Run(ctx)
	printSummary(cfg, result.Records, result.LastPage, result.Reason)
	if len(result.Records) > 0 {
		services.PrintReport(fmt.Sprintf("%s market insights", schema.Name), services.GenerateReport(result.Records))
	}
	return err
}

func openPostgres(ctx context.Context, cfg *config.Config) (*storage.PostgresWriter, error) {
	pg, err := storage.NewPostgresWriter(ctx, cfg.DB.DSN())
	if err != nil {
		return nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	utils.Success("Connected to PostgreSQL (%s commit mode)", cfg.DB.CommitMode)
	return pg, nil
}

func printSummary[T models.Record](cfg *config.Config, records []T, lastPage int, reason listings.StopReason) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║                CRAWL COMPLETE                ║")
	fmt.Println("╠══════════════════════════════════════════════╣")
	fmt.Printf("║  Variant        : %-26s ║\n", cfg.Variant)
	fmt.Printf("║  Total records  : %-26d ║\n", len(records))
	fmt.Printf("║  Last page      : %-26d ║\n", lastPage)
	fmt.Printf("║  Stopped        : %-26s ║\n", reason)
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Println()
}
