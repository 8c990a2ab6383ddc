package listings

import (
	"classifieds-scraper/models"
	"classifieds-scraper/utils"
	"context"
	"fmt"
	"time"
)

// Processor produces one page of records. *PageProcessor implements it.
type Processor[T models.Record] interface {
	Process(ctx context.Context, page int, seen SeenSet) PageResult[T]
}

// Sink receives the whole run's records once, after the crawl ends.
type Sink[T models.Record] interface {
	Save(ctx context.Context, records []T) error
}

type StopReason string

const (
	StopNoMoreResults StopReason = "no_more_results"
	StopEmptyPage     StopReason = "empty_page"
	StopMaxPages      StopReason = "max_pages"
	StopCancelled     StopReason = "cancelled"
)

type DriverOptions struct {
	// PageDelay is the fixed pause between page requests.
	PageDelay time.Duration
	// EmptyPageRetries is how many times a page that yielded no records is
	// fetched again before the crawl treats it as the end of the listings.
	EmptyPageRetries int
	// MaxPages caps the crawl; 0 means no cap.
	MaxPages int
}

type RunResult[T models.Record] struct {
	Records      []T
	Seen         SeenSet
	LastPage     int
	PagesFetched int
	Reason       StopReason
}

type Driver[T models.Record] struct {
	processor Processor[T]
	sink      Sink[T]
	opts      DriverOptions
}

func NewDriver[T models.Record](processor Processor[T], sink Sink[T], opts DriverOptions) *Driver[T] {
	return &Driver[T]{
		processor: processor,
		sink:      sink,
		opts:      opts,
	}
}

// Run crawls from page 1 until the site reports no more results or a page
// stays empty after its retries, then hands every record to the sink in one
// call. Nothing is persisted when the run collected no records.
func (d *Driver[T]) Run(ctx context.Context) (RunResult[T], error) {
	result := RunResult[T]{Seen: NewSeenSet()}
	page := 1
	retriesLeft := d.opts.EmptyPageRetries

	for {
		result.LastPage = page
		pr := d.processor.Process(ctx, page, result.Seen)
		result.PagesFetched++

		if pr.NoMoreResults {
			utils.Info("No more results found. Ending the crawl.")
			result.Reason = StopNoMoreResults
			break
		}

		if len(pr.Records) == 0 {
			if retriesLeft > 0 {
				retriesLeft--
				utils.Warn("Page %d yielded no records, retrying (%d retries left)", page, retriesLeft)
				if err := utils.Pause(ctx, d.opts.PageDelay); err != nil {
					result.Reason = StopCancelled
					break
				}
				continue
			}
			utils.Warn("No records found on page %d. Ending the crawl.", page)
			result.Reason = StopEmptyPage
			break
		}

		result.Records = append(result.Records, pr.Records...)
		retriesLeft = d.opts.EmptyPageRetries

		if d.opts.MaxPages > 0 && page >= d.opts.MaxPages {
			utils.Info("Reached the page limit (%d). Ending the crawl.", d.opts.MaxPages)
			result.Reason = StopMaxPages
			break
		}

		page++
		if err := utils.Pause(ctx, d.opts.PageDelay); err != nil {
			result.Reason = StopCancelled
			break
		}
	}

	if len(result.Records) == 0 {
		utils.Warn("No records found.")
		return result, nil
	}

	utils.Success("Total records collected: %d over %d pages", len(result.Records), result.LastPage)
	if d.sink == nil {
		return result, nil
	}
	if err := d.sink.Save(ctx, result.Records); err != nil {
		return result, fmt.Errorf("failed to save %d records: %w", len(result.Records), err)
	}
	return result, nil
}
