package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bilgisen/newstrust/internal/models"
	"github.com/go-resty/resty/v2"
)

// maxConcurrentFetches bounds the number of feeds downloaded at once.
const maxConcurrentFetches = 4

type Fetcher struct {
	client *resty.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(3).
			SetRetryWaitTime(2 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			}),
	}
}

// FetchFeed retrieves a JSON feed. The body may be an array of items or a
// single item.
func (f *Fetcher) FetchFeed(ctx context.Context, url string) ([]models.FeedItem, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed from %s: %w", url, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), url)
	}

	var items []models.FeedItem
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		var single models.FeedItem
		if singleErr := json.Unmarshal(resp.Body(), &single); singleErr != nil {
			return nil, fmt.Errorf("failed to parse feed response from %s: %w", url, err)
		}
		items = []models.FeedItem{single}
	}
	return items, nil
}

// FetchMultipleFeeds fetches urls concurrently. Items of the feeds that
// succeeded are returned together with the joined errors of those that
// did not.
func (f *Fetcher) FetchMultipleFeeds(ctx context.Context, urls []string) ([]models.FeedItem, error) {
	type result struct {
		items []models.FeedItem
		err   error
	}

	results := make(chan result, len(urls))
	semaphore := make(chan struct{}, maxConcurrentFetches)

	for _, url := range urls {
		go func(u string) {
			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				results <- result{err: ctx.Err()}
				return
			}
			defer func() { <-semaphore }()

			items, err := f.FetchFeed(ctx, u)
			results <- result{items: items, err: err}
		}(url)
	}

	var all []models.FeedItem
	var errs []error
	for range urls {
		res := <-results
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		all = append(all, res.items...)
	}
	return all, errors.Join(errs...)
}
