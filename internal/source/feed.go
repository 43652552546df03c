// Package source provides the per-source polling adapters consumed by
// the monitor pool. Adapters are idempotent: polling twice returns the
// same content ids for unchanged pages.
package source

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

// FeedAdapter scrapes a configured list page for headline entries.
type FeedAdapter struct {
	src     store.SourceConfig
	timeout time.Duration
}

// NewFeed creates a scraping adapter for one configured source.
func NewFeed(src store.SourceConfig, timeout time.Duration) *FeedAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FeedAdapter{src: src, timeout: timeout}
}

// Poll fetches the source page and extracts headline items in page order.
func (a *FeedAdapter) Poll(ctx context.Context) ([]types.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, &types.AdapterError{SourceID: a.src.ID, Err: err}
	}

	c := colly.NewCollector(colly.MaxDepth(1))
	c.SetRequestTimeout(a.timeout)

	var items []types.Item
	var pollErr error

	c.OnHTML(a.src.ListSelector, func(e *colly.HTMLElement) {
		title := firstText(e.DOM, a.src.TitleSelector)
		if title == "" {
			// layout rows without a headline (ads, separators)
			return
		}
		link, _ := e.DOM.Find(a.src.LinkSelector).First().Attr("href")
		link = e.Request.AbsoluteURL(link)

		items = append(items, types.Item{
			ContentID:  contentID(title, link),
			RawContent: title,
			Timestamp:  time.Now(),
		})
	})

	c.OnError(func(_ *colly.Response, err error) {
		pollErr = err
	})

	if err := c.Visit(a.src.URL); err != nil {
		return nil, &types.AdapterError{SourceID: a.src.ID, Err: err}
	}
	if pollErr != nil {
		return nil, &types.AdapterError{SourceID: a.src.ID, Err: pollErr}
	}

	return items, nil
}

func firstText(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}

// contentID derives a stable, comparable id from the headline and link
// so the same article dedups across polls even when page order shifts.
func contentID(title, link string) string {
	h := sha1.Sum([]byte(link + "|" + title))
	return hex.EncodeToString(h[:])
}
