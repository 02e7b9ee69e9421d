package web

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"ragdesk/internal/port"
)

const DefaultMaxPages = 20

// Crawler walks same-host links breadth first.
type Crawler struct {
	fetcher  port.Fetcher
	maxPages int
	logger   *zap.Logger
}

func NewCrawler(fetcher port.Fetcher, maxPages int, logger *zap.Logger) *Crawler {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{fetcher: fetcher, maxPages: maxPages, logger: logger}
}

// Crawl returns the HTML pages reachable from seed on the seed's host, in
// visit order and at most maxPages of them. Pages that fail to load, are
// not HTML or end up on another host after redirects are skipped.
func (c *Crawler) Crawl(ctx context.Context, seed string) ([]string, error) {
	start, err := url.Parse(seed)
	if err != nil || start.Host == "" {
		return nil, fmt.Errorf("invalid seed url %q", seed)
	}
	start.Fragment = ""
	start.RawFragment = ""
	host := strings.ToLower(start.Host)

	queue := []string{start.String()}
	queued := map[string]bool{start.String(): true}
	visited := make(map[string]bool)
	var pages []string

	for len(queue) > 0 && len(pages) < c.maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		page, err := c.fetcher.Fetch(ctx, current)
		if err != nil {
			c.logger.Warn("error crawling page", zap.String("url", current), zap.Error(err))
			continue
		}
		if final, err := url.Parse(page.URL); err == nil && final.Host != "" && strings.ToLower(final.Host) != host {
			c.logger.Warn("skipping page redirected off host",
				zap.String("url", current),
				zap.String("final_url", page.URL))
			continue
		}
		if !strings.Contains(strings.ToLower(page.ContentType), "text/html") {
			c.logger.Debug("skipping non-html page",
				zap.String("url", current),
				zap.String("content_type", page.ContentType))
			continue
		}

		pages = append(pages, current)
		c.logger.Debug("crawled page", zap.String("url", current), zap.Int("count", len(pages)))

		base, err := url.Parse(current)
		if err != nil {
			continue
		}
		for _, link := range ExtractLinks(base, page.Body) {
			u, err := url.Parse(link)
			if err != nil || strings.ToLower(u.Host) != host {
				continue
			}
			if visited[link] || queued[link] {
				continue
			}
			queued[link] = true
			queue = append(queue, link)
		}
	}

	return pages, nil
}
