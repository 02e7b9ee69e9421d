package port

import "context"

// Page is a fetched web resource.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// SitemapSource lists page URLs published by a site's sitemap.
type SitemapSource interface {
	URLs(ctx context.Context, siteURL string) ([]string, error)
}

// LinkCrawler discovers same-site HTML pages starting from a seed URL.
type LinkCrawler interface {
	Crawl(ctx context.Context, seed string) ([]string, error)
}
