package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"ragdesk/internal/port"
)

const maxSitemapDepth = 2

type urlSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// SitemapReader lists the URLs a site publishes in its sitemap.
type SitemapReader struct {
	fetcher port.Fetcher
	logger  *zap.Logger
}

func NewSitemapReader(fetcher port.Fetcher, logger *zap.Logger) *SitemapReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SitemapReader{fetcher: fetcher, logger: logger}
}

// URLs reads <origin>/sitemap.xml, falling back to the Sitemap: entries of
// robots.txt. Sitemap indexes are followed up to two levels.
func (r *SitemapReader) URLs(ctx context.Context, siteURL string) ([]string, error) {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid site url %q", siteURL)
	}
	origin := u.Scheme + "://" + u.Host

	c := &collector{seen: make(map[string]bool)}
	if err := r.read(ctx, origin+"/sitemap.xml", 0, c); err == nil && len(c.urls) > 0 {
		return c.urls, nil
	} else if err != nil {
		r.logger.Debug("sitemap.xml unavailable", zap.String("site", origin), zap.Error(err))
	}

	locations, err := r.robotsSitemaps(ctx, origin)
	if err != nil {
		return nil, fmt.Errorf("no sitemap for %s: %w", origin, err)
	}
	for _, loc := range locations {
		if err := r.read(ctx, loc, 0, c); err != nil {
			r.logger.Warn("failed to read sitemap", zap.String("sitemap", loc), zap.Error(err))
		}
	}
	if len(c.urls) == 0 {
		return nil, fmt.Errorf("no sitemap urls for %s", origin)
	}
	return c.urls, nil
}

type collector struct {
	urls []string
	seen map[string]bool
}

func (c *collector) add(loc string) {
	loc = strings.TrimSpace(loc)
	if loc == "" || c.seen[loc] {
		return
	}
	c.seen[loc] = true
	c.urls = append(c.urls, loc)
}

func (r *SitemapReader) read(ctx context.Context, loc string, depth int, c *collector) error {
	page, err := r.fetcher.Fetch(ctx, loc)
	if err != nil {
		return err
	}

	var index sitemapIndex
	if err := xml.Unmarshal(page.Body, &index); err == nil && len(index.Sitemaps) > 0 {
		if depth >= maxSitemapDepth {
			r.logger.Debug("sitemap index too deep", zap.String("sitemap", loc))
			return nil
		}
		for _, child := range index.Sitemaps {
			if err := r.read(ctx, strings.TrimSpace(child.Loc), depth+1, c); err != nil {
				r.logger.Warn("failed to read sitemap", zap.String("sitemap", child.Loc), zap.Error(err))
			}
		}
		return nil
	}

	var set urlSet
	if err := xml.Unmarshal(page.Body, &set); err != nil {
		return fmt.Errorf("parse %s: %w", loc, err)
	}
	for _, entry := range set.URLs {
		c.add(entry.Loc)
	}
	return nil
}

func (r *SitemapReader) robotsSitemaps(ctx context.Context, origin string) ([]string, error) {
	page, err := r.fetcher.Fetch(ctx, origin+"/robots.txt")
	if err != nil {
		return nil, err
	}

	var locations []string
	scanner := bufio.NewScanner(bytes.NewReader(page.Body))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "sitemap") {
			continue
		}
		if loc := strings.TrimSpace(value); loc != "" {
			locations = append(locations, loc)
		}
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("robots.txt lists no sitemap")
	}
	return locations, nil
}

// ValidSitemap reports whether urls is worth ingesting instead of crawling:
// more than one entry, all of them http(s).
func ValidSitemap(urls []string) bool {
	if len(urls) <= 1 {
		return false
	}
	for _, u := range urls {
		if !IsHTTP(u) {
			return false
		}
	}
	return true
}
