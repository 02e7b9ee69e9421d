package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"ragdesk/internal/adapter/web"
	"ragdesk/internal/domain"
	"ragdesk/internal/port"
)

// WebsiteUseCase ingests single pages and whole sites.
type WebsiteUseCase struct {
	ingest  *IngestUseCase
	sitemap port.SitemapSource
	crawler port.LinkCrawler
	logger  *zap.Logger
}

// NewWebsiteUseCase creates a new website use case.
func NewWebsiteUseCase(ingest *IngestUseCase, sitemap port.SitemapSource, crawler port.LinkCrawler, logger *zap.Logger) *WebsiteUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebsiteUseCase{
		ingest:  ingest,
		sitemap: sitemap,
		crawler: crawler,
		logger:  logger,
	}
}

// DefaultWebProjectID derives a project id from the host of rawURL.
func DefaultWebProjectID(rawURL string) string {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	return "web_gui_" + strings.ReplaceAll(host, ".", "_")
}

// IngestWebPage ingests the page at req.Path.
func (w *WebsiteUseCase) IngestWebPage(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if !web.IsHTTP(req.Path) {
		return nil, fmt.Errorf("not an http(s) url: %s", req.Path)
	}
	result := &IngestResult{}

	doc, err := w.ingest.converter.Convert(ctx, req.Path)
	if err != nil {
		w.logger.Warn("could not convert web page", zap.String("url", req.Path), zap.Error(err))
		result.fail(req.Path, err)
		return result, nil
	}
	w.ingest.ingestDocument(ctx, doc, req.Path, domain.FileTypeWebpage, req, result)
	return result, nil
}

// IngestSite ingests every page listed by the site's sitemap. When the
// sitemap is missing, has fewer than two entries or yields nothing to store,
// it falls back to crawling same-host links from req.Path.
func (w *WebsiteUseCase) IngestSite(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if !web.IsHTTP(req.Path) {
		return nil, fmt.Errorf("not an http(s) url: %s", req.Path)
	}

	urls, err := w.sitemap.URLs(ctx, req.Path)
	switch {
	case err != nil:
		w.logger.Warn("sitemap unavailable, falling back to crawler", zap.String("url", req.Path), zap.Error(err))
	case !web.ValidSitemap(urls):
		w.logger.Warn("sitemap invalid or insufficient, falling back to crawler",
			zap.String("url", req.Path),
			zap.Int("urls", len(urls)))
	default:
		w.logger.Info("sitemap found", zap.String("url", req.Path), zap.Int("urls", len(urls)))
		result := w.ingestPages(ctx, urls, req)
		if result.Chunks > 0 || result.Duplicates > 0 {
			return result, nil
		}
		w.logger.Warn("no chunks created from sitemap pages, falling back to crawler", zap.String("url", req.Path))
	}

	links, err := w.crawler.Crawl(ctx, req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to crawl %s: %w", req.Path, err)
	}
	w.logger.Info("internal pages found", zap.String("url", req.Path), zap.Int("pages", len(links)))
	return w.ingestPages(ctx, links, req), nil
}

func (w *WebsiteUseCase) ingestPages(ctx context.Context, urls []string, req IngestRequest) *IngestResult {
	result := &IngestResult{}
	for i, conv := range w.ingest.converter.ConvertAll(ctx, urls) {
		if conv.Err != nil {
			w.logger.Warn("conversion failed", zap.String("url", conv.Source), zap.Error(conv.Err))
			result.fail(conv.Source, conv.Err)
		} else {
			w.ingest.ingestDocument(ctx, conv.Document, conv.Source, domain.FileTypeWebpage, req, result)
		}
		req.progress(i+1, len(urls), conv.Source)
	}
	w.logger.Info("site processed", zap.String("url", req.Path), zap.Int("chunks", result.Chunks))
	return result
}
