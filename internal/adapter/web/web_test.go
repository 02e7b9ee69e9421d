package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<p>hi</p>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, "test-agent")

	page, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, 200, page.StatusCode)
	assert.Equal(t, "text/html", page.ContentType)
	assert.Equal(t, "<p>hi</p>", string(page.Body))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.StatusCode)
}

func TestExtractLinks(t *testing.T) {
	base, _ := url.Parse("https://example.com/docs/")
	body := []byte(`<a href="intro">a</a><a href="/about#team">b</a><a href="#top">c</a>
<a href="mailto:x@example.com">d</a><a href="https://other.org/">e</a>`)

	links := ExtractLinks(base, body)
	assert.Equal(t, []string{
		"https://example.com/docs/intro",
		"https://example.com/about",
		"https://other.org/",
	}, links)
}

func TestValidSitemap(t *testing.T) {
	assert.False(t, ValidSitemap(nil))
	assert.False(t, ValidSitemap([]string{"https://a.com/"}))
	assert.False(t, ValidSitemap([]string{"https://a.com/", "ftp://a.com/x"}))
	assert.False(t, ValidSitemap([]string{"https://a.com/", "/relative"}))
	assert.True(t, ValidSitemap([]string{"https://a.com/", "http://a.com/b"}))
}

func newSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".xml") {
			w.Header().Set("Content-Type", "application/xml")
		} else if strings.HasSuffix(r.URL.Path, ".txt") || strings.HasSuffix(r.URL.Path, ".pdf") {
			w.Header().Set("Content-Type", "text/plain")
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		fmt.Fprint(w, body)
	}))
}

func TestCrawlerStaysOnHost(t *testing.T) {
	external := newSite(t, map[string]string{"/": `<p>external</p>`})
	defer external.Close()

	site := newSite(t, map[string]string{
		"/":         `<a href="/a">a</a><a href="/b#frag">b</a><a href="` + external.URL + `/">ext</a>`,
		"/a":        `<a href="/">home</a><a href="/c">c</a><a href="/file.pdf">pdf</a>`,
		"/b":        `<a href="/a">a</a><a href="/broken">broken</a>`,
		"/c":        `<p>leaf</p>`,
		"/file.pdf": "binary",
	})
	defer site.Close()

	c := NewCrawler(NewHTTPFetcher(time.Second, ""), 20, nil)
	pages, err := c.Crawl(context.Background(), site.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, []string{site.URL + "/", site.URL + "/a", site.URL + "/b", site.URL + "/c"}, pages)
	for _, p := range pages {
		assert.True(t, strings.HasPrefix(p, site.URL), p)
	}
}

func TestCrawlerSkipsRedirectsOffHost(t *testing.T) {
	var foreignHits atomic.Int32
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignHits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<p>foreign</p>`)
	}))
	defer foreign.Close()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/out">out</a><a href="/in">in</a>`)
		case "/out":
			http.Redirect(w, r, foreign.URL+"/landing", http.StatusFound)
		case "/in":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<p>in</p>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer site.Close()

	t.Run("plain fetcher drops the page", func(t *testing.T) {
		c := NewCrawler(NewHTTPFetcher(time.Second, ""), 20, nil)
		pages, err := c.Crawl(context.Background(), site.URL+"/")
		require.NoError(t, err)
		assert.Equal(t, []string{site.URL + "/", site.URL + "/in"}, pages)
	})

	t.Run("same host fetcher never leaves", func(t *testing.T) {
		foreignHits.Store(0)
		c := NewCrawler(NewHTTPFetcher(time.Second, "").SameHostOnly(), 20, nil)
		pages, err := c.Crawl(context.Background(), site.URL+"/")
		require.NoError(t, err)
		assert.Equal(t, []string{site.URL + "/", site.URL + "/in"}, pages)
		assert.Equal(t, int32(0), foreignHits.Load())
	})
}

func TestSameHostOnlyFetcher(t *testing.T) {
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "foreign")
	}))
	defer foreign.Close()
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/away":
			http.Redirect(w, r, foreign.URL+"/", http.StatusMovedPermanently)
		case "/moved":
			http.Redirect(w, r, "/here", http.StatusFound)
		default:
			fmt.Fprint(w, "here")
		}
	}))
	defer site.Close()

	f := NewHTTPFetcher(time.Second, "").SameHostOnly()

	_, err := f.Fetch(context.Background(), site.URL+"/away")
	assert.ErrorIs(t, err, ErrCrossHostRedirect)

	page, err := f.Fetch(context.Background(), site.URL+"/moved")
	require.NoError(t, err)
	assert.Equal(t, site.URL+"/here", page.URL)
	assert.Equal(t, "here", string(page.Body))
}

func TestCrawlerMaxPages(t *testing.T) {
	pages := map[string]string{}
	for i := 0; i < 30; i++ {
		pages[fmt.Sprintf("/p%d", i)] = fmt.Sprintf(`<a href="/p%d">next</a><a href="/p%d">skip</a>`, i+1, i+2)
	}
	pages["/"] = `<a href="/p0">start</a>`
	site := newSite(t, pages)
	defer site.Close()

	c := NewCrawler(NewHTTPFetcher(time.Second, ""), 5, nil)
	got, err := c.Crawl(context.Background(), site.URL+"/")
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestCrawlerInvalidSeed(t *testing.T) {
	c := NewCrawler(NewHTTPFetcher(time.Second, ""), 0, nil)
	_, err := c.Crawl(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestSitemapReaderURLSet(t *testing.T) {
	var site *httptest.Server
	site = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>%[1]s/</loc></url>
<url><loc> %[1]s/about </loc></url>
<url><loc>%[1]s/</loc></url>
</urlset>`, site.URL)
	}))
	defer site.Close()

	r := NewSitemapReader(NewHTTPFetcher(time.Second, ""), nil)
	urls, err := r.URLs(context.Background(), site.URL+"/some/page")
	require.NoError(t, err)
	assert.Equal(t, []string{site.URL + "/", site.URL + "/about"}, urls)
}

func TestSitemapReaderRobotsAndIndex(t *testing.T) {
	var site *httptest.Server
	site = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprintf(w, "User-agent: *\nDisallow: /private\nSitemap: %s/index.xml\n", site.URL)
		case "/index.xml":
			fmt.Fprintf(w, `<sitemapindex><sitemap><loc>%[1]s/one.xml</loc></sitemap><sitemap><loc>%[1]s/two.xml</loc></sitemap></sitemapindex>`, site.URL)
		case "/one.xml":
			fmt.Fprintf(w, `<urlset><url><loc>%s/a</loc></url></urlset>`, site.URL)
		case "/two.xml":
			fmt.Fprintf(w, `<urlset><url><loc>%s/b</loc></url></urlset>`, site.URL)
		default:
			http.NotFound(w, r)
		}
	}))
	defer site.Close()

	r := NewSitemapReader(NewHTTPFetcher(time.Second, ""), nil)
	urls, err := r.URLs(context.Background(), site.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{site.URL + "/a", site.URL + "/b"}, urls)
}

func TestSitemapReaderMissing(t *testing.T) {
	site := newSite(t, map[string]string{"/": "<p>home</p>"})
	defer site.Close()

	r := NewSitemapReader(NewHTTPFetcher(time.Second, ""), nil)
	_, err := r.URLs(context.Background(), site.URL)
	assert.Error(t, err)
}
