// Package scraper discovers PDF links on the configured study pages and
// downloads them into the local PDF directory, recording provenance in the
// manifest.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/manifest"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Scraper owns its HTTP client for the duration of one run; there is no
// process-wide session state.
type Scraper struct {
	client        *http.Client
	manifest      *manifest.Store
	downloadDir   string
	pageDelay     time.Duration
	downloadDelay time.Duration
	workers       int
}

type Options struct {
	PageDelay     time.Duration
	DownloadDelay time.Duration
	Workers       int
}

func New(downloadDir string, m *manifest.Store, opts Options) *Scraper {
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	return &Scraper{
		client:        &http.Client{Timeout: 60 * time.Second},
		manifest:      m,
		downloadDir:   downloadDir,
		pageDelay:     opts.PageDelay,
		downloadDelay: opts.DownloadDelay,
		workers:       opts.Workers,
	}
}

// ExtractPDFLinks collects PDF URLs referenced by anchor, link, iframe, embed
// and object tags, resolved against base. The match is a case-insensitive
// ".pdf" extension check on the resolved URL path.
func ExtractPDFLinks(r io.Reader, base *url.URL) ([]string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := map[string]struct{}{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			var ref string
			switch n.Data {
			case "a", "link":
				ref = attrValue(n, "href")
			case "iframe", "embed":
				ref = attrValue(n, "src")
			case "object":
				ref = attrValue(n, "data")
			}
			if ref != "" {
				if u, err := base.Parse(ref); err == nil && isPDFURL(u) {
					seen[u.String()] = struct{}{}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	links := make([]string, 0, len(seen))
	for u := range seen {
		links = append(links, u)
	}
	sort.Strings(links)
	return links, nil
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func isPDFURL(u *url.URL) bool {
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}

// SanitizeFilename derives a filesystem-safe name from a PDF URL.
func SanitizeFilename(rawURL string) string {
	name := "download.pdf"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			name = base
		}
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// uniqueFilename suffixes the desired name until it no longer collides with a
// manifest entry for a different URL. Manifest entries are never overwritten.
func uniqueFilename(entries map[string]string, desired, sourceURL string) string {
	if existing, ok := entries[desired]; !ok || existing == sourceURL {
		return desired
	}
	stem := strings.TrimSuffix(desired, filepath.Ext(desired))
	ext := filepath.Ext(desired)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if existing, ok := entries[candidate]; !ok || existing == sourceURL {
			return candidate
		}
	}
}

// Run scrapes every seed URL for PDF links, downloads what is not already on
// disk and saves the updated manifest. Individual page or download failures
// are logged and skipped; the returned slice holds the local paths of every
// PDF now present.
func (s *Scraper) Run(ctx context.Context, seedURLs []string) ([]string, error) {
	if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	entries, err := s.manifest.Load()
	if err != nil {
		return nil, err
	}

	var pdfURLs []string
	found := map[string]struct{}{}
	for i, seed := range seedURLs {
		if i > 0 {
			if err := sleep(ctx, s.pageDelay); err != nil {
				return nil, err
			}
		}
		links, err := s.scrapePage(ctx, seed)
		if err != nil {
			log.Error().Err(err).Str("url", seed).Msg("Failed to scrape page")
			continue
		}
		for _, link := range links {
			if _, ok := found[link]; !ok {
				found[link] = struct{}{}
				pdfURLs = append(pdfURLs, link)
			}
		}
	}
	log.Info().Int("count", len(pdfURLs)).Msg("Discovered PDF links")

	var (
		mu      sync.Mutex
		paths   []string
		limiter = newLimiter(s.downloadDelay)
	)
	defer limiter.stop()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, pdfURL := range pdfURLs {
		mu.Lock()
		filename := uniqueFilename(entries, SanitizeFilename(pdfURL), pdfURL)
		entries[filename] = pdfURL
		mu.Unlock()

		dest := filepath.Join(s.downloadDir, filename)
		if _, err := os.Stat(dest); err == nil {
			log.Debug().Str("file", filename).Msg("Already downloaded")
			mu.Lock()
			paths = append(paths, dest)
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			if err := limiter.wait(gctx); err != nil {
				return err
			}
			if err := s.download(gctx, pdfURL, dest); err != nil {
				// A failed download never fails the batch.
				log.Error().Err(err).Str("url", pdfURL).Msg("Failed to download PDF")
				mu.Lock()
				delete(entries, filename)
				mu.Unlock()
				return nil
			}
			log.Info().Str("file", filename).Msg("Downloaded")
			mu.Lock()
			paths = append(paths, dest)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.manifest.Save(entries); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Scraper) scrapePage(ctx context.Context, pageURL string) ([]string, error) {
	log.Info().Str("url", pageURL).Msg("Scraping page")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	base := resp.Request.URL
	return ExtractPDFLinks(resp.Body, base)
}

func (s *Scraper) download(ctx context.Context, pdfURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return err
	}

	// Reject corrupt or truncated downloads before they reach extraction.
	if err := api.ValidateFile(dest, nil); err != nil {
		os.Remove(dest)
		return fmt.Errorf("invalid pdf: %w", err)
	}
	return nil
}

type limiter struct {
	ticker *time.Ticker
}

func newLimiter(interval time.Duration) *limiter {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &limiter{ticker: time.NewTicker(interval)}
}

func (l *limiter) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ticker.C:
		return nil
	}
}

func (l *limiter) stop() { l.ticker.Stop() }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
