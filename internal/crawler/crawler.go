package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Config holds link checker configuration
type Config struct {
	Workers       int
	Timeout       time.Duration
	ProbeExternal bool
}

// DefaultConfig returns default link checker configuration
func DefaultConfig() *Config {
	return &Config{
		Workers: 5,
		Timeout: 10 * time.Second,
	}
}

// Checker finds broken links in content bodies. Internal links are resolved
// against the set of published slugs; external links are optionally probed
// with HEAD requests by a bounded worker pool.
type Checker struct {
	client        *http.Client
	workers       int
	timeout       time.Duration
	probeExternal bool
}

// NewChecker creates a new link checker
func NewChecker(config *Config) *Checker {
	if config == nil {
		config = DefaultConfig()
	}
	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	return &Checker{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		workers:       workers,
		timeout:       timeout,
		probeExternal: config.ProbeExternal,
	}
}

// Page is one content body to scan
type Page struct {
	ContentID string
	Body      string
}

// BrokenLink describes a link that will not resolve
type BrokenLink struct {
	ContentID  string `json:"content_id"`
	Href       string `json:"href"`
	Reason     string `json:"reason"`
	StatusCode int    `json:"status_code,omitempty"`
}

// ScanResult summarises one scan
type ScanResult struct {
	Pages    int          `json:"pages"`
	Links    int          `json:"links"`
	Probed   int          `json:"probed"`
	Broken   []BrokenLink `json:"broken"`
	Affected int          `json:"affected"`
}

const (
	ReasonEmpty      = "empty link"
	ReasonJavaScript = "javascript link"
	ReasonMalformed  = "malformed URL"
	ReasonNotFound   = "internal target not found"
	ReasonStatus     = "error status"
	ReasonFailed     = "request failed"
)

type probe struct {
	contentID string
	href      string
}

// Scan checks every link of every page. slugs is the set of published slugs
// that internal links may point at.
func (c *Checker) Scan(ctx context.Context, pages []Page, slugs map[string]bool) ScanResult {
	result := ScanResult{Pages: len(pages), Broken: []BrokenLink{}}
	var probes []probe

	for _, p := range pages {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Body))
		if err != nil {
			slog.Warn("failed to parse content body", "content_id", p.ContentID, "error", err)
			continue
		}

		doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			result.Links++

			if reason, ok := classify(href, slugs); ok {
				if reason != "" {
					result.Broken = append(result.Broken, BrokenLink{ContentID: p.ContentID, Href: href, Reason: reason})
				}
				return
			}
			probes = append(probes, probe{contentID: p.ContentID, href: strings.TrimSpace(href)})
		})
	}

	if c.probeExternal && len(probes) > 0 {
		broken, probed := c.probeAll(ctx, probes)
		result.Broken = append(result.Broken, broken...)
		result.Probed = probed
	}

	sort.SliceStable(result.Broken, func(i, j int) bool {
		if result.Broken[i].ContentID != result.Broken[j].ContentID {
			return result.Broken[i].ContentID < result.Broken[j].ContentID
		}
		return result.Broken[i].Href < result.Broken[j].Href
	})

	affected := map[string]bool{}
	for _, b := range result.Broken {
		affected[b.ContentID] = true
	}
	result.Affected = len(affected)

	return result
}

// classify decides a link without network access. ok=false means the link is
// external and needs a probe; reason is empty when the link is fine.
func classify(href string, slugs map[string]bool) (reason string, ok bool) {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)

	switch {
	case href == "" || href == "#":
		return ReasonEmpty, true
	case strings.HasPrefix(lower, "javascript:"):
		return ReasonJavaScript, true
	case strings.HasPrefix(href, "#"),
		strings.HasPrefix(lower, "mailto:"),
		strings.HasPrefix(lower, "tel:"):
		return "", true
	}

	u, err := url.Parse(href)
	if err != nil {
		return ReasonMalformed, true
	}

	if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
		slug := path.Base(strings.TrimRight(u.Path, "/"))
		if slug == "." || slug == "/" || slug == "" || path.Ext(slug) != "" {
			return "", true
		}
		if !slugs[slug] {
			return ReasonNotFound, true
		}
		return "", true
	}

	if u.Scheme == "http" || u.Scheme == "https" || strings.HasPrefix(href, "//") {
		if u.Host == "" {
			return ReasonMalformed, true
		}
		return "", false
	}

	// relative paths without a leading slash and unknown schemes are left alone
	return "", true
}

// probeAll runs HEAD requests through the worker pool. Each distinct URL is
// requested once per scan.
func (c *Checker) probeAll(ctx context.Context, probes []probe) ([]BrokenLink, int) {
	unique := map[string]bool{}
	var targets []string
	for _, p := range probes {
		target := p.href
		if strings.HasPrefix(target, "//") {
			target = "https:" + target
		}
		if !unique[target] {
			unique[target] = true
			targets = append(targets, target)
		}
	}

	queue := make(chan string)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = make(map[string]int, len(targets))
	)

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range queue {
				code := c.checkLink(ctx, target)
				mu.Lock()
				statuses[target] = code
				mu.Unlock()
			}
		}()
	}

	for _, target := range targets {
		queue <- target
	}
	close(queue)
	wg.Wait()

	var broken []BrokenLink
	for _, p := range probes {
		target := p.href
		if strings.HasPrefix(target, "//") {
			target = "https:" + target
		}
		code := statuses[target]
		switch {
		case code == 0:
			broken = append(broken, BrokenLink{ContentID: p.contentID, Href: p.href, Reason: ReasonFailed})
		case code >= 400:
			broken = append(broken, BrokenLink{ContentID: p.contentID, Href: p.href, Reason: ReasonStatus, StatusCode: code})
		}
	}
	return broken, len(targets)
}

// checkLink returns the HEAD status of a link, 0 when the request failed
func (c *Checker) checkLink(ctx context.Context, link string) int {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return 0
	}
	req.Header.Set("User-Agent", "SEO-Engine-LinkChecker/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Debug("link probe failed", "url", link, "error", err)
		return 0
	}
	defer resp.Body.Close()

	return resp.StatusCode
}

func (r ScanResult) String() string {
	return fmt.Sprintf("%d broken of %d links across %d pages", len(r.Broken), r.Links, r.Pages)
}
