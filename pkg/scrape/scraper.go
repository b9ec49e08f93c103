// Package scrape fetches and dissects Wikipedia articles into the
// title, summary, section list, and body text the generation pipeline
// consumes.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/wikiquiz/quizgen/pkg/logging"
)

// Article is the dissected content of one source page.
type Article struct {
	Title    string
	Summary  string
	Sections []string
	BodyText string
}

// Fetcher retrieves and dissects a source article.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Article, error)
}

// Options configures a Scraper.
type Options struct {
	// Timeout per fetch. Defaults to 20s.
	Timeout time.Duration

	// UserAgent sent with every request.
	UserAgent string

	// AllowedHost restricts fetchable URLs; a URL must contain this
	// substring. Defaults to "wikipedia.org".
	AllowedHost string
}

// Scraper fetches Wikipedia articles over HTTP with bounded retries.
type Scraper struct {
	client      *http.Client
	userAgent   string
	allowedHost string
	logger      zerolog.Logger
}

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "QuizGenBot/1.0"
	defaultHost      = "wikipedia.org"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NewScraper creates a Scraper with the given options.
func NewScraper(opts Options) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.AllowedHost == "" {
		opts.AllowedHost = defaultHost
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = nil

	return &Scraper{
		client:      rc.StandardClient(),
		userAgent:   opts.UserAgent,
		allowedHost: opts.AllowedHost,
		logger:      logging.NewLogger("scraper"),
	}
}

// Fetch downloads url and extracts its title, summary, section headings,
// and whitespace-normalized body text.
func (s *Scraper) Fetch(ctx context.Context, url string) (*Article, error) {
	if !strings.Contains(url, s.allowedHost) {
		return nil, fmt.Errorf("only %s article URLs are supported", s.allowedHost)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch article: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse article HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())

	content := doc.Find("#mw-content-text")
	if content.Length() == 0 {
		// Not the expected article layout; fall back to readability on
		// the whole document.
		s.logger.Debug().Str("url", url).Msg("content container missing, using readability fallback")
		return s.fetchReadable(ctx, url, title)
	}

	var paragraphs []string
	content.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := normalizeSpace(sel.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	// paragraphs holds non-empty text only, so an empty join means the
	// article has no prose at all and fails the body check below.
	summary := strings.Join(firstN(paragraphs, 2), " ")

	var sections []string
	content.Find("h2").Each(func(_ int, sel *goquery.Selection) {
		heading := normalizeSpace(sel.Text())
		if heading != "" && !strings.Contains(heading, "References") {
			sections = append(sections, heading)
		}
	})

	body := normalizeSpace(strings.Join(paragraphs, " "))
	if body == "" {
		return nil, fmt.Errorf("could not extract article content from %s", url)
	}

	s.logger.Debug().
		Str("url", url).
		Int("sections", len(sections)).
		Int("body_len", len(body)).
		Msg("Article fetched")

	return &Article{
		Title:    title,
		Summary:  summary,
		Sections: sections,
		BodyText: body,
	}, nil
}

// fetchReadable extracts body text via go-readability for pages without
// the expected Wikipedia content container.
func (s *Scraper) fetchReadable(ctx context.Context, url, title string) (*Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	article, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return nil, fmt.Errorf("could not extract article content from %s: %w", url, err)
	}

	body := normalizeSpace(article.TextContent)
	if body == "" {
		return nil, fmt.Errorf("could not extract article content from %s", url)
	}

	if title == "" {
		title = article.Title
	}
	summary := body
	if len(summary) > 500 {
		summary = summary[:500]
	}

	return &Article{
		Title:    title,
		Summary:  summary,
		Sections: nil,
		BodyText: body,
	}, nil
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func firstN(items []string, n int) []string {
	if len(items) < n {
		return items
	}
	return items[:n]
}
