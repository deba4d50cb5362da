package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/seenimoa/krxbrief/pkg/models"
)

// GoogleNewsSearchURL is the Korean-edition news search feed.
const GoogleNewsSearchURL = "https://news.google.com/rss/search"

// News fetches company news from a search RSS feed.
type News struct {
	searchURL string
	client    *http.Client
	parser    *gofeed.Parser
	cache     *cache.Cache
	limiter   *rate.Limiter
}

// NewsOption configures a News source.
type NewsOption func(*News)

// WithNewsSearchURL overrides the feed search endpoint.
func WithNewsSearchURL(u string) NewsOption {
	return func(n *News) { n.searchURL = u }
}

// WithNewsHTTPClient sets the HTTP client.
func WithNewsHTTPClient(c *http.Client) NewsOption {
	return func(n *News) { n.client = c }
}

// WithNewsTimeout sets the per-request timeout in seconds.
func WithNewsTimeout(sec int) NewsOption {
	return func(n *News) { n.client = clientWithTimeout(sec) }
}

// NewNews creates a news source over the Korean news search feed.
func NewNews(opts ...NewsOption) *News {
	n := &News{
		searchURL: GoogleNewsSearchURL,
		client:    HTTPClient,
		parser:    gofeed.NewParser(),
		cache:     cache.New(10*time.Minute, 30*time.Minute),
		limiter:   rate.NewLimiter(rate.Limit(2), 1), // conservative: 2 req/s
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the source name.
func (n *News) Name() string { return "Google News" }

// CompanyNews returns up to limit articles matching query, newest first.
// limit <= 0 returns every item of the feed.
func (n *News) CompanyNews(ctx context.Context, query string, limit int) ([]models.NewsArticle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("news: %w", ErrNotFound)
	}

	cacheKey := fmt.Sprintf("news:%s:%d", query, limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", "ko")
	params.Set("gl", "KR")
	params.Set("ceid", "KR:ko")

	body, _, err := doGet(ctx, n.client, n.searchURL+"?"+params.Encode(), map[string]string{
		"Accept": "application/rss+xml, application/xml, text/xml",
	})
	if err != nil {
		return nil, fmt.Errorf("news %q: %w", query, err)
	}
	defer body.Close()

	feed, err := n.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse RSS for %q: %w", query, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		title, source := splitSource(item.Title)
		a := models.NewsArticle{
			Title:   title,
			URL:     item.Link,
			Source:  source,
			Summary: cleanHTML(item.Description),
		}
		if a.Source == "" && item.Author != nil {
			a.Source = item.Author.Name
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	log.Debug().Str("query", query).Int("articles", len(articles)).Msg("fetched news feed")
	n.cache.Set(cacheKey, articles, cache.DefaultExpiration)
	return articles, nil
}

// --- helpers ---

// splitSource separates the " - 언론사" suffix search feeds append to titles.
func splitSource(title string) (string, string) {
	title = strings.TrimSpace(title)
	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
