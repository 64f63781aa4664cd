package sources

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"learnloop/internal/store"
)

const excerptRuneLimit = 600

// Result holds the outcome of an excerpt fetch run.
type Result struct {
	Fetched int
	Failed  int
}

// Fetcher downloads source pages for generated content and stores a short
// readable excerpt of each, so articles can show where their material came
// from without another network round trip.
type Fetcher struct {
	db     *store.DB
	client *http.Client
}

// NewFetcher creates a new source excerpt fetcher.
func NewFetcher(db *store.DB, timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		db: db,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchExcerpts fetches an excerpt for every source URL of the given
// generated content. Already-stored excerpts are kept; a failure on one
// domain skips the remaining URLs from that domain.
func (f *Fetcher) FetchExcerpts(userID, requestID string) (*Result, error) {
	rec, err := f.db.GetGeneratedContent(userID, requestID)
	if err != nil {
		return nil, fmt.Errorf("loading generated content: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("no generated content for request %s", requestID)
	}

	if len(rec.Sources) == 0 {
		log.Println("No sources to fetch")
		return &Result{}, nil
	}

	existing, err := f.db.GetSourceExcerpts(requestID)
	if err != nil {
		return nil, fmt.Errorf("loading stored excerpts: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, ex := range existing {
		if ex.Excerpt != nil {
			have[ex.URL] = struct{}{}
		}
	}

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for _, src := range rec.Sources {
		if _, ok := have[src]; ok {
			continue
		}

		u, _ := url.Parse(src)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			f.db.UpsertSourceExcerpt(requestID, src, nil, nil)
			result.Failed++
			continue
		}

		title, excerpt, httpErr := f.fetchExcerpt(src)
		if httpErr != nil {
			f.db.UpsertSourceExcerpt(requestID, src, nil, nil)
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP error for %s — skipping remaining from %s", src, domain)
			continue
		}

		if excerpt != "" {
			f.db.UpsertSourceExcerpt(requestID, src, optional(title), &excerpt)
			result.Fetched++
			log.Printf("Fetched excerpt for: %s", src)
		} else {
			f.db.UpsertSourceExcerpt(requestID, src, nil, nil)
			result.Failed++
			log.Printf("No extractable content from: %s", src)
		}
	}

	log.Printf("Excerpt fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	return result, nil
}

func (f *Fetcher) fetchExcerpt(pageURL string) (title, excerpt string, err error) {
	req, err := http.NewRequest("GET", pageURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", "learnloop/1.0 (source excerpts)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", nil
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) <= 100 {
		return "", "", nil
	}
	return article.Title, truncateExcerpt(text), nil
}

func truncateExcerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= excerptRuneLimit {
		return s
	}
	return string(runes[:excerptRuneLimit])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
