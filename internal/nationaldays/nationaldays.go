// Package nationaldays scrapes the day's named observances from nationaldaycalendar.com.
package nationaldays

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultBaseURL = "https://www.nationaldaycalendar.com"

	fetchTimeout = 10 * time.Second
	cardSelector = ".m-card--header a"

	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.9"
)

// NationalDay is one observance in page order. Occurrence is empty when the
// listing carries no qualifier such as "third Tuesday".
type NationalDay struct {
	Name       string
	URL        string
	Occurrence string
}

// Sections of the page that share the card markup but are not observances.
var denylist = []string{
	"birthdays and events",
	"on this day",
	"historical events",
	"celebrity birthdays",
}

// Tried in order; the first one present splits name from occurrence.
var separators = []string{" | ", " - ", "| ", "- "}

// Stage identifies where a fetch failed.
type Stage string

const (
	StageRequest Stage = "request"
	StageStatus  Stage = "status"
	StageParse   Stage = "parse"
	StageEmpty   Stage = "empty"
)

// FetchError carries enough context to diagnose a failed scrape from the log alone.
type FetchError struct {
	Stage  Stage
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Stage {
	case StageRequest:
		return fmt.Sprintf("failed to fetch national days from %s: %v", e.URL, e.Err)
	case StageStatus:
		return fmt.Sprintf("national days page %s returned HTTP %d", e.URL, e.Status)
	case StageParse:
		return fmt.Sprintf("error parsing national days HTML from %s: %v", e.URL, e.Err)
	case StageEmpty:
		return fmt.Sprintf("no national days found at %s", e.URL)
	default:
		return fmt.Sprintf("national days %s: %v", e.Stage, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// SourceURL builds {base}/{month}/{month}-{day}, e.g. .../july/july-4.
func SourceURL(base string, day time.Time) string {
	month := strings.ToLower(day.Month().String())
	return fmt.Sprintf("%s/%s/%s-%d", strings.TrimRight(base, "/"), month, month, day.Day())
}

type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewFetcher(baseURL string, logger *slog.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger.With("component", "nationaldays"),
	}
}

// Fetch retrieves the observances listed for day. Every failure, including
// an empty result, is returned as a *FetchError with no days.
func (f *Fetcher) Fetch(ctx context.Context, day time.Time) ([]NationalDay, error) {
	src := SourceURL(f.baseURL, day)
	f.logger.Debug("fetching national days", "url", src)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, &FetchError{Stage: StageRequest, URL: src, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Stage: StageRequest, URL: src, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Stage: StageStatus, URL: src, Status: resp.StatusCode}
	}

	days, err := Parse(resp.Body, f.baseURL)
	if err != nil {
		return nil, &FetchError{Stage: StageParse, URL: src, Status: resp.StatusCode, Err: err}
	}
	if len(days) == 0 {
		return nil, &FetchError{Stage: StageEmpty, URL: src, Status: resp.StatusCode}
	}

	f.logger.Debug("national days found", "count", len(days))
	return days, nil
}

// Parse extracts observances from a listing page. Relative links are
// resolved against base; a card without a link gets "#".
func Parse(r io.Reader, base string) ([]NationalDay, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	var days []NationalDay
	doc.Find(cardSelector).Each(func(_ int, s *goquery.Selection) {
		text := collapseSpace(s.Text())
		if text == "" || denied(text) || !isObservance(text) {
			return
		}
		name, occurrence := splitOccurrence(text)
		href, _ := s.Attr("href")
		days = append(days, NationalDay{
			Name:       name,
			URL:        resolveHref(baseURL, href),
			Occurrence: occurrence,
		})
	})
	return days, nil
}

func denied(text string) bool {
	lower := strings.ToLower(text)
	for _, d := range denylist {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

func isObservance(text string) bool {
	upper := strings.ToUpper(text)
	return strings.HasPrefix(upper, "NATIONAL") || strings.HasPrefix(upper, "INTERNATIONAL")
}

func splitOccurrence(text string) (string, string) {
	for _, sep := range separators {
		if name, occ, ok := strings.Cut(text, sep); ok {
			name, occ = strings.TrimSpace(name), strings.TrimSpace(occ)
			if name != "" {
				return name, occ
			}
		}
	}
	return text, ""
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return "#"
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
