package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"dhc-casetracker/internal/search"
	"dhc-casetracker/pkg/logger"
)

// FailReason classifies why both fetch strategies were exhausted.
type FailReason string

const (
	ReasonTimeout     FailReason = "timeout"
	ReasonBlocked     FailReason = "blocked"
	ReasonMalformed   FailReason = "malformed-response"
	ReasonUnreachable FailReason = "unreachable"
)

// Error is returned when the primary strategy (with its one retry) and the
// browser fallback have both failed.
type Error struct {
	Reason FailReason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s)", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the raw HTML of a court search response.
type Result struct {
	HTML      string
	Via       string // "http" or "browser"
	FetchedAt time.Time
}

// blockMarkers are body substrings indicating the court site refused the
// request rather than answering it.
var blockMarkers = []string{
	"captcha",
	"access denied",
	"unusual traffic",
	"request blocked",
	"temporarily unavailable",
	"enable javascript",
}

// minBodyLength is the floor below which a 200 response is treated as a
// block page rather than a result.
const minBodyLength = 512

// BrowserFetcher is the secondary strategy: drive a real browser through
// the search form and return the rendered HTML.
type BrowserFetcher interface {
	FetchPage(ctx context.Context, query search.Query) (string, error)
}

// Fetcher retrieves court search results, preferring plain HTTP and falling
// back to browser automation when the primary path is blocked.
type Fetcher struct {
	pool      *Pool
	browser   BrowserFetcher
	searchURL string
	log       *logger.Logger
}

// NewFetcher wires a fetcher against the court's case-status endpoint.
// browser may be nil, in which case no fallback is attempted.
func NewFetcher(pool *Pool, browser BrowserFetcher, baseURL string, log *logger.Logger) *Fetcher {
	return &Fetcher{
		pool:      pool,
		browser:   browser,
		searchURL: strings.TrimRight(baseURL, "/") + "/app/get-case-type-status",
		log:       log,
	}
}

// Fetch runs the primary HTTP strategy with one retry, classifies the
// response, and falls back to the browser once if the primary is blocked or
// broken. Exhausting both strategies yields a *Error.
func (f *Fetcher) Fetch(ctx context.Context, query search.Query) (*Result, error) {
	html, primaryErr := f.fetchHTTP(ctx, query)
	if primaryErr == nil {
		return &Result{HTML: html, Via: "http", FetchedAt: time.Now()}, nil
	}

	f.log.Warn("primary fetch failed, retrying once",
		"case", query.Key(),
		"error", primaryErr,
	)

	html, retryErr := f.fetchHTTP(ctx, query)
	if retryErr == nil {
		return &Result{HTML: html, Via: "http", FetchedAt: time.Now()}, nil
	}

	if f.browser == nil {
		return nil, &Error{Reason: classify(retryErr), Err: retryErr}
	}

	f.log.Info("falling back to browser fetch", "case", query.Key())

	html, browserErr := f.browser.FetchPage(ctx, query)
	if browserErr != nil {
		// Report the more specific of the two failures.
		reason := classify(retryErr)
		if reason == ReasonUnreachable {
			reason = classify(browserErr)
		}
		return nil, &Error{Reason: reason, Err: errors.Join(retryErr, browserErr)}
	}

	if err := inspectBody(html); err != nil {
		return nil, &Error{Reason: classify(err), Err: err}
	}

	return &Result{HTML: html, Via: "browser", FetchedAt: time.Now()}, nil
}

// fetchHTTP issues one search GET on a pooled session and validates the
// response body.
func (f *Fetcher) fetchHTTP(ctx context.Context, query search.Query) (string, error) {
	session, err := f.pool.Checkout()
	if err != nil {
		return "", fmt.Errorf("acquire session: %w", err)
	}
	defer f.pool.Checkin(session)

	resp, err := session.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"case_type": query.CaseType,
			"case_no":   query.CaseNumber,
			"year":      fmt.Sprintf("%d", query.FilingYear),
		}).
		Get(f.searchURL)
	if err != nil {
		return "", err
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("court returned status %d: %w", resp.StatusCode(), errBadStatus)
	}

	body := string(resp.Body())
	if err := inspectBody(body); err != nil {
		return "", err
	}

	return body, nil
}

var (
	errBadStatus = errors.New("unexpected status")
	errBlocked   = errors.New("block page detected")
	errMalformed = errors.New("response too short")
)

// inspectBody rejects block pages and truncated responses.
func inspectBody(body string) error {
	lower := strings.ToLower(body)
	for _, marker := range blockMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("marker %q in response: %w", marker, errBlocked)
		}
	}
	if len(body) < minBodyLength {
		return fmt.Errorf("body length %d below floor: %w", len(body), errMalformed)
	}
	return nil
}

func classify(err error) FailReason {
	switch {
	case errors.Is(err, errBlocked):
		return ReasonBlocked
	case errors.Is(err, errMalformed), errors.Is(err, errBadStatus):
		return ReasonMalformed
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return ReasonTimeout
	default:
		return ReasonUnreachable
	}
}

func isTimeout(err error) bool {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Timeout()
	}
	return false
}
