package scrape

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dhc-casetracker/internal/search"
)

// ErrNoRecords means the court answered but found no matching case. It is
// user-facing and distinct from a parse failure.
var ErrNoRecords = errors.New("no records found for the given case details")

// ParseError means the expected structural anchors were absent from the
// response, typically after the court changed its markup.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse court response: %s", e.Reason)
}

// CaseDetails holds the normalized fields extracted from a results page.
type CaseDetails struct {
	CaseType    string
	CaseNumber  string
	FilingYear  int
	Petitioners []string
	Respondents []string
	Advocate    string
	Bench       string
	Status      string
	FilingDate  time.Time
	NextHearing time.Time
	Extra       map[string]string
}

// DocumentLink describes one downloadable document discovered on the page.
type DocumentLink struct {
	Type        string
	Description string
	URL         string
	Date        time.Time
}

// noRecordsMarkers are page substrings the court uses for empty results.
var noRecordsMarkers = []string{
	"no record found",
	"no records found",
	"case not found",
	"invalid case number",
	"no matching records",
	"no result found",
	"record does not exist",
	"no entries found",
	"no case found",
}

// resultMarkers confirm a details page when no table is present.
var resultMarkers = []string{
	"case details",
	"petitioner",
	"respondent",
	"case status",
	"filing date",
	"next date",
}

// fieldRule maps label substrings found in a details table to an assignment
// on CaseDetails. Labels are matched case-insensitively; a value row with no
// matching rule lands in Extra.
type fieldRule struct {
	labels []string
	assign func(p *Parser, d *CaseDetails, value string)
}

var fieldRules = []fieldRule{
	{
		labels: []string{"petitioner", "appellant", "applicant", "plaintiff", "complainant"},
		assign: func(_ *Parser, d *CaseDetails, v string) {
			d.Petitioners = append(d.Petitioners, splitParties(v)...)
		},
	},
	{
		labels: []string{"respondent", "defendant", "accused"},
		assign: func(_ *Parser, d *CaseDetails, v string) {
			d.Respondents = append(d.Respondents, splitParties(v)...)
		},
	},
	{
		labels: []string{"advocate", "counsel", "lawyer"},
		assign: func(_ *Parser, d *CaseDetails, v string) { d.Advocate = v },
	},
	{
		labels: []string{"bench", "judge", "coram"},
		assign: func(_ *Parser, d *CaseDetails, v string) { d.Bench = v },
	},
	{
		labels: []string{"status", "stage"},
		assign: func(_ *Parser, d *CaseDetails, v string) { d.Status = v },
	},
	{
		labels: []string{"filing date", "date of filing", "registration date"},
		assign: func(p *Parser, d *CaseDetails, v string) {
			if t, ok := p.parseDate(v); ok && d.FilingDate.IsZero() {
				d.FilingDate = t
			}
		},
	},
	{
		labels: []string{"next date", "next hearing", "listing date", "hearing date"},
		assign: func(p *Parser, d *CaseDetails, v string) {
			if t, ok := p.parseDate(v); ok {
				d.NextHearing = t
			}
		},
	},
}

// Parser extracts case details and document links from raw court HTML.
type Parser struct {
	baseURL string
}

// NewParser creates a parser that resolves relative document links against
// baseURL.
func NewParser(baseURL string) *Parser {
	return &Parser{baseURL: strings.TrimRight(baseURL, "/")}
}

// Parse extracts a CaseDetails value and document links from raw HTML.
// Returns ErrNoRecords when the court reports an empty result, or a
// *ParseError when the page has none of the expected structure.
func (p *Parser) Parse(html string, query search.Query) (*CaseDetails, []DocumentLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, &ParseError{Reason: fmt.Sprintf("invalid html: %v", err)}
	}

	pageText := strings.ToLower(doc.Text())
	for _, marker := range noRecordsMarkers {
		if strings.Contains(pageText, marker) {
			return nil, nil, ErrNoRecords
		}
	}

	tables := doc.Find("table")
	if tables.Length() == 0 && !containsAny(pageText, resultMarkers) {
		return nil, nil, &ParseError{Reason: "no tables or case detail indicators in response"}
	}

	details := &CaseDetails{
		CaseType:   query.CaseType,
		CaseNumber: query.CaseNumber,
		FilingYear: query.FilingYear,
		Status:     "Unknown",
		Extra:      map[string]string{},
	}

	tables.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		value := strings.TrimSpace(cells.Eq(1).Text())
		if label == "" || value == "" {
			return
		}
		p.applyRules(details, label, value)
	})

	if len(details.Petitioners) == 0 && len(details.Respondents) == 0 {
		p.extractPartiesFromText(doc.Text(), details)
	}

	links := p.extractDocumentLinks(doc)

	if len(details.Petitioners) == 0 && len(details.Respondents) == 0 &&
		details.Status == "Unknown" && len(details.Extra) == 0 && len(links) == 0 {
		return nil, nil, &ParseError{Reason: "response contained no recognizable case fields"}
	}

	return details, links, nil
}

func (p *Parser) applyRules(d *CaseDetails, label, value string) {
	for _, rule := range fieldRules {
		for _, l := range rule.labels {
			if strings.Contains(label, l) {
				rule.assign(p, d, value)
				return
			}
		}
	}
	d.Extra[strings.TrimSuffix(label, ":")] = value
}

var versusPattern = regexp.MustCompile(`(?i)([^\n]+?)\s+vs\.?\s+([^\n]+)`)

// extractPartiesFromText falls back to a "X vs Y" caption when no labeled
// party rows exist.
func (p *Parser) extractPartiesFromText(text string, d *CaseDetails) {
	if m := versusPattern.FindStringSubmatch(text); m != nil {
		d.Petitioners = append(d.Petitioners, strings.TrimSpace(m[1]))
		d.Respondents = append(d.Respondents, strings.TrimSpace(m[2]))
	}
}

var dateFormats = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"02.01.2006",
	"January 2, 2006",
	"2 January 2006",
}

func (p *Parser) parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// splitParties splits a multi-party cell on the court's usual separators.
func splitParties(value string) []string {
	parts := regexp.MustCompile(`\s*(?:,|\band\b|&|\n)\s*`).Split(value, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
