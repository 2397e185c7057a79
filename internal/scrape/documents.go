package scrape

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document type values stored on document rows.
const (
	DocTypeOrder    = "Order"
	DocTypeJudgment = "Judgment"
	DocTypeNotice   = "Notice"
	DocTypePetition = "Petition"
	DocTypeOther    = "Document"
)

var docDatePattern = regexp.MustCompile(`(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`)

var docAnchorKeywords = []string{"order", "judgment", "judgement", "notice", "download"}

// extractDocumentLinks gathers PDF links and order/judgment anchors,
// classified by anchor text. Relative URLs are resolved against the court
// base URL.
func (p *Parser) extractDocumentLinks(doc *goquery.Document) []DocumentLink {
	var links []DocumentLink
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := strings.TrimSpace(a.Text())

		lowerHref := strings.ToLower(href)
		isPDF := strings.HasSuffix(lowerHref, ".pdf") || strings.Contains(lowerHref, "/document/")
		if !isPDF && !anchorLooksLikeDocument(text) {
			return
		}

		resolved := p.resolveURL(href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true

		link := DocumentLink{
			Type:        ClassifyDocument(text),
			Description: text,
			URL:         resolved,
		}
		if link.Description == "" {
			link.Description = "Court Document"
		}
		if m := docDatePattern.FindString(text); m != "" {
			if t, ok := p.parseDate(m); ok {
				link.Date = t
			}
		}
		links = append(links, link)
	})

	return links
}

func anchorLooksLikeDocument(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range docAnchorKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:"):
		return ""
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "/"):
		return p.baseURL + href
	default:
		return p.baseURL + "/" + href
	}
}

// ClassifyDocument buckets a document by its anchor text.
func ClassifyDocument(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "order"):
		return DocTypeOrder
	case strings.Contains(lower, "judgment"), strings.Contains(lower, "judgement"):
		return DocTypeJudgment
	case strings.Contains(lower, "notice"):
		return DocTypeNotice
	case strings.Contains(lower, "petition"):
		return DocTypePetition
	default:
		return DocTypeOther
	}
}
