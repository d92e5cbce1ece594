package sources

import (
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"fedcorpus/pkg/models"
)

// Selectors tried in order for the main content area. The Fed's layout
// has changed over the years; the bootstrap column class covers
// everything since ~2015, the rest are older fallbacks.
var contentSelectors = []string{
	"div.col-xs-12.col-sm-8.col-md-8",
	"div#content",
	"article",
	"main",
}

// Elements stripped from the content area before conversion.
const chromeSelector = "nav, header, footer, script, style, aside"

var (
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	pdfHrefRe    = regexp.MustCompile(`(?i)\.pdf$`)

	speakerRolesRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(Chair(?:man|woman)?)\s+(\w+)`),
		regexp.MustCompile(`(?i)^(Vice Chair(?:man|woman)?)\s+(\w+)`),
		regexp.MustCompile(`(?i)^(Governor)\s+(\w+)`),
		regexp.MustCompile(`(?i)^(President)\s+(\w+)`),
	}
)

// Date layouts seen in the Fed's article__time elements.
var pageDateLayouts = []string{"January 2, 2006", "Jan 2, 2006", "1/2/2006"}

// cleanText normalizes extracted text: collapse runs of spaces/tabs,
// cap consecutive newlines at two, strip each line.
func cleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractContent finds the main content node, strips page chrome, and
// converts the remainder to cleaned markdown text. Empty result means
// no usable content was found.
func extractContent(doc *goquery.Document, conv *md.Converter) string {
	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		sel.Find(chromeSelector).Remove()
		return cleanText(conv.Convert(sel))
	}
	return ""
}

// extractTitle tries h1, then the title element, falling back to a
// category default.
func extractTitle(doc *goquery.Document, fallback string) string {
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		if t := cleanText(h1.Text()); t != "" {
			return t
		}
	}
	if h3 := doc.Find("h3.title").First(); h3.Length() > 0 {
		if t := cleanText(h3.Text()); t != "" {
			return t
		}
	}
	if title := doc.Find("title").First(); title.Length() > 0 {
		if t := cleanText(title.Text()); t != "" {
			return t
		}
	}
	return fallback
}

// extractSpeaker pulls the speaking official from the title's role
// prefix ("Chair Powell...", "Governor Bowman..."), then from the
// page's dedicated speaker element, then from the author meta tag.
// rolePatterns limits which roles a category recognizes.
func extractSpeaker(title string, doc *goquery.Document, rolePatterns []*regexp.Regexp) string {
	for _, pattern := range rolePatterns {
		if m := pattern.FindStringSubmatch(title); m != nil {
			return m[1] + " " + m[2]
		}
	}
	if elem := doc.Find("p.speaker").First(); elem.Length() > 0 {
		if s := cleanText(elem.Text()); s != "" {
			return s
		}
	}
	if content, ok := doc.Find(`meta[name="author"]`).First().Attr("content"); ok && content != "" {
		return content
	}
	return ""
}

// extractDateFromPage reads the publication date from the article time
// element or the DC.date.issued meta tag.
func extractDateFromPage(doc *goquery.Document) (models.Date, bool) {
	if elem := doc.Find("p.article__time").First(); elem.Length() > 0 {
		text := strings.TrimSpace(elem.Text())
		for _, layout := range pageDateLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return models.Date{Time: t}, true
			}
		}
	}
	if content, ok := doc.Find(`meta[name="DC.date.issued"]`).First().Attr("content"); ok {
		if t, err := time.Parse("2006-01-02", content); err == nil {
			return models.Date{Time: t}, true
		}
	}
	return models.Date{}, false
}

// extractDateFromURL pulls an 8-digit YYYYMMDD date out of a document
// URL using the category's pattern (whose first submatch must be the
// digits).
func extractDateFromURL(url string, pattern *regexp.Regexp) (models.Date, bool) {
	m := pattern.FindStringSubmatch(url)
	if m == nil {
		return models.Date{}, false
	}
	t, err := time.Parse("20060102", m[1])
	if err != nil {
		return models.Date{}, false
	}
	return models.Date{Time: t}, true
}

// extractAttachmentURL returns the absolute URL of the first PDF link
// on the page, or "".
func extractAttachmentURL(doc *goquery.Document, s site) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if pdfHrefRe.MatchString(href) {
			found = s.absoluteURL(href)
			return false
		}
		return true
	})
	return found
}
