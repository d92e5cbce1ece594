package sources

import (
	"regexp"
	"strings"
	"testing"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello   world", "hello world"},
		{"  padded line  ", "padded line"},
		{"a\n\n\n\n\nb", "a\n\nb"},
		{"tab\t\tseparated", "tab separated"},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cleanText(tc.in), "input %q", tc.in)
	}
}

func TestExtractContent_SelectorPriority(t *testing.T) {
	conv := md.NewConverter("", true, nil)

	// Modern bootstrap layout wins over the article fallback
	doc := parseHTML(t, `<html><body>
		<div class="col-xs-12 col-sm-8 col-md-8"><p>primary text</p></div>
		<article><p>fallback text</p></article>
	</body></html>`)
	content := extractContent(doc, conv)
	assert.Contains(t, content, "primary text")
	assert.NotContains(t, content, "fallback text")

	// Older layout falls through to article
	doc = parseHTML(t, `<html><body><article><p>older layout</p></article></body></html>`)
	assert.Contains(t, extractContent(doc, conv), "older layout")

	// No content area at all
	doc = parseHTML(t, `<html><body><div class="sidebar">nav stuff</div></body></html>`)
	assert.Empty(t, extractContent(doc, conv))
}

func TestExtractContent_StripsChrome(t *testing.T) {
	conv := md.NewConverter("", true, nil)
	doc := parseHTML(t, `<html><body><main>
		<nav>site navigation</nav>
		<p>the actual statement</p>
		<footer>Last Update: January 1, 2024</footer>
	</main></body></html>`)

	content := extractContent(doc, conv)
	assert.Contains(t, content, "the actual statement")
	assert.NotContains(t, content, "site navigation")
	assert.NotContains(t, content, "Last Update")
}

func TestExtractTitle(t *testing.T) {
	doc := parseHTML(t, `<html><head><title>page title</title></head><body><h1>  Heading One </h1></body></html>`)
	assert.Equal(t, "Heading One", extractTitle(doc, "fallback"))

	doc = parseHTML(t, `<html><head><title>page title</title></head><body></body></html>`)
	assert.Equal(t, "page title", extractTitle(doc, "fallback"))

	doc = parseHTML(t, `<html><body></body></html>`)
	assert.Equal(t, "fallback", extractTitle(doc, "fallback"))
}

func TestExtractSpeaker(t *testing.T) {
	empty := parseHTML(t, `<html><body></body></html>`)

	cases := []struct {
		title string
		want  string
	}{
		{"Chair Powell discusses the economic outlook", "Chair Powell"},
		{"Chairman Bernanke on monetary policy", "Chairman Bernanke"},
		{"Vice Chair Jefferson at the conference", "Vice Chair Jefferson"},
		{"Governor Bowman on bank supervision", "Governor Bowman"},
		{"President Williams remarks", "President Williams"},
		{"The economic outlook", ""},
	}
	for _, tc := range cases {
		got := extractSpeaker(tc.title, empty, speakerRolesRe)
		assert.Equal(t, tc.want, got, "title %q", tc.title)
	}
}

func TestExtractSpeaker_PageFallbacks(t *testing.T) {
	doc := parseHTML(t, `<html><body><p class="speaker">Governor Christopher J. Waller</p></body></html>`)
	assert.Equal(t, "Governor Christopher J. Waller", extractSpeaker("Untitled", doc, speakerRolesRe))

	doc = parseHTML(t, `<html><head><meta name="author" content="Michelle W. Bowman"></head><body></body></html>`)
	assert.Equal(t, "Michelle W. Bowman", extractSpeaker("Untitled", doc, speakerRolesRe))
}

func TestExtractSpeaker_RoleSubsetRespected(t *testing.T) {
	empty := parseHTML(t, `<html><body></body></html>`)

	// Testimony recognizes board roles but not reserve bank presidents
	got := extractSpeaker("President Williams remarks", empty, speakerRolesRe[:3])
	assert.Empty(t, got)
}

func TestExtractDateFromPage(t *testing.T) {
	doc := parseHTML(t, `<html><body><p class="article__time">March 22, 2023</p></body></html>`)
	date, ok := extractDateFromPage(doc)
	require.True(t, ok)
	assert.Equal(t, "2023-03-22", date.Format("2006-01-02"))

	doc = parseHTML(t, `<html><head><meta name="DC.date.issued" content="2019-07-31"></head><body></body></html>`)
	date, ok = extractDateFromPage(doc)
	require.True(t, ok)
	assert.Equal(t, "2019-07-31", date.Format("2006-01-02"))

	doc = parseHTML(t, `<html><body><p class="article__time">sometime in spring</p></body></html>`)
	_, ok = extractDateFromPage(doc)
	assert.False(t, ok)
}

func TestExtractDateFromURL(t *testing.T) {
	date, ok := extractDateFromURL("https://www.federalreserve.gov/newsevents/pressreleases/monetary20230322a.htm", statementDateRe)
	require.True(t, ok)
	assert.Equal(t, "2023-03-22", date.Format("2006-01-02"))

	_, ok = extractDateFromURL("https://www.federalreserve.gov/newsevents/pressreleases/other20230322a.htm", statementDateRe)
	assert.False(t, ok)

	// Digits that are not a calendar date
	_, ok = extractDateFromURL("https://example.org/monetary20231399a.htm", statementDateRe)
	assert.False(t, ok)
}

func TestExtractAttachmentURL(t *testing.T) {
	s := site{baseURL: "https://www.federalreserve.gov"}

	doc := parseHTML(t, `<html><body>
		<a href="/other/page.htm">page</a>
		<a href="/files/monetary20230322a1.pdf">PDF</a>
		<a href="/files/second.pdf">another</a>
	</body></html>`)
	assert.Equal(t, "https://www.federalreserve.gov/files/monetary20230322a1.pdf", extractAttachmentURL(doc, s))

	doc = parseHTML(t, `<html><body><a href="/other/page.htm">page</a></body></html>`)
	assert.Empty(t, extractAttachmentURL(doc, s))
}

func TestAbsoluteURL(t *testing.T) {
	s := site{baseURL: "https://www.federalreserve.gov"}

	assert.Equal(t, "https://www.federalreserve.gov/a.htm", s.absoluteURL("/a.htm"))
	assert.Equal(t, "https://www.federalreserve.gov/a.htm", s.absoluteURL("a.htm"))
	assert.Equal(t, "https://example.org/x", s.absoluteURL("https://example.org/x"))
}

func TestLinkPatterns(t *testing.T) {
	cases := []struct {
		re    *regexp.Regexp
		href  string
		match bool
	}{
		{statementLinkRe, "/newsevents/pressreleases/monetary20230322a.htm", true},
		{statementLinkRe, "/newsevents/pressreleases/monetary20230322.htm", true},
		{statementLinkRe, "/newsevents/pressreleases/bcreg20230322a.htm", false},
		{minutesLinkRe, "/monetarypolicy/fomcminutes20230322.htm", true},
		{minutesLinkRe, "/monetarypolicy/fomcprojtabl20230322.htm", false},
		{speechLinkRe, "/newsevents/speech/powell20240112a.htm", true},
		{speechLinkRe, "/newsevents/speech/2024-speeches.htm", false},
		{testimonyLinkRe, "/newsevents/testimony/powell20240306a.htm", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.match, tc.re.MatchString(tc.href), "pattern vs %q", tc.href)
	}
}
