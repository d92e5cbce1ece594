// Package sources implements the per-category document adapters and the
// shared driving loop that turns candidate URLs into stored documents.
package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"fedcorpus/pkg/config"
	"fedcorpus/pkg/fetch"
	"fedcorpus/pkg/models"
	"fedcorpus/pkg/utils"
)

// ErrSkip marks a page whose required fields (date, non-empty content)
// could not be extracted. It is an outcome, not a failure: the driving
// loop logs it at warning level and moves on.
var ErrSkip = errors.New("document skipped: required fields missing")

// Adapter is the acquisition contract one document category implements.
type Adapter interface {
	// Category returns the document category this adapter handles.
	Category() models.Category

	// EnumerateCandidateURLs walks the category's index pages for the
	// year range (inclusive) and streams absolute candidate URLs. The
	// stream is restartable: each call re-reads the index pages. The
	// channel is closed when enumeration finishes or ctx is canceled.
	EnumerateCandidateURLs(ctx context.Context, startYear, endYear int) <-chan string

	// FetchAndParse fetches one page and extracts a Document.
	// Returns an error wrapping ErrSkip for parse-incompleteness.
	FetchAndParse(ctx context.Context, url string) (*models.Document, error)
}

// New builds the adapter for a category.
func New(category models.Category, cfg config.ScraperConfig, session *fetch.Session, log *logrus.Entry) (Adapter, error) {
	site := site{
		session: session,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		conv:    md.NewConverter("", true, nil),
		log:     log.WithField("category", category.String()),
	}

	switch category {
	case models.CategoryStatement:
		return &statementsAdapter{site: site}, nil
	case models.CategoryMinutes:
		return &minutesAdapter{site: site}, nil
	case models.CategorySpeech:
		return &speechesAdapter{site: site}, nil
	case models.CategoryTestimony:
		return &testimonyAdapter{site: site}, nil
	}
	return nil, fmt.Errorf("no adapter for category %q", category)
}

// site bundles what every adapter needs to talk to the Fed's website.
type site struct {
	session *fetch.Session
	baseURL string
	conv    *md.Converter
	log     *logrus.Entry
}

// absoluteURL converts a relative href to an absolute URL on the site.
func (s site) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return s.baseURL + href
	}
	return s.baseURL + "/" + href
}

// collectLinks fetches one index page and returns the raw hrefs of all
// anchors matching linkRe, in document order.
func (s site) collectLinks(ctx context.Context, pageURL string, linkRe *regexp.Regexp) ([]string, error) {
	_, payload, err := s.session.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: parse index HTML: %w", utils.ErrParsing, err)
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if linkRe.MatchString(href) {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs, nil
}

// sendAll forwards urls into out, deduplicating against seen, until the
// context is canceled. Returns false once ctx is done.
func sendAll(ctx context.Context, out chan<- string, urls []string, seen map[string]struct{}) bool {
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		select {
		case out <- u:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
