package sources

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"fedcorpus/pkg/models"
	"fedcorpus/pkg/utils"
)

// The testimony index URL format changed over time; templates are tried
// in order per year and the first that answers wins. Site layout changes
// mean this list needs the occasional new entry.
var testimonyIndexTemplates = []string{
	"/newsevents/testimony/%d-testimony.htm", // 2017+
	"/newsevents/testimony/%dtestimony.htm",  // 2015-2016
}

var (
	testimonyLinkRe = regexp.MustCompile(`^/newsevents/testimony/\w+\d+a?\.htm`)
	testimonyDateRe = regexp.MustCompile(`/testimony/\w+?(\d{8})`)
)

type testimonyAdapter struct {
	site
}

func (a *testimonyAdapter) Category() models.Category { return models.CategoryTestimony }

func (a *testimonyAdapter) EnumerateCandidateURLs(ctx context.Context, startYear, endYear int) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		seen := make(map[string]struct{})

		for year := startYear; year <= endYear; year++ {
			var hrefs []string
			found := false
			for _, template := range testimonyIndexTemplates {
				indexURL := a.baseURL + fmt.Sprintf(template, year)
				links, err := a.collectLinks(ctx, indexURL, testimonyLinkRe)
				if err != nil {
					continue // fall through to the next layout
				}
				hrefs = links
				found = true
				break
			}
			if !found {
				a.log.WithField("year", year).Warn("Could not fetch testimony index (tried all URL layouts)")
				continue
			}

			urls := make([]string, 0, len(hrefs))
			for _, href := range hrefs {
				urls = append(urls, a.absoluteURL(href))
			}
			if !sendAll(ctx, out, urls, seen) {
				return
			}
		}
	}()
	return out
}

func (a *testimonyAdapter) FetchAndParse(ctx context.Context, url string) (*models.Document, error) {
	a.log.WithField("url", url).Info("Acquiring testimony")

	finalURL, payload, err := a.session.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: parse HTML: %w", utils.ErrParsing, err)
	}

	title := extractTitle(doc, "Congressional Testimony")
	// Regional presidents do not testify for the Board; only Board
	// roles are recognized here.
	speaker := extractSpeaker(title, doc, speakerRolesRe[:3])

	date, ok := extractDateFromPage(doc)
	if !ok {
		date, ok = extractDateFromURL(url, testimonyDateRe)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no date for testimony %s", ErrSkip, url)
	}

	content := extractContent(doc, a.conv)
	if content == "" {
		return nil, fmt.Errorf("%w: no content at %s", ErrSkip, url)
	}

	attachment := extractAttachmentURL(doc, a.site)

	return models.New(finalURL, models.CategoryTestimony, title, date, content, string(payload), speaker, attachment), nil
}
