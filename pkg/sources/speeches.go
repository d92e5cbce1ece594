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

const speechIndexTemplate = "/newsevents/speech/%d-speeches.htm"

var (
	speechLinkRe = regexp.MustCompile(`^/newsevents/speech/\w+\d+a?\.htm`)
	speechDateRe = regexp.MustCompile(`/speech/\w+?(\d{8})`)
)

type speechesAdapter struct {
	site
}

func (a *speechesAdapter) Category() models.Category { return models.CategorySpeech }

func (a *speechesAdapter) EnumerateCandidateURLs(ctx context.Context, startYear, endYear int) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		seen := make(map[string]struct{})

		for year := startYear; year <= endYear; year++ {
			indexURL := a.baseURL + fmt.Sprintf(speechIndexTemplate, year)
			hrefs, err := a.collectLinks(ctx, indexURL, speechLinkRe)
			if err != nil {
				a.log.WithField("year", year).Warnf("Could not fetch speech index: %v", err)
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

func (a *speechesAdapter) FetchAndParse(ctx context.Context, url string) (*models.Document, error) {
	a.log.WithField("url", url).Info("Acquiring speech")

	finalURL, payload, err := a.session.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: parse HTML: %w", utils.ErrParsing, err)
	}

	title := extractTitle(doc, "Federal Reserve Speech")
	speaker := extractSpeaker(title, doc, speakerRolesRe)

	// Page content first, URL date as fallback for older layouts.
	date, ok := extractDateFromPage(doc)
	if !ok {
		date, ok = extractDateFromURL(url, speechDateRe)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no date for speech %s", ErrSkip, url)
	}

	content := extractContent(doc, a.conv)
	if content == "" {
		return nil, fmt.Errorf("%w: no content at %s", ErrSkip, url)
	}

	attachment := extractAttachmentURL(doc, a.site)

	return models.New(finalURL, models.CategorySpeech, title, date, content, string(payload), speaker, attachment), nil
}
