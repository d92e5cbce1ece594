package sources

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"fedcorpus/pkg/models"
	"fedcorpus/pkg/utils"
)

// FOMC statements are linked from the meeting calendar page as press
// releases named monetaryYYYYMMDD[a].htm.
const fomcCalendarPath = "/monetarypolicy/fomccalendars.htm"

var (
	statementLinkRe = regexp.MustCompile(`^/newsevents/pressreleases/monetary\d+a?\.htm`)
	statementYearRe = regexp.MustCompile(`/monetary(\d{4})`)
	statementDateRe = regexp.MustCompile(`/monetary(\d{8})`)
)

type statementsAdapter struct {
	site
}

func (a *statementsAdapter) Category() models.Category { return models.CategoryStatement }

func (a *statementsAdapter) EnumerateCandidateURLs(ctx context.Context, startYear, endYear int) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)

		hrefs, err := a.collectLinks(ctx, a.baseURL+fomcCalendarPath, statementLinkRe)
		if err != nil {
			a.log.Warnf("Could not fetch FOMC calendar page: %v", err)
			return
		}

		seen := make(map[string]struct{})
		for _, href := range hrefs {
			m := statementYearRe.FindStringSubmatch(href)
			if m == nil {
				continue
			}
			year, _ := strconv.Atoi(m[1])
			if year < startYear || year > endYear {
				continue
			}
			if !sendAll(ctx, out, []string{a.absoluteURL(href)}, seen) {
				return
			}
		}
	}()
	return out
}

func (a *statementsAdapter) FetchAndParse(ctx context.Context, url string) (*models.Document, error) {
	a.log.WithField("url", url).Info("Acquiring statement")

	finalURL, payload, err := a.session.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: parse HTML: %w", utils.ErrParsing, err)
	}

	// Statement URLs carry the meeting date; a page without one is not
	// a statement we can file.
	date, ok := extractDateFromURL(url, statementDateRe)
	if !ok {
		return nil, fmt.Errorf("%w: no date in statement URL %s", ErrSkip, url)
	}

	content := extractContent(doc, a.conv)
	if content == "" {
		return nil, fmt.Errorf("%w: no content at %s", ErrSkip, url)
	}

	title := extractTitle(doc, "FOMC Statement")
	attachment := extractAttachmentURL(doc, a.site)

	// Committee document: no single speaker.
	return models.New(finalURL, models.CategoryStatement, title, date, content, string(payload), "", attachment), nil
}
