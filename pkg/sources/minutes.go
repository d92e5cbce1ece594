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

// Recent minutes are linked from the FOMC calendar page; meetings that
// have aged off the calendar live on per-year historical pages.
const fomcHistoricalTemplate = "/monetarypolicy/fomchistorical%d.htm"

var (
	minutesLinkRe = regexp.MustCompile(`^/monetarypolicy/fomcminutes\d{8}\.htm`)
	minutesDateRe = regexp.MustCompile(`/fomcminutes(\d{8})`)
	minutesYearRe = regexp.MustCompile(`/fomcminutes(\d{4})`)
)

type minutesAdapter struct {
	site
}

func (a *minutesAdapter) Category() models.Category { return models.CategoryMinutes }

func (a *minutesAdapter) EnumerateCandidateURLs(ctx context.Context, startYear, endYear int) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		seen := make(map[string]struct{})

		// Calendar page first; failure here is a warning, the
		// historical pages may still cover the range.
		hrefs, err := a.collectLinks(ctx, a.baseURL+fomcCalendarPath, minutesLinkRe)
		if err != nil {
			a.log.Warnf("Could not fetch FOMC calendar page: %v", err)
		}
		if !a.sendInRange(ctx, out, hrefs, startYear, endYear, seen) {
			return
		}

		// One historical page per year; a missing year (404 on old or
		// not-yet-archived years) is expected and skipped.
		for year := startYear; year <= endYear; year++ {
			pageURL := a.baseURL + fmt.Sprintf(fomcHistoricalTemplate, year)
			hrefs, err := a.collectLinks(ctx, pageURL, minutesLinkRe)
			if err != nil {
				a.log.WithField("year", year).Warnf("Could not fetch historical minutes index: %v", err)
				continue
			}
			if !a.sendInRange(ctx, out, hrefs, startYear, endYear, seen) {
				return
			}
		}
	}()
	return out
}

func (a *minutesAdapter) sendInRange(ctx context.Context, out chan<- string, hrefs []string, startYear, endYear int, seen map[string]struct{}) bool {
	for _, href := range hrefs {
		m := minutesYearRe.FindStringSubmatch(href)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		if year < startYear || year > endYear {
			continue
		}
		if !sendAll(ctx, out, []string{a.absoluteURL(href)}, seen) {
			return false
		}
	}
	return true
}

func (a *minutesAdapter) FetchAndParse(ctx context.Context, url string) (*models.Document, error) {
	a.log.WithField("url", url).Info("Acquiring minutes")

	finalURL, payload, err := a.session.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: parse HTML: %w", utils.ErrParsing, err)
	}

	date, ok := extractDateFromURL(url, minutesDateRe)
	if !ok {
		return nil, fmt.Errorf("%w: no date in minutes URL %s", ErrSkip, url)
	}

	content := extractContent(doc, a.conv)
	if content == "" {
		return nil, fmt.Errorf("%w: no content at %s", ErrSkip, url)
	}

	title := extractTitle(doc, "FOMC Minutes")
	attachment := extractAttachmentURL(doc, a.site)

	return models.New(finalURL, models.CategoryMinutes, title, date, content, string(payload), "", attachment), nil
}
