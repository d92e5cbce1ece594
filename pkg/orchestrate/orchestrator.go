// Package orchestrate sequences document acquisition across source
// categories: one shared session and store, one streaming pass per
// category, failures isolated so a bad category never sinks the run.
package orchestrate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fedcorpus/pkg/config"
	"fedcorpus/pkg/fetch"
	"fedcorpus/pkg/models"
	"fedcorpus/pkg/sources"
	"fedcorpus/pkg/storage"
	"fedcorpus/pkg/utils"
)

// Orchestrator runs acquisition passes against the configured site and
// persists the results. It holds no crawl state of its own; resumption
// comes entirely from the store's URL caches.
type Orchestrator struct {
	cfg   *config.Config
	store *storage.Store
	log   *logrus.Entry
}

// New creates an Orchestrator over an opened store.
func New(cfg *config.Config, store *storage.Store, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{cfg: cfg, store: store, log: log}
}

// Result summarizes one category pass.
type Result struct {
	Category models.Category
	New      int   // Documents written this pass
	Total    int   // Documents stored for the category after the pass
	Err      error // Setup failure, if the pass could not run
}

// RunCategory acquires one category for the given year range and
// returns the number of newly stored documents. Per-document failures
// are logged and absorbed; only setup failures return an error.
func (o *Orchestrator) RunCategory(ctx context.Context, cat models.Category, startYear, endYear int) (int, error) {
	return o.runCategory(ctx, o.log, cat, startYear, endYear)
}

func (o *Orchestrator) runCategory(ctx context.Context, log *logrus.Entry, cat models.Category, startYear, endYear int) (int, error) {
	runLog := log.WithField("category", cat.String())

	session := fetch.NewSession(o.cfg.Scraper, o.cfg.HTTPClient, runLog)
	defer session.Close()

	adapter, err := sources.New(cat, o.cfg.Scraper, session, runLog)
	if err != nil {
		return 0, err
	}

	excl := sources.NewExclusionSet(o.store.ExistingURLs(cat))
	runLog.WithFields(logrus.Fields{
		"start_year": startYear, "end_year": endYear, "known_urls": excl.Len(),
	}).Info("Starting category pass")

	saved := 0
	for doc := range sources.Stream(ctx, adapter, excl, startYear, endYear, o.cfg.Scraper.MaxConcurrentRequests, runLog) {
		wrote, err := o.store.Save(doc)
		if err != nil {
			runLog.WithFields(logrus.Fields{
				"url": doc.URL, "error_type": utils.CategorizeError(err),
			}).Errorf("Failed to store document: %v", err)
			continue
		}
		if wrote {
			saved++
			runLog.WithFields(logrus.Fields{
				"doc_id": doc.ID, "url": doc.URL,
			}).Info("Stored document")
		}
	}
	if err := ctx.Err(); err != nil {
		runLog.WithField("new_documents", saved).Warn("Category pass interrupted")
		return saved, err
	}

	runLog.WithFields(logrus.Fields{
		"new_documents": saved, "total_documents": o.store.Count(cat),
	}).Info("Category pass complete")
	return saved, nil
}

// RunAll runs the requested categories sequentially and returns one
// Result per category in the order given. A category whose setup fails
// is reported in its Result and the run moves on; cancellation stops
// the run between categories.
func (o *Orchestrator) RunAll(ctx context.Context, cats []models.Category, startYear, endYear int) ([]Result, error) {
	runID := uuid.New().String()[:8]
	runLog := o.log.WithField("run_id", runID)
	runLog.WithFields(logrus.Fields{
		"categories": len(cats), "start_year": startYear, "end_year": endYear,
	}).Info("Starting acquisition run")

	results := make([]Result, 0, len(cats))
	for _, cat := range cats {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("acquisition run interrupted: %w", err)
		}

		saved, err := o.runCategory(ctx, runLog, cat, startYear, endYear)
		if err != nil && ctx.Err() == nil {
			runLog.WithFields(logrus.Fields{
				"category": cat.String(), "error_type": utils.CategorizeError(err),
			}).Errorf("Category pass failed: %v", err)
		}
		results = append(results, Result{
			Category: cat,
			New:      saved,
			Total:    o.store.Count(cat),
			Err:      err,
		})
	}

	runLog.Info("Acquisition run complete")
	return results, nil
}

// Stats reports the stored document count per category without
// touching the network.
func (o *Orchestrator) Stats() map[models.Category]int {
	stats := make(map[models.Category]int, len(models.AllCategories()))
	for _, cat := range models.AllCategories() {
		stats[cat] = o.store.Count(cat)
	}
	return stats
}
