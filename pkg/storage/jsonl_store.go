// Package storage persists acquired documents as append-only JSONL
// files, one per category, with URL-level deduplication. A crashed run
// leaves at most one truncated trailing line, which later reads skip.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"fedcorpus/pkg/models"
	"fedcorpus/pkg/utils"
)

// categoryFiles maps each category to its JSONL file name.
var categoryFiles = map[models.Category]string{
	models.CategoryStatement: "statements.jsonl",
	models.CategoryMinutes:   "minutes.jsonl",
	models.CategorySpeech:    "speeches.jsonl",
	models.CategoryTestimony: "testimony.jsonl",
}

// Store is the append-only document store. The in-memory URL caches
// are rebuilt from the files on startup and act as the dedup gate: a
// URL enters a cache only after its line is durably appended.
type Store struct {
	dir    string
	mu     map[models.Category]*sync.Mutex
	caches map[models.Category]map[string]struct{}
	log    *logrus.Entry
}

// NewStore opens (and if needed creates) the document directory under
// dataDir and rebuilds the URL caches from any existing files.
func NewStore(dataDir string, log *logrus.Entry) (*Store, error) {
	dir := filepath.Join(dataDir, "documents")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create document directory %s: %w", utils.ErrStorage, dir, err)
	}

	s := &Store{
		dir:    dir,
		mu:     make(map[models.Category]*sync.Mutex),
		caches: make(map[models.Category]map[string]struct{}),
		log:    log.WithField("component", "store"),
	}
	for _, cat := range models.AllCategories() {
		s.mu[cat] = &sync.Mutex{}
		s.caches[cat] = make(map[string]struct{})
		if err := s.rebuildCache(cat); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) fileFor(cat models.Category) string {
	return filepath.Join(s.dir, categoryFiles[cat])
}

// rebuildCache replays one category file into the URL cache. Corrupt
// or truncated lines are logged and skipped; they never block startup.
func (s *Store) rebuildCache(cat models.Category) error {
	path := s.fileFor(cat)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", utils.ErrStorage, path, err)
	}
	defer f.Close()

	err = readLines(f, func(lineNo int, line []byte) {
		doc, perr := models.FromLine(line)
		if perr != nil {
			s.log.WithFields(logrus.Fields{
				"file": path, "line": lineNo,
			}).Warnf("Skipping unreadable document record: %v", perr)
			return
		}
		s.caches[cat][doc.URL] = struct{}{}
	})
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", utils.ErrStorage, path, err)
	}
	s.log.WithFields(logrus.Fields{
		"category": cat.String(), "documents": len(s.caches[cat]),
	}).Debug("Rebuilt URL cache")
	return nil
}

// ExistingURLs returns a copy of the URL cache for one category,
// suitable for seeding an exclusion set.
func (s *Store) ExistingURLs(cat models.Category) map[string]struct{} {
	s.mu[cat].Lock()
	defer s.mu[cat].Unlock()
	urls := make(map[string]struct{}, len(s.caches[cat]))
	for u := range s.caches[cat] {
		urls[u] = struct{}{}
	}
	return urls
}

// Count returns the number of stored documents in one category.
func (s *Store) Count(cat models.Category) int {
	s.mu[cat].Lock()
	defer s.mu[cat].Unlock()
	return len(s.caches[cat])
}

// Save appends doc to its category file unless its URL is already
// stored. It reports whether the document was written. The line is
// appended in a single write under an exclusive file lock, so two
// processes sharing a data directory never interleave records.
func (s *Store) Save(doc *models.Document) (bool, error) {
	cat := doc.Category
	mu, ok := s.mu[cat]
	if !ok {
		return false, fmt.Errorf("%w: unknown category %q", utils.ErrStorage, cat)
	}

	mu.Lock()
	defer mu.Unlock()

	if _, dup := s.caches[cat][doc.URL]; dup {
		s.log.WithField("url", doc.URL).Debug("Document already stored")
		return false, nil
	}

	line, err := doc.MarshalLine()
	if err != nil {
		return false, fmt.Errorf("%w: %w", utils.ErrStorage, err)
	}

	if err := s.appendLine(s.fileFor(cat), line); err != nil {
		return false, err
	}
	s.caches[cat][doc.URL] = struct{}{}
	return true, nil
}

func (s *Store) appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s for append: %w", utils.ErrStorage, path, err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("%w: lock %s: %w", utils.ErrStorage, path, err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("%w: append to %s: %w", utils.ErrStorage, path, err)
	}
	return nil
}

// LoadAll streams every readable document of one category through fn
// in file order. Unreadable lines are logged and skipped. A non-nil
// error from fn stops the scan and is returned.
func (s *Store) LoadAll(cat models.Category, fn func(*models.Document) error) error {
	path := s.fileFor(cat)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", utils.ErrStorage, path, err)
	}
	defer f.Close()

	var fnErr error
	err = readLines(f, func(lineNo int, line []byte) {
		if fnErr != nil {
			return
		}
		doc, perr := models.FromLine(line)
		if perr != nil {
			s.log.WithFields(logrus.Fields{
				"file": path, "line": lineNo,
			}).Warnf("Skipping unreadable document record: %v", perr)
			return
		}
		fnErr = fn(doc)
	})
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", utils.ErrStorage, path, err)
	}
	return fnErr
}

// readLines walks r line by line. Lines carry full raw HTML payloads
// and routinely exceed bufio.Scanner's default limit, so a plain
// reader is used instead. A final line without a trailing newline is
// still delivered; whether it parses decides whether it is kept.
func readLines(r io.Reader, fn func(lineNo int, line []byte)) error {
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			trimmed := strings.TrimRight(string(line), "\n")
			if strings.TrimSpace(trimmed) != "" {
				fn(lineNo, []byte(trimmed))
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
