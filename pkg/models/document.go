package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fedcorpus/pkg/utils"
)

const dateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD in JSONL records.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// Document is one acquired Federal Reserve publication. Documents are
// immutable once created; every field is set by New and never updated.
type Document struct {
	ID            string    `json:"doc_id"`
	URL           string    `json:"url"`
	Category      Category  `json:"doc_type"`
	Title         string    `json:"title"`
	Speaker       string    `json:"speaker,omitempty"` // Empty for committee documents
	Date          Date      `json:"date"`
	Content       string    `json:"content"`  // Cleaned text, fingerprinted
	RawHTML       string    `json:"raw_html"` // Raw fetched payload kept for reprocessing
	HasAttachment bool      `json:"has_pdf"`
	AttachmentURL string    `json:"pdf_url,omitempty"`
	AcquiredAt    time.Time `json:"scraped_at"`
	Fingerprint   string    `json:"content_hash"` // SHA-256 of Content
}

// New creates a Document with its content-addressed identifier computed
// from category, date and the SHA-256 fingerprint of the cleaned content:
//
//	<category>_<YYYYMMDD>_<fingerprint[:8]>
//
// Identical content on the same date yields the same identifier.
func New(url string, category Category, title string, date Date, content, rawHTML, speaker, attachmentURL string) *Document {
	fingerprint := utils.SHA256Hex(content)
	return &Document{
		ID:            fmt.Sprintf("%s_%s_%s", category, date.Format("20060102"), fingerprint[:8]),
		URL:           url,
		Category:      category,
		Title:         title,
		Speaker:       speaker,
		Date:          date,
		Content:       content,
		RawHTML:       rawHTML,
		HasAttachment: attachmentURL != "",
		AttachmentURL: attachmentURL,
		AcquiredAt:    time.Now().UTC(),
		Fingerprint:   fingerprint,
	}
}

// MarshalLine serializes the document as one self-contained JSONL line
// (without the trailing newline).
func (d *Document) MarshalLine() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", d.ID, err)
	}
	return data, nil
}

// FromLine deserializes one JSONL line into a Document, rejecting
// records that are structurally valid JSON but missing required fields.
func FromLine(line []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(line, &d); err != nil {
		return nil, fmt.Errorf("%w: unmarshal document line: %w", utils.ErrParsing, err)
	}
	if strings.TrimSpace(d.URL) == "" || strings.TrimSpace(d.ID) == "" {
		return nil, fmt.Errorf("%w: document line missing url or doc_id", utils.ErrParsing)
	}
	if _, err := ParseCategory(string(d.Category)); err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrParsing, err)
	}
	return &d, nil
}
