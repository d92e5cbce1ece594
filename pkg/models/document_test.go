package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fedcorpus/pkg/utils"
)

func TestNew_DeterministicID(t *testing.T) {
	date := NewDate(2023, time.March, 22)

	a := New("https://www.federalreserve.gov/x.htm", CategoryStatement, "FOMC Statement", date, "content body", "<html/>", "", "")
	b := New("https://www.federalreserve.gov/x.htm", CategoryStatement, "FOMC Statement", date, "content body", "<html/>", "", "")

	assert.Equal(t, a.ID, b.ID, "same category, date and content must yield the same ID")
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.Regexp(t, `^statement_20230322_[0-9a-f]{8}$`, a.ID)
}

func TestNew_ContentChangeFlipsID(t *testing.T) {
	date := NewDate(2023, time.March, 22)

	a := New("https://example.org/x", CategorySpeech, "Title", date, "content body", "", "Chair Powell", "")
	b := New("https://example.org/x", CategorySpeech, "Title", date, "content body.", "", "Chair Powell", "")

	assert.NotEqual(t, a.ID, b.ID, "a one-character content change must change the ID")
	assert.NotEqual(t, a.Fingerprint, b.Fingerprint)
}

func TestNew_FingerprintMatchesContentHash(t *testing.T) {
	doc := New("https://example.org/x", CategoryMinutes, "Minutes", NewDate(2024, time.January, 31), "minutes text", "", "", "")
	assert.Equal(t, utils.SHA256Hex("minutes text"), doc.Fingerprint)
	assert.Equal(t, doc.Fingerprint[:8], doc.ID[len(doc.ID)-8:])
}

func TestNew_AttachmentFlag(t *testing.T) {
	date := NewDate(2024, time.June, 12)

	plain := New("https://example.org/a", CategoryTestimony, "T", date, "body", "", "", "")
	assert.False(t, plain.HasAttachment)
	assert.Empty(t, plain.AttachmentURL)

	withPDF := New("https://example.org/b", CategoryTestimony, "T", date, "body", "", "", "https://example.org/b.pdf")
	assert.True(t, withPDF.HasAttachment)
	assert.Equal(t, "https://example.org/b.pdf", withPDF.AttachmentURL)
}

func TestDocument_LineRoundTrip(t *testing.T) {
	doc := New(
		"https://www.federalreserve.gov/newsevents/speech/powell20240112a.htm",
		CategorySpeech,
		"Economic Outlook",
		NewDate(2024, time.January, 12),
		"speech body",
		"<html><body>speech body</body></html>",
		"Chair Jerome H. Powell",
		"https://www.federalreserve.gov/powell20240112a.pdf",
	)

	line, err := doc.MarshalLine()
	require.NoError(t, err)
	assert.Contains(t, string(line), `"doc_type":"speech"`)
	assert.Contains(t, string(line), `"date":"2024-01-12"`)
	assert.Contains(t, string(line), `"has_pdf":true`)

	got, err := FromLine(line)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.URL, got.URL)
	assert.Equal(t, doc.Category, got.Category)
	assert.Equal(t, doc.Speaker, got.Speaker)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, doc.Fingerprint, got.Fingerprint)
	assert.True(t, doc.Date.Equal(got.Date.Time))
}

func TestFromLine_RejectsBadRecords(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"not json", `{"doc_id": truncated`},
		{"missing url", `{"doc_id":"statement_20230322_abcd1234","doc_type":"statement","date":"2023-03-22"}`},
		{"missing doc_id", `{"url":"https://example.org/x","doc_type":"statement","date":"2023-03-22"}`},
		{"unknown category", `{"doc_id":"x_1","url":"https://example.org/x","doc_type":"press_release","date":"2023-03-22"}`},
		{"bad date", `{"doc_id":"x_1","url":"https://example.org/x","doc_type":"statement","date":"03/22/2023"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromLine([]byte(tc.line))
			require.Error(t, err)
			assert.True(t, errors.Is(err, utils.ErrParsing), "error should wrap ErrParsing, got: %v", err)
		})
	}
}

func TestParseCategory(t *testing.T) {
	for _, cat := range AllCategories() {
		got, err := ParseCategory(string(cat))
		require.NoError(t, err)
		assert.Equal(t, cat, got)
	}

	_, err := ParseCategory("press_release")
	assert.Error(t, err)
}
