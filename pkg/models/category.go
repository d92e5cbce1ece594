package models

import "fmt"

// Category identifies the kind of Federal Reserve document a record holds.
// The set is closed; a stored document never changes category.
type Category string

const (
	CategoryStatement Category = "statement" // FOMC monetary policy statements
	CategoryMinutes   Category = "minutes"   // FOMC meeting minutes
	CategorySpeech    Category = "speech"    // Speeches by Fed officials
	CategoryTestimony Category = "testimony" // Congressional testimony
)

// AllCategories returns every known category in a stable order.
func AllCategories() []Category {
	return []Category{CategoryStatement, CategoryMinutes, CategorySpeech, CategoryTestimony}
}

// ParseCategory validates a user-supplied category string.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryStatement, CategoryMinutes, CategorySpeech, CategoryTestimony:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown document category %q (valid: statement, minutes, speech, testimony)", s)
}

func (c Category) String() string { return string(c) }
