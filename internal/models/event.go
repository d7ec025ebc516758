package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the holiday classification used to derive calendar transparency.
type Category string

const (
	CategoryNational   Category = "national"
	CategoryLocal      Category = "local"
	CategoryReligious  Category = "religious"
	CategoryObservance Category = "observance"
)

// Categories lists every known category in a stable order.
var Categories = []Category{CategoryNational, CategoryLocal, CategoryReligious, CategoryObservance}

// ParseCategory maps a provider or configuration label onto a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown holiday category %q", s)
}

// Transparency returns the TRANSP value for events of this category.
// Only national holidays block availability.
func (c Category) Transparency() Transparency {
	if c == CategoryNational {
		return TransparencyOpaque
	}
	return TransparencyTransparent
}

// Transparency is the RFC 5545 TRANSP property value.
type Transparency string

const (
	TransparencyOpaque      Transparency = "OPAQUE"
	TransparencyTransparent Transparency = "TRANSPARENT"
)

// Locale pairs the country code sent upstream with its display name.
type Locale struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// Event represents one normalized holiday.
// This is an internal representation, independent of any specific holiday provider.
// An Event always carries a resolved Date; records without one are skipped during normalization.
type Event struct {
	UniqueID    string   // Provider-assigned identifier, stable across fetches
	Name        string   // Display title, empty if upstream omitted it
	Description string   // Free text, empty when absent
	Date        Date     // Civil date of the holiday
	Category    Category // Drives transparency
	Recurrence  string   // Optional RRULE value, e.g. "FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=14"
	Year        int      // Generation year this instance belongs to
}

// UID returns the calendar UID, unique per provider identifier and generation year.
func (e Event) UID() string {
	return fmt.Sprintf("%s-%d", e.UniqueID, e.Year)
}

// Record is the flattened set of fields written for one calendar component.
type Record struct {
	UID          string
	Summary      string
	Description  string
	Start        Date
	End          Date // exclusive
	Transparency Transparency
	Category     Category
	Recurrence   string
	Stamp        time.Time
}

// Record derives the output fields of the event. Holidays are whole-day
// events with an exclusive end on the following day. now becomes the
// DTSTAMP/LAST-MODIFIED value.
func (e Event) Record(now time.Time) Record {
	return Record{
		UID:          e.UID(),
		Summary:      e.Name,
		Description:  e.Description,
		Start:        e.Date,
		End:          e.Date.AddDays(1),
		Transparency: e.Category.Transparency(),
		Category:     e.Category,
		Recurrence:   e.Recurrence,
		Stamp:        now.UTC(),
	}
}
