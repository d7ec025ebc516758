// Package calendar assembles per-locale holiday documents and encodes them as
// RFC 5545 calendars.
package calendar

import (
	"strings"

	"calgen/internal/manifest"
	"calgen/internal/models"
)

const (
	// ProductID identifies the generator in every document's PRODID.
	ProductID = "-//calgen//Holiday Calendar Generator//EN"
	Version   = "2.0"
)

// Document is one locale's calendar. It is not modified after assembly.
type Document struct {
	ProductID string
	Version   string
	Name      string
	Locale    models.Locale
	Events    []models.Event
}

// FileName returns the output name for a locale: its display name without
// whitespace, suffixed with Holidays.ics.
func FileName(locale models.Locale) string {
	return strings.Join(strings.Fields(locale.Name), "") + "Holidays.ics"
}

// Assembler builds documents and their manifest entries for one generation run.
type Assembler struct {
	ProductID   string
	Attribution string
	StartYear   int
	EndYear     int
}

// Assemble concatenates mixin events and fetched events, in that order and
// otherwise in insertion order, into a document for locale.
func (a Assembler) Assemble(locale models.Locale, fetched, mixins []models.Event) (*Document, manifest.Entry) {
	productID := a.ProductID
	if productID == "" {
		productID = ProductID
	}

	events := make([]models.Event, 0, len(mixins)+len(fetched))
	events = append(events, mixins...)
	events = append(events, fetched...)

	doc := &Document{
		ProductID: productID,
		Version:   Version,
		Name:      locale.Name + " Holidays",
		Locale:    locale,
		Events:    events,
	}
	entry := manifest.Entry{
		Country:     locale.Name,
		Path:        FileName(locale),
		Years:       manifest.YearSpan(a.StartYear, a.EndYear),
		Attribution: a.Attribution,
	}
	return doc, entry
}
