// Package mixin supplies recurring occasions that no provider reliably returns.
package mixin

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"calgen/internal/models"
)

// Rule describes one supplemental event by its RFC 5545 recurrence rule.
type Rule struct {
	ID          string
	Name        string
	Description string
	RRule       string
	Category    models.Category
}

// DefaultRules is the fixed set of locale-independent mixins.
var DefaultRules = []Rule{
	{
		ID:       "mixin-new-years-eve",
		Name:     "New Year's Eve",
		RRule:    "FREQ=YEARLY;BYMONTH=12;BYMONTHDAY=31",
		Category: models.CategoryObservance,
	},
	{
		ID:       "mixin-valentines-day",
		Name:     "Valentine's Day",
		RRule:    "FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=14",
		Category: models.CategoryObservance,
	},
	{
		ID:       "mixin-halloween",
		Name:     "Halloween",
		RRule:    "FREQ=YEARLY;BYMONTH=10;BYMONTHDAY=31",
		Category: models.CategoryObservance,
	},
	{
		ID:          "mixin-leap-day",
		Name:        "Leap Day",
		Description: "February 29th, added every four years to keep the calendar in step with the seasons.",
		RRule:       "FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=29",
		Category:    models.CategoryObservance,
	},
}

// Supplementer produces mixin events.
type Supplementer struct {
	rules []Rule
}

// New validates rules and returns a Supplementer for them.
func New(rules []Rule) (*Supplementer, error) {
	for _, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("mixin %q has no id", r.Name)
		}
		if _, err := rrule.StrToRRule(r.RRule); err != nil {
			return nil, fmt.Errorf("mixin %s: invalid rrule %q: %w", r.ID, r.RRule, err)
		}
	}
	return &Supplementer{rules: append([]Rule(nil), rules...)}, nil
}

// Default returns a Supplementer for DefaultRules.
func Default() *Supplementer {
	s, err := New(DefaultRules)
	if err != nil {
		panic(err)
	}
	return s
}

// None returns a Supplementer without rules.
func None() *Supplementer {
	return &Supplementer{}
}

// GlobalEvents returns one recurring event per rule. Each event starts at the
// rule's first occurrence on or after January 1st of year and carries the rule,
// so calendar clients expand the remaining years themselves.
func (s *Supplementer) GlobalEvents(year int) []models.Event {
	events := make([]models.Event, 0, len(s.rules))
	for _, r := range s.rules {
		first, ok := firstOccurrence(r.RRule, year)
		if !ok {
			continue
		}
		events = append(events, models.Event{
			UniqueID:    r.ID,
			Name:        r.Name,
			Description: r.Description,
			Date:        first,
			Category:    r.Category,
			Recurrence:  r.RRule,
			Year:        year,
		})
	}
	return events
}

// LocaleEvents returns mixins specific to one locale. None are defined yet.
func (s *Supplementer) LocaleEvents(locale models.Locale, year int) []models.Event {
	return nil
}

// Events returns the global mixins followed by the locale's own.
func (s *Supplementer) Events(locale models.Locale, year int) []models.Event {
	return append(s.GlobalEvents(year), s.LocaleEvents(locale, year)...)
}

func firstOccurrence(rule string, year int) (models.Date, bool) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return models.Date{}, false
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	r.DTStart(start)
	next := r.After(start, true)
	if next.IsZero() {
		return models.Date{}, false
	}
	return models.DateOf(next), true
}
