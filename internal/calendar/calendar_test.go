package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calgen/internal/models"
)

var (
	us  = models.Locale{Code: "US", Name: "United States"}
	now = time.Date(2024, time.May, 5, 10, 30, 0, 0, time.UTC)
)

func fetchedEvents() []models.Event {
	return []models.Event{
		{UniqueID: "1001", Name: "New Year's Day", Date: models.NewDate(2024, time.January, 1), Category: models.CategoryNational, Year: 2024},
		{UniqueID: "abc", Name: "Founders Day", Description: "Local; observed, sometimes", Date: models.NewDate(2024, time.March, 15), Category: models.CategoryObservance, Year: 2024},
	}
}

func mixinEvents() []models.Event {
	return []models.Event{
		{UniqueID: "mixin-halloween", Name: "Halloween", Date: models.NewDate(2024, time.October, 31), Category: models.CategoryObservance, Recurrence: "FREQ=YEARLY;BYMONTH=10;BYMONTHDAY=31", Year: 2024},
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "UnitedStatesHolidays.ics", FileName(us))
	assert.Equal(t, "NewZealandHolidays.ics", FileName(models.Locale{Code: "NZ", Name: " New\tZealand "}))
	assert.Equal(t, "CanadaHolidays.ics", FileName(models.Locale{Code: "CA", Name: "Canada"}))
}

func TestAssembleOrderAndManifest(t *testing.T) {
	a := Assembler{Attribution: "Holiday data provided by Test", StartYear: 2024, EndYear: 2025}
	doc, entry := a.Assemble(us, fetchedEvents(), mixinEvents())

	require.Len(t, doc.Events, 3)
	assert.Equal(t, "mixin-halloween", doc.Events[0].UniqueID, "mixins come first")
	assert.Equal(t, "1001", doc.Events[1].UniqueID)
	assert.Equal(t, "abc", doc.Events[2].UniqueID)
	assert.Equal(t, ProductID, doc.ProductID)
	assert.Equal(t, Version, doc.Version)

	assert.Equal(t, "United States", entry.Country)
	assert.Equal(t, "UnitedStatesHolidays.ics", entry.Path)
	assert.Equal(t, "2024-2025", entry.Years)
	assert.Equal(t, "Holiday data provided by Test", entry.Attribution)
}

func TestEncodeEvents(t *testing.T) {
	doc, _ := Assembler{StartYear: 2024, EndYear: 2025}.Assemble(us, fetchedEvents(), mixinEvents())
	data, err := doc.Bytes(now)
	require.NoError(t, err)
	body := string(data)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProductID,
		"UID:1001-2024",
		"DTSTART;VALUE=DATE:20240101",
		"DTEND;VALUE=DATE:20240102",
		"DTSTAMP:20240505T103000Z",
		"LAST-MODIFIED:20240505T103000Z",
		"TRANSP:OPAQUE",
		"TRANSP:TRANSPARENT",
		"CLASS:PUBLIC",
		"CATEGORIES:Holidays,national",
		"RRULE:FREQ=YEARLY;BYMONTH=10;BYMONTHDAY=31",
		"END:VCALENDAR",
	} {
		assert.Contains(t, body, want)
	}
	assert.Equal(t, 3, strings.Count(body, "BEGIN:VEVENT"))

	// An independent parser must accept the document and see the same fields.
	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)

	byUID := map[string]*ics.VEvent{}
	for _, ev := range events {
		byUID[ev.Id()] = ev
	}
	require.Contains(t, byUID, "1001-2024")
	require.Contains(t, byUID, "abc-2024")
	require.Contains(t, byUID, "mixin-halloween-2024")

	assert.Equal(t, "OPAQUE", byUID["1001-2024"].GetProperty(ics.ComponentPropertyTransp).Value)
	assert.Equal(t, "TRANSPARENT", byUID["abc-2024"].GetProperty(ics.ComponentPropertyTransp).Value)
	assert.Equal(t, "20240316", byUID["abc-2024"].GetProperty(ics.ComponentPropertyDtEnd).Value)
	assert.Nil(t, byUID["1001-2024"].GetProperty(ics.ComponentPropertyDescription), "absent description is omitted")
	assert.NotNil(t, byUID["mixin-halloween-2024"].GetProperty(ics.ComponentPropertyRrule))
}

func TestEncodeEscapesText(t *testing.T) {
	doc, _ := Assembler{}.Assemble(us, fetchedEvents(), nil)
	data, err := doc.Bytes(now)
	require.NoError(t, err)
	assert.Contains(t, string(data), `DESCRIPTION:Local\; observed\, sometimes`)
}

func TestEncodeEmptyDocument(t *testing.T) {
	doc, entry := Assembler{StartYear: 2024, EndYear: 2025}.Assemble(models.Locale{Code: "CA", Name: "Canada"}, nil, nil)
	assert.Empty(t, doc.Events)
	assert.Equal(t, "CanadaHolidays.ics", entry.Path)

	data, err := doc.Bytes(now)
	require.NoError(t, err)
	body := string(data)
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "END:VCALENDAR")
	assert.NotContains(t, body, "BEGIN:VEVENT")
	assert.Contains(t, body, "VERSION:2.0")
	assert.Contains(t, body, "PRODID:"+ProductID)
	assert.Contains(t, body, "CALSCALE:GREGORIAN")
	assert.Contains(t, body, "X-WR-CALNAME:Canada Holidays")
	assert.Equal(t, 1, strings.Count(body, "PRODID:"), "product id replaced, not added")

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, cal.Events())
}

func TestEncodeUsesInjectedClock(t *testing.T) {
	doc, _ := Assembler{}.Assemble(us, fetchedEvents(), nil)
	first, err := doc.Bytes(now)
	require.NoError(t, err)
	second, err := doc.Bytes(now)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "same clock, same bytes")

	later, err := doc.Bytes(now.Add(time.Hour))
	require.NoError(t, err)
	assert.NotEqual(t, string(first), string(later))
}
