package calendar

import (
	"bytes"
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/emersion/go-ical"

	"calgen/internal/models"
)

const (
	propCalendarName = "X-WR-CALNAME"
	propCalScale     = "CALSCALE"
	categoryHolidays = "Holidays"
)

// Encode writes d as an iCalendar document. now is used for DTSTAMP and
// LAST-MODIFIED of every event.
func (d *Document) Encode(w io.Writer, now time.Time) error {
	if len(d.Events) == 0 {
		return d.encodeEmpty(w)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, d.Version)
	cal.Props.SetText(ical.PropProductID, d.ProductID)
	setRaw(cal.Props, propCalScale, "GREGORIAN")
	if d.Name != "" {
		cal.Props.SetText(propCalendarName, d.Name)
	}

	for _, ev := range d.Events {
		cal.Children = append(cal.Children, toICal(ev.Record(now)))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode %s calendar: %w", d.Locale.Code, err)
	}
	return nil
}

// encodeEmpty writes a VCALENDAR without components. go-ical refuses to encode
// an empty calendar, golang-ical does not.
func (d *Document) encodeEmpty(w io.Writer) error {
	cal := ics.NewCalendar()
	cal.SetVersion(d.Version)
	cal.SetProductId(d.ProductID)
	cal.SetCalscale("GREGORIAN")
	if d.Name != "" {
		cal.SetXWRCalName(d.Name)
	}
	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("failed to encode %s calendar: %w", d.Locale.Code, err)
	}
	return nil
}

// Bytes returns the encoded document.
func (d *Document) Bytes(now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf, now); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toICal converts an output record to an all-day VEVENT.
func toICal(rec models.Record) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, rec.UID)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, rec.Stamp)
	ve.Props.SetDateTime(ical.PropLastModified, rec.Stamp)
	setDate(ve.Props, ical.PropDateTimeStart, rec.Start)
	setDate(ve.Props, ical.PropDateTimeEnd, rec.End)
	ve.Props.SetText(ical.PropSummary, rec.Summary)

	if rec.Description != "" {
		ve.Props.SetText(ical.PropDescription, rec.Description)
	}
	setRaw(ve.Props, ical.PropClass, "PUBLIC")
	setRaw(ve.Props, ical.PropTransparency, string(rec.Transparency))
	if rec.Category != "" {
		setRaw(ve.Props, ical.PropCategories, categoryHolidays+","+string(rec.Category))
	} else {
		setRaw(ve.Props, ical.PropCategories, categoryHolidays)
	}
	if rec.Recurrence != "" {
		setRaw(ve.Props, ical.PropRecurrenceRule, rec.Recurrence)
	}
	return ve
}

// setDate sets a VALUE=DATE property.
func setDate(props ical.Props, name string, d models.Date) {
	p := ical.NewProp(name)
	p.Params.Set(ical.ParamValue, string(ical.ValueDate))
	p.Value = d.Time().Format("20060102")
	props.Set(p)
}

// setRaw sets a property whose value must not be TEXT-escaped (lists, rules, enums).
func setRaw(props ical.Props, name, value string) {
	p := ical.NewProp(name)
	p.Value = value
	props.Set(p)
}
