// Package ics converts between rule occurrences and iCalendar data: it
// exports occurrences as all-day VEVENTs and imports extra civil holidays
// from .ics files.
package ics

import (
	"errors"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "panchcal/internal/log"
	"panchcal/internal/model"
)

const (
	DefaultProductID    = "-//panchcal//Malayalam Calendar//EN"
	DefaultCalendarName = "Malayalam Calendar"
)

// uidNamespace scopes the name-based UUIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://panchcal.invalid/events"))

// Exporter renders occurrences as an iCalendar document.
type Exporter struct {
	ProductID    string
	CalendarName string

	// Location is advertised as X-WR-TIMEZONE. All-day events carry no zone.
	Location *time.Location

	// Now stamps DTSTAMP. Defaults to time.Now.
	Now func() time.Time
}

// UID returns the stable identifier of the occurrence named name on d.
// Re-exporting the same range yields the same UIDs, so subscribed clients
// update events in place.
func UID(d model.Date, name string) string {
	return uuid.NewSHA1(uidNamespace, []byte(d.String()+"/"+name)).String()
}

// Calendar builds the VCALENDAR for occ.
func (e Exporter) Calendar(occ []model.DatedOccurrence) *ical.Calendar {
	productID := e.ProductID
	if productID == "" {
		productID = DefaultProductID
	}
	name := e.CalendarName
	if name == "" {
		name = DefaultCalendarName
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	stamp := now().UTC()

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(name)
	if e.Location != nil {
		cal.SetXWRTimezone(e.Location.String())
	}

	for _, o := range occ {
		start := time.Date(o.Date.Year, o.Date.Month, o.Date.Day, 0, 0, 0, 0, time.UTC)

		ev := cal.AddEvent(UID(o.Date, o.Name))
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		ev.SetSummary(o.Name)
		if o.Description != "" {
			ev.SetDescription(o.Description)
		}
		ev.AddProperty(ical.ComponentPropertyCategories, string(o.Category))
		ev.AddProperty(ical.ComponentPropertyTransp, "TRANSPARENT")
	}
	return cal
}

// Export writes the VCALENDAR for occ to w.
func (e Exporter) Export(w io.Writer, occ []model.DatedOccurrence) error {
	if w == nil {
		return errors.New("ics: nil writer")
	}
	body := e.Calendar(occ).Serialize()
	if _, err := io.WriteString(w, body); err != nil {
		appLog.Error("ics export write failed", err, "events", len(occ))
		return err
	}
	appLog.Debug("ics export completed", "events", len(occ), "bytes", len(body))
	return nil
}
