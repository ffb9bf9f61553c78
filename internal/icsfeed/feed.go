// Package icsfeed exports documents as an iCalendar feed so calendar
// clients can subscribe to them.
package icsfeed

import (
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/starford/mdcal/internal/models"
	"github.com/starford/mdcal/internal/parser"
)

const (
	productID = "-//mdcal//Document Calendar//EN"

	// PropertyStatus and PropertyID carry document fields that have no
	// iCalendar equivalent.
	PropertyStatus = ical.ComponentProperty("X-MDCAL-STATUS")
	PropertyID     = ical.ComponentProperty("X-MDCAL-ID")

	descriptionRunes = 280
)

// namespace seeds the name-based event UIDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/starford/mdcal/documents"))

// Options tunes Build. Zero values are usable.
type Options struct {
	Name string
	Now  func() time.Time
}

// UID returns the stable event UID of a document id. Renaming a document
// changes its id and therefore its UID.
func UID(id string) string {
	return uuid.NewSHA1(namespace, []byte(id)).String() + "@mdcal"
}

// Build renders docs as a VCALENDAR with one VEVENT per document. Times are
// written in UTC. An end date before the start date is clamped to the
// start so the event stays valid.
func Build(docs []models.Document, opts Options) string {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := now().UTC()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for i := range docs {
		d := &docs[i]
		start := time.UnixMilli(d.StartDate).UTC()
		end := time.UnixMilli(d.EndDate).UTC()
		if end.Before(start) {
			end = start
		}

		ev := cal.AddEvent(UID(d.ID))
		ev.SetDtStampTime(stamp)
		ev.SetCreatedTime(time.UnixMilli(d.CreatedAt).UTC())
		ev.SetModifiedAt(time.UnixMilli(d.UpdatedAt).UTC())
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(d.Title)
		if desc := parser.Excerpt([]byte(d.Content), descriptionRunes); desc != "" {
			ev.SetDescription(desc)
		}
		ev.SetProperty(PropertyID, d.ID)
		ev.SetProperty(PropertyStatus, d.Status)
	}
	return cal.Serialize()
}
