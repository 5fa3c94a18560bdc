package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "eventpage/internal/log"
	"eventpage/internal/model"
)

// ExportOptions controls how schedule items are placed on the calendar.
type ExportOptions struct {
	// Day is the event date. Only year, month and day are used.
	Day time.Time
	// Location is the zone the item times are written in. If nil,
	// time.Local is used.
	Location *time.Location
	// UIDDomain is appended to item ids to form UIDs. Defaults to
	// "eventpage".
	UIDDomain string
	// Now stamps DTSTAMP. Defaults to time.Now.
	Now func() time.Time
}

// ExportResult is the built calendar plus the ids of items whose time
// could not be parsed.
type ExportResult struct {
	Calendar *ical.Calendar
	Skipped  []string
}

// Export builds a VCALENDAR with one VEVENT per schedule item. Items whose
// time is not a "HH:MM - HH:MM" range are skipped and logged.
func Export(ev model.Event, items []model.ScheduleItem, opts ExportOptions) (ExportResult, error) {
	if opts.Day.IsZero() {
		return ExportResult{}, errors.New("ics: event day is not set")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.UIDDomain == "" {
		opts.UIDDomain = "eventpage"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//eventpage//schedule export//EN")
	if ev.Title != "" {
		cal.SetXWRCalName(ev.Title)
	}
	cal.SetXWRTimezone(opts.Location.String())

	stamp := opts.Now().UTC()
	res := ExportResult{Calendar: cal}

	for i, it := range items {
		start, end, err := ParseTimeRange(it.Time, opts.Day, opts.Location)
		if err != nil {
			id := it.ID
			if id == "" {
				id = fmt.Sprintf("#%d", i)
			}
			appLog.Error("ics export: skipping item with unparsable time", err, "id", id, "time", it.Time)
			res.Skipped = append(res.Skipped, id)
			continue
		}

		uid := it.ID
		if uid == "" {
			uid = fmt.Sprintf("item-%d", i)
		}
		vev := cal.AddEvent(uid + "@" + opts.UIDDomain)
		vev.SetDtStampTime(stamp)
		vev.SetStartAt(start)
		vev.SetEndAt(end)
		vev.SetSummary(it.Title)
		if desc := describe(it); desc != "" {
			vev.SetDescription(desc)
		}
		if ev.Location != "" {
			vev.SetLocation(ev.Location)
		}
		if it.Category != "" {
			vev.SetProperty(ical.ComponentPropertyCategories, it.Category)
		}
	}

	appLog.Debug("ics export completed", "items", len(items), "skipped", len(res.Skipped))
	return res, nil
}

// ParseTimeRange parses a display range such as "09:00 - 10:00" on day in
// loc. Hyphen and en dash separators are accepted. An end before the start
// rolls over to the next day.
func ParseTimeRange(s string, day time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	norm := strings.ReplaceAll(s, "–", "-")
	parts := strings.Split(norm, "-")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("ics: %q is not a time range", s)
	}

	start, err := clockOn(strings.TrimSpace(parts[0]), day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := clockOn(strings.TrimSpace(parts[1]), day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

// ParseDay parses a YYYY-MM-DD config value in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("ics: invalid event date %q: %w", s, err)
	}
	return t, nil
}

func clockOn(v string, day time.Time, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("ics: invalid clock time %q: %w", v, err)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
}

func describe(it model.ScheduleItem) string {
	desc := it.Description
	if !it.HasSpeakers() {
		return desc
	}
	names := make([]string, 0, len(it.SpeakerDetails))
	for _, s := range it.SpeakerDetails {
		if s.Role != "" {
			names = append(names, s.Name+" ("+s.Role+")")
		} else {
			names = append(names, s.Name)
		}
	}
	if desc != "" {
		desc += "\n\n"
	}
	return desc + "Speakers: " + strings.Join(names, ", ")
}
