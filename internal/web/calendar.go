package web

import (
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"eventpage/internal/backend"
	"eventpage/internal/ics"
	appLog "eventpage/internal/log"
	"eventpage/internal/model"
)

// handleCalendar exports the schedule, filtered by q when present, as an
// iCalendar feed placed on the configured event day.
//
// GET /calendar.ics?q=AI
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Calendar.Date == "" {
		writeError(w, http.StatusNotFound, "calendar export is not configured")
		return
	}
	loc := s.cfg.CalendarLocation()
	day, err := ics.ParseDay(s.cfg.Calendar.Date, loc)
	if err != nil {
		appLog.Error("calendar: bad event date", err)
		writeError(w, http.StatusInternalServerError, "calendar export is misconfigured")
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	ctx := r.Context()

	var (
		event    backend.Outcome[model.Event]
		schedule backend.Outcome[[]model.ScheduleItem]
		g        errgroup.Group
	)
	g.Go(func() error {
		event = s.fetcher.FetchEvent(ctx)
		return nil
	})
	g.Go(func() error {
		schedule = s.fetcher.FetchSchedule(ctx, q)
		return nil
	})
	_ = g.Wait()

	if !schedule.OK() {
		writeError(w, http.StatusBadGateway, "schedule is unavailable")
		return
	}

	res, err := ics.Export(event.OrEmpty(), schedule.Value, ics.ExportOptions{
		Day:      day,
		Location: loc,
	})
	if err != nil {
		appLog.Error("calendar: export failed", err)
		writeError(w, http.StatusInternalServerError, "calendar export failed")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(res.Calendar.Serialize()))
}
