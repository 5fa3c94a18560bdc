package web

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"

	appLog "eventpage/internal/log"
	"eventpage/internal/render"
	"eventpage/internal/search"
)

// indexData feeds templates/index.tmpl.
type indexData struct {
	Title         string
	EventInfo     template.HTML
	Speakers      template.HTML
	Schedule      template.HTML
	SearchInput   string
	ClearVisible  bool
	NoticeVisible bool
	Degraded      bool
}

// patchResponse is what /ui/search and /ui/clear return to the page script.
type patchResponse struct {
	URL           string            `json:"url"`
	Title         string            `json:"title,omitempty"`
	Regions       map[string]string `json:"regions,omitempty"`
	SearchInput   string            `json:"search_input"`
	ClearVisible  bool              `json:"clear_visible"`
	NoticeVisible bool              `json:"notice_visible"`
	SpeakerCount  int               `json:"speaker_count"`
	ScheduleCount int               `json:"schedule_count"`
	Ignored       bool              `json:"ignored,omitempty"`
	Stale         bool              `json:"stale,omitempty"`
	Degraded      bool              `json:"degraded,omitempty"`
}

// handleIndex renders the full page for GET /?q=...
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := search.NewPage(&url.URL{Path: "/", RawQuery: r.URL.RawQuery})
	ctrl := search.New(s.fetcher, s.renderer, page)

	res, err := ctrl.Load(r.Context())
	if err != nil {
		appLog.Error("index: load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	doc := page.Document
	data := indexData{
		Title:         doc.Title(),
		SearchInput:   doc.SearchInput(),
		ClearVisible:  doc.ClearVisible(),
		NoticeVisible: page.Notice.Visible(),
		Degraded:      res.Degraded(),
	}
	data.EventInfo, _ = doc.Region(render.RegionEventInfo)
	data.Speakers, _ = doc.Region(render.RegionSpeakers)
	data.Schedule, _ = doc.Region(render.RegionSchedule)

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		appLog.Error("index: template failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleSearch runs a submit against the page address posted in "url".
//
// POST /ui/search  (form: q, url)
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.sessionFromForm(w, r)
	if !ok {
		return
	}
	res, err := ctrl.Submit(r.Context(), r.PostFormValue("q"))
	if err != nil {
		appLog.Error("ui search failed", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, patchFrom(ctrl, res))
}

// handleClear drops q from the posted page address.
//
// POST /ui/clear  (form: url)
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.sessionFromForm(w, r)
	if !ok {
		return
	}
	res, err := ctrl.Clear(r.Context())
	if err != nil {
		appLog.Error("ui clear failed", err)
		writeError(w, http.StatusInternalServerError, "clear failed")
		return
	}
	writeJSON(w, http.StatusOK, patchFrom(ctrl, res))
}

// sessionFromForm builds a controller for the page address in the "url"
// form field. Only the path and query of that address are kept.
func (s *Server) sessionFromForm(w http.ResponseWriter, r *http.Request) (*search.Controller, bool) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return nil, false
	}
	addr := &url.URL{Path: "/"}
	if raw := r.PostFormValue("url"); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid page url")
			return nil, false
		}
		addr.RawQuery = u.RawQuery
	}
	return search.New(s.fetcher, s.renderer, search.NewPage(addr)), true
}

func patchFrom(ctrl *search.Controller, res search.Result) patchResponse {
	view := ctrl.Snapshot()
	out := patchResponse{
		URL:           view.URL.RequestURI(),
		Title:         view.Title,
		SearchInput:   view.SearchInput,
		ClearVisible:  view.ClearVisible,
		NoticeVisible: view.NoticeVisible,
		SpeakerCount:  res.SpeakerCount,
		ScheduleCount: res.ScheduleCount,
		Ignored:       res.Ignored,
		Stale:         res.Stale,
	}
	if res.Ignored || res.Stale {
		return out
	}
	out.Degraded = res.Degraded()
	out.Regions = make(map[string]string, len(view.Regions))
	for k, v := range view.Regions {
		out.Regions[string(k)] = v
	}
	return out
}
