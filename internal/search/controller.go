// Package search drives one page session: it reads the query from the page
// address, fetches event data, renders it and decides whether the
// "no results" notice is shown.
package search

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"eventpage/internal/backend"
	appLog "eventpage/internal/log"
	"eventpage/internal/model"
	"eventpage/internal/notice"
	"eventpage/internal/querystate"
	"eventpage/internal/render"
)

// Fetcher is the subset of backend.Client the controller needs.
type Fetcher interface {
	FetchEvent(ctx context.Context) backend.Outcome[model.Event]
	FetchSpeakers(ctx context.Context, q string) backend.Outcome[[]model.Speaker]
	FetchSchedule(ctx context.Context, q string) backend.Outcome[[]model.ScheduleItem]
}

// Page groups the render targets of one session.
type Page struct {
	Document *render.Document
	Query    *querystate.State
	Notice   *notice.Modal
}

// NewPage returns an empty page for address u.
func NewPage(u *url.URL) Page {
	return Page{
		Document: render.NewDocument(),
		Query:    querystate.New(u),
		Notice:   notice.New(),
	}
}

type Action string

const (
	ActionLoad   Action = "load"
	ActionSubmit Action = "submit"
	ActionClear  Action = "clear"
)

// Result describes what one cycle did.
type Result struct {
	Action Action
	// Query is the filter the cycle used; empty means unfiltered.
	Query string
	// Ignored is set for a submit whose trimmed query was empty. Nothing
	// was fetched or changed.
	Ignored bool
	// Stale is set when a newer cycle started before this one finished.
	// Nothing was applied.
	Stale bool

	SpeakerCount  int
	ScheduleCount int
	NoticeVisible bool

	// Statuses of the reads; failed reads were rendered as empty.
	EventStatus    backend.Status
	SpeakersStatus backend.Status
	ScheduleStatus backend.Status
}

// Degraded reports whether any read of the cycle failed.
func (r Result) Degraded() bool {
	return r.EventStatus != backend.StatusOK ||
		r.SpeakersStatus != backend.StatusOK ||
		r.ScheduleStatus != backend.StatusOK
}

// Controller orchestrates QueryState, the fetcher, the renderer and the
// notice for one page. It is safe for concurrent use; the most recently
// started cycle wins and older cycles are canceled and discarded.
type Controller struct {
	fetcher  Fetcher
	renderer *render.Renderer
	page     Page

	// mu guards generation and cancel, and serialises applying results to
	// the page so that the address and the result regions change together.
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

func New(f Fetcher, r *render.Renderer, page Page) *Controller {
	return &Controller{fetcher: f, renderer: r, page: page}
}

// Page returns the render targets driven by c.
func (c *Controller) Page() Page {
	return c.page
}

// Load runs the initial cycle: the event unfiltered, speakers and schedule
// filtered by the address's q when non-empty.
func (c *Controller) Load(ctx context.Context) (Result, error) {
	raw, _ := c.page.Query.Get()
	res := Result{Action: ActionLoad, Query: raw}

	cctx, gen, done := c.begin(ctx)
	defer done()
	f := c.fetchAll(cctx, raw, true)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		res.Stale = true
		return res, nil
	}

	doc := c.page.Document
	if f.event.OK() {
		if err := c.renderer.RenderEvent(doc, f.event.Value); err != nil {
			return res, err
		}
	}
	if raw != "" {
		doc.SetSearchInput(raw)
		doc.SetClearVisible(true)
	}
	if err := c.renderLists(&res, f); err != nil {
		return res, err
	}
	if raw != "" && res.SpeakerCount == 0 && res.ScheduleCount == 0 {
		c.page.Notice.Open()
	}
	res.NoticeVisible = c.page.Notice.Visible()
	c.logCycle(res)
	return res, nil
}

// Submit runs a search for the trimmed query. A blank query is ignored.
func (c *Controller) Submit(ctx context.Context, raw string) (Result, error) {
	q := strings.TrimSpace(raw)
	res := Result{Action: ActionSubmit, Query: q}
	if q == "" {
		res.Ignored = true
		res.NoticeVisible = c.page.Notice.Visible()
		return res, nil
	}

	cctx, gen, done := c.begin(ctx)
	defer done()
	f := c.fetchAll(cctx, q, false)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		res.Stale = true
		return res, nil
	}

	c.page.Query.Set(q)
	c.page.Document.SetSearchInput(q)
	c.page.Document.SetClearVisible(true)
	if err := c.renderLists(&res, f); err != nil {
		return res, err
	}
	if res.SpeakerCount == 0 && res.ScheduleCount == 0 {
		c.page.Notice.Open()
	} else {
		c.page.Notice.Close(notice.ReasonProgrammatic)
	}
	res.NoticeVisible = c.page.Notice.Visible()
	c.logCycle(res)
	return res, nil
}

// Clear drops the query, restores the unfiltered lists and closes the
// notice. Empty unfiltered lists never open the notice.
func (c *Controller) Clear(ctx context.Context) (Result, error) {
	res := Result{Action: ActionClear}

	cctx, gen, done := c.begin(ctx)
	defer done()
	f := c.fetchAll(cctx, "", false)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		res.Stale = true
		return res, nil
	}

	c.page.Document.SetSearchInput("")
	c.page.Document.SetClearVisible(false)
	c.page.Query.Clear()
	if err := c.renderLists(&res, f); err != nil {
		return res, err
	}
	c.page.Notice.Close(notice.ReasonProgrammatic)
	res.NoticeVisible = false
	c.logCycle(res)
	return res, nil
}

// View is a consistent snapshot of the page.
type View struct {
	URL           *url.URL
	Title         string
	Regions       map[render.Region]string
	SearchInput   string
	ClearVisible  bool
	NoticeVisible bool
}

// Snapshot reads the page while no cycle is being applied.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	regions := c.page.Document.Regions()
	out := make(map[render.Region]string, len(regions))
	for k, v := range regions {
		out[k] = string(v)
	}
	return View{
		URL:           c.page.Query.URL(),
		Title:         c.page.Document.Title(),
		Regions:       out,
		SearchInput:   c.page.Document.SearchInput(),
		ClearVisible:  c.page.Document.ClearVisible(),
		NoticeVisible: c.page.Notice.Visible(),
	}
}

// begin starts a new cycle, canceling the previous one.
func (c *Controller) begin(ctx context.Context) (context.Context, uint64, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	cctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	return cctx, gen, func() {
		cancel()
		c.mu.Lock()
		if c.generation == gen {
			c.cancel = nil
		}
		c.mu.Unlock()
	}
}

type fetched struct {
	event    backend.Outcome[model.Event]
	speakers backend.Outcome[[]model.Speaker]
	schedule backend.Outcome[[]model.ScheduleItem]
}

// fetchAll issues the reads of one cycle concurrently and waits for all of
// them. Each goroutine writes its own field.
func (c *Controller) fetchAll(ctx context.Context, q string, withEvent bool) fetched {
	var f fetched
	var g errgroup.Group
	if withEvent {
		g.Go(func() error {
			f.event = c.fetcher.FetchEvent(ctx)
			return nil
		})
	}
	g.Go(func() error {
		f.speakers = c.fetcher.FetchSpeakers(ctx, q)
		return nil
	})
	g.Go(func() error {
		f.schedule = c.fetcher.FetchSchedule(ctx, q)
		return nil
	})
	_ = g.Wait()
	return f
}

// renderLists must be called with mu held.
func (c *Controller) renderLists(res *Result, f fetched) error {
	res.EventStatus = f.event.Status
	res.SpeakersStatus = f.speakers.Status
	res.ScheduleStatus = f.schedule.Status

	n, err := c.renderer.RenderSpeakers(c.page.Document, f.speakers.OrEmpty())
	if err != nil {
		return err
	}
	res.SpeakerCount = n

	n, err = c.renderer.RenderSchedule(c.page.Document, f.schedule.OrEmpty())
	if err != nil {
		return err
	}
	res.ScheduleCount = n
	return nil
}

func (c *Controller) logCycle(res Result) {
	appLog.Debug("search cycle applied",
		"action", string(res.Action),
		"query", res.Query,
		"speakers", res.SpeakerCount,
		"schedule", res.ScheduleCount,
		"notice", res.NoticeVisible,
		"degraded", res.Degraded(),
	)
}
