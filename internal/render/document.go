package render

import (
	"html/template"
	"sync"
)

// Region names a replaceable part of the page.
type Region string

const (
	RegionEventInfo Region = "event-info"
	RegionSpeakers  Region = "speakers-grid"
	RegionSchedule  Region = "schedule-timeline"
)

// Document is the server-side model of the page: its title, the HTML of
// each rendered region and the state of the search controls.
type Document struct {
	mu           sync.RWMutex
	title        string
	regions      map[Region]template.HTML
	searchInput  string
	clearVisible bool
}

func NewDocument() *Document {
	return &Document{regions: make(map[Region]template.HTML)}
}

func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.title
}

func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
}

// Region returns the current content of r and whether it was ever rendered.
func (d *Document) Region(r Region) (template.HTML, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	html, ok := d.regions[r]
	return html, ok
}

// SetRegion replaces the content of r.
func (d *Document) SetRegion(r Region, html template.HTML) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regions[r] = html
}

// Regions returns a copy of every rendered region.
func (d *Document) Regions() map[Region]template.HTML {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[Region]template.HTML, len(d.regions))
	for k, v := range d.regions {
		out[k] = v
	}
	return out
}

func (d *Document) SearchInput() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.searchInput
}

func (d *Document) SetSearchInput(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.searchInput = v
}

// ClearVisible reports whether the inline clear-search control is shown.
func (d *Document) ClearVisible() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.clearVisible
}

func (d *Document) SetClearVisible(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearVisible = v
}
