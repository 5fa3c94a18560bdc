// Package render turns event data into the HTML fragments of the page
// regions. It does no I/O besides writing into a Document.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"eventpage/internal/model"
)

// DefaultBreakID is the schedule item id that marks a non-session entry.
const DefaultBreakID = "lunch"

// Fixed empty-state messages.
const (
	NoSpeakersMessage = "No speakers found."
	NoScheduleMessage = "No schedule items found."
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Options tunes rendering.
type Options struct {
	// BreakID overrides DefaultBreakID.
	BreakID string
	// MarkdownDescriptions renders descriptions as Markdown. Raw HTML in
	// the source is dropped.
	MarkdownDescriptions bool
}

// Renderer maps fetched data onto Document regions.
type Renderer struct {
	tmpl     *template.Template
	breakID  string
	markdown goldmark.Markdown
}

// New parses the embedded fragment templates.
func New(opts Options) (*Renderer, error) {
	r := &Renderer{breakID: opts.BreakID}
	if r.breakID == "" {
		r.breakID = DefaultBreakID
	}
	if opts.MarkdownDescriptions {
		r.markdown = goldmark.New()
	}

	tmpl, err := template.New("fragments").Funcs(template.FuncMap{
		"categoryClass": CategoryClass,
		"isBreak":       func(id string) bool { return id == r.breakID },
		"description":   r.description,

		"noSpeakersMessage": func() string { return NoSpeakersMessage },
		"noScheduleMessage": func() string { return NoScheduleMessage },
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// BreakID is the id that receives the non-session marker.
func (r *Renderer) BreakID() string {
	return r.breakID
}

// RenderEvent replaces the event-info region and sets the document title.
// Empty fields render as empty strings.
func (r *Renderer) RenderEvent(doc *Document, ev model.Event) error {
	html, err := r.execute("event", ev)
	if err != nil {
		return err
	}
	doc.SetRegion(RegionEventInfo, html)
	doc.SetTitle(ev.Title)
	return nil
}

// RenderSpeakers replaces the speaker grid and returns the number of cards
// rendered.
func (r *Renderer) RenderSpeakers(doc *Document, speakers []model.Speaker) (int, error) {
	html, err := r.execute("speakers", speakers)
	if err != nil {
		return 0, err
	}
	doc.SetRegion(RegionSpeakers, html)
	return len(speakers), nil
}

// RenderSchedule replaces the schedule timeline and returns the number of
// entries rendered.
func (r *Renderer) RenderSchedule(doc *Document, items []model.ScheduleItem) (int, error) {
	html, err := r.execute("schedule", items)
	if err != nil {
		return 0, err
	}
	doc.SetRegion(RegionSchedule, html)
	return len(items), nil
}

// CategoryClass turns a category label into its class token: lowercased,
// with every "/" written as `\/`. "Workshop/Talk" becomes `workshop\/talk`.
func CategoryClass(category string) string {
	return strings.ReplaceAll(cases.Lower(language.Und).String(category), "/", `\/`)
}

func (r *Renderer) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render: %s: %w", name, err)
	}
	// Output of html/template is already escaped.
	return template.HTML(buf.String()), nil
}

// description is plain text unless Markdown is enabled.
func (r *Renderer) description(s string) (any, error) {
	if r.markdown == nil {
		return s, nil
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(s), &buf); err != nil {
		return nil, err
	}
	return template.HTML(buf.String()), nil
}
