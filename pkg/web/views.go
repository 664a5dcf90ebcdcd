// Package web renders server-side HTML pages from pre-parsed templates and
// serves static files from disk or an embedded filesystem.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

// ViewDef names a page template and its document title.
type ViewDef struct {
	Template string
	Title    string
}

// ViewData is passed to every page template.
type ViewData struct {
	Title   string
	Flashes []string
	Data    any
}

// TemplateSet holds pre-parsed templates, one clone of the layouts per view.
type TemplateSet struct {
	views  map[string]*template.Template
	layout string
}

// NewTemplateSet parses the layouts matched by layoutGlob in fsys and clones them
// for each view found under viewSubdir. layout names the template every Render executes.
// Parsing at construction fails fast on template errors.
func NewTemplateSet(fsys fs.FS, layoutGlob, viewSubdir, layout string, funcs template.FuncMap, views []ViewDef) (*TemplateSet, error) {
	layouts, err := template.New("").Funcs(funcs).ParseFS(fsys, layoutGlob)
	if err != nil {
		return nil, err
	}

	viewSub, err := fs.Sub(fsys, viewSubdir)
	if err != nil {
		return nil, err
	}

	viewTemplates := make(map[string]*template.Template, len(views))
	for _, v := range views {
		t, err := layouts.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layouts for %s: %w", v.Template, err)
		}
		if _, err := t.ParseFS(viewSub, v.Template); err != nil {
			return nil, fmt.Errorf("parse template: %s: %w", v.Template, err)
		}
		viewTemplates[v.Template] = t
	}

	return &TemplateSet{
		views:  viewTemplates,
		layout: layout,
	}, nil
}

// Render executes the view into a buffer and writes it with status only when
// execution succeeds, so a failing template never produces a partial page.
func (ts *TemplateSet) Render(w http.ResponseWriter, status int, view ViewDef, data ViewData) error {
	t, ok := ts.views[view.Template]
	if !ok {
		return fmt.Errorf("template not found: %s", view.Template)
	}
	if data.Title == "" {
		data.Title = view.Title
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, ts.layout, data); err != nil {
		return fmt.Errorf("render %s: %w", view.Template, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// ErrorHandler returns a handler that renders view with the given status code,
// falling back to plain text if the template itself fails.
func (ts *TemplateSet) ErrorHandler(view ViewDef, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ts.Render(w, status, view, ViewData{}); err != nil {
			http.Error(w, http.StatusText(status), status)
		}
	}
}
