package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"
)

//go:embed templates
var TemplatesFS embed.FS

//go:embed static
var StaticFS embed.FS

// Templates holds one template set per page. Pages share the base layout but
// not their block definitions.
type Templates struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
	"datetime": func(t *time.Time) string {
		if t == nil {
			return "—"
		}
		return t.Format("2006-01-02 15:04")
	},
	"lower": strings.ToLower,
}

// LoadTemplates parses the base layout together with each page under
// templates/pages.
func LoadTemplates() (*Templates, error) {
	return loadTemplates(TemplatesFS)
}

func loadTemplates(fsys fs.FS) (*Templates, error) {
	entries, err := fs.ReadDir(fsys, "templates/pages")
	if err != nil {
		return nil, err
	}

	t := &Templates{pages: make(map[string]*template.Template, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".html" {
			continue
		}
		page, err := template.New(entry.Name()).Funcs(funcs).ParseFS(fsys,
			"templates/layouts/base.html",
			"templates/pages/"+entry.Name(),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		t.pages[entry.Name()] = page
	}
	return t, nil
}

// Render executes the base layout of page.
func (t *Templates) Render(w io.Writer, page string, data interface{}) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// Has reports whether page was loaded.
func (t *Templates) Has(page string) bool {
	_, ok := t.pages[page]
	return ok
}

// GetStaticFS returns the static file system for serving static files
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(StaticFS, "static")
}
