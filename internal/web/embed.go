package web

import (
	"embed"
	"fmt"
	"html"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/hugh/adopt-a-pet/internal/api/validation"
	"github.com/hugh/adopt-a-pet/internal/database/models"
	"github.com/hugh/adopt-a-pet/internal/petfinder"
	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates
var TemplatesFS embed.FS

//go:embed static
var StaticFS embed.FS

// Templates holds one parsed set per page, each containing the base layout.
// Pages never share a namespace, so every page can define "content".
type Templates struct {
	pages map[string]*template.Template
}

var policy = bluemonday.UGCPolicy()

// Funcs are available in every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		// Catalog descriptions arrive HTML-escaped and may contain markup.
		"sanitize": func(s string) template.HTML {
			return template.HTML(policy.Sanitize(html.UnescapeString(s)))
		},
		"photo": func(url string) string {
			if url == "" {
				return models.PlaceholderImageURL
			}
			return url
		},
		"states": func() []string {
			return petfinder.States
		},
		"truncate": func(n int, s string) string {
			short := validation.TruncateString(s, n)
			if short == s {
				return s
			}
			return strings.TrimSpace(short) + "…"
		},
	}
}

// LoadTemplates parses all templates from the embedded filesystem
func LoadTemplates() (*Templates, error) {
	baseContent, err := fs.ReadFile(TemplatesFS, "templates/layouts/base.html")
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(TemplatesFS, "templates/pages")
	if err != nil {
		return nil, err
	}

	t := &Templates{pages: make(map[string]*template.Template, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".html" {
			continue
		}

		pageContent, err := fs.ReadFile(TemplatesFS, "templates/pages/"+entry.Name())
		if err != nil {
			return nil, err
		}

		pageTmpl, err := template.New(entry.Name()).Funcs(Funcs()).Parse(string(baseContent))
		if err != nil {
			return nil, fmt.Errorf("parsing base layout: %w", err)
		}
		if _, err := pageTmpl.Parse(string(pageContent)); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		t.pages[entry.Name()] = pageTmpl
	}

	return t, nil
}

// Render executes the base layout of page name.
func (t *Templates) Render(w io.Writer, name string, data interface{}) error {
	tmpl, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// GetStaticFS returns the static file system for serving static files
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(StaticFS, "static")
}
