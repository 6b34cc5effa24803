package console

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"filterdesk/pkg/pluginorder"
	"filterdesk/pkg/settingsapi"
	"filterdesk/pkg/views"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"loading",
	"login",
	"register",
	"white-list",
	"filter-content",
	"plugins-list",
	"plugins-manager",
}

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"dec": func(i int) int { return i - 1 },
}

// pageData is everything a page template may render.
type pageData struct {
	Title   string
	Active  string
	Nav     bool
	Refresh bool
	Alert   *views.Alert
	Notice  string

	Domains  []string
	Check    *hostCheck
	Contents []settingsapi.Content
	Form     views.AddForm
	Stages   []stageView
	Changes  []pluginorder.Change
	Plugins  []string
}

type hostCheck struct {
	Host    string
	Allowed bool
}

type stageView struct {
	Stage   pluginorder.Stage
	Title   string
	Plugins []string
	Last    int
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func (s *Server) render(w http.ResponseWriter, page string, data pageData) {
	tmpl, ok := s.pages[page]
	if !ok {
		s.log.Error("unknown page template", "page", page)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.Error("failed to render page", "page", page, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Debug("failed to write page", "page", page, "error", err)
	}
}
