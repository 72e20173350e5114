package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/mixelka/tempinbox/internal/formatter"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"home", "inbox", "email", "log", "error"}

// view is the data every layout page receives
type view struct {
	Title  string
	Domain string
	Data   any
}

// previewView feeds the framed message body
type previewView struct {
	HTML template.HTML
	Text string
}

type templates struct {
	pages   map[string]*template.Template
	preview *template.Template
}

func loadTemplates() (*templates, error) {
	t := &templates{pages: make(map[string]*template.Template, len(pages))}

	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(formatter.FuncMap()).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		t.pages[name] = tmpl
	}

	preview, err := template.New("preview").Funcs(formatter.FuncMap()).
		ParseFS(templateFS, "templates/preview.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse preview template: %w", err)
	}
	t.preview = preview

	return t, nil
}

// render executes into a buffer first so a template error never
// leaves a half-written page behind
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, v view) {
	v.Domain = s.domain

	var buf bytes.Buffer
	if err := s.templates.pages[name].ExecuteTemplate(&buf, "layout", v); err != nil {
		s.log(r).Error("failed to render page", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderPreview(w http.ResponseWriter, r *http.Request, v previewView) {
	var buf bytes.Buffer
	if err := s.templates.preview.ExecuteTemplate(&buf, "preview", v); err != nil {
		s.log(r).Error("failed to render preview", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Security-Policy", previewPolicy)
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
