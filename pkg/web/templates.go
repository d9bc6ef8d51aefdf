package web

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// indexData feeds the upload form template.
type indexData struct {
	Error string
}

// successData feeds the post-upload success template.
type successData struct {
	Filename string
	TaskID   string
	Key      string
	URL      string
}

// renderTemplate writes the named template with the given status code.
func (s *server) renderTemplate(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.WithError(err).WithField("template", name).
			Error("Failed to render template")
	}
}
