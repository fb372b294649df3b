package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"procodus.dev/device-monitor/internal/auth"
	"procodus.dev/device-monitor/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Pages rendered by the server. Each page is parsed together with the
// shared layout.
var pageNames = []string{
	"home.html",
	"login.html",
	"register.html",
	"devices.html",
	"add_device.html",
	"update_device.html",
	"diagnostics.html",
	"add_diagnostics.html",
	"update_diagnostics.html",
}

// parseTemplates builds the per-page template sets from the embedded
// files.
func parseTemplates() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// basePage carries the fields every page template needs.
type basePage struct {
	Flash    *Flash
	Title    string
	LoggedIn bool
}

type homePage struct {
	basePage
}

type authPage struct {
	basePage
}

type devicesPage struct {
	basePage
	Devices        store.Page[store.Device]
	FilterID       string
	FilterLocation string
	FilterStatus   string
}

type deviceFormPage struct {
	basePage
	Device *store.Device
}

type diagnosticsPage struct {
	basePage
	Diagnostics store.Page[store.DeviceDiagnostic]
	SortBy      string
	FilterID    string
}

type diagnosticFormPage struct {
	basePage
	Diagnostic *store.DeviceDiagnostic
	Devices    []store.Device
}

// render executes the named page template, tracking render time and
// failures. A render failure is surfaced as a generic 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	tmpl, ok := s.templates[name]
	if !ok {
		s.logger.Error("unknown template", "template", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = prometheus.NewTimer(s.metrics.TemplateRenderTime.WithLabelValues(name))
		defer timer.ObserveDuration()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		if s.metrics != nil {
			s.metrics.TemplateRenderErrors.WithLabelValues(name).Inc()
		}
		s.logger.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// base assembles the common page fields, consuming any pending flash.
func (s *Server) base(w http.ResponseWriter, r *http.Request, title string) basePage {
	return basePage{
		Flash:    popFlash(w, r),
		Title:    title,
		LoggedIn: auth.TokenFromRequest(r) != "",
	}
}
