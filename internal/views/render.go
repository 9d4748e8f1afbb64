package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"math"
	"strconv"
	"time"
)

var pagesTmpl *template.Template

var funcs = template.FuncMap{
	"isoDate": func(t time.Time) string { return t.Format("2006-01-02") },
	"longDate": func(t time.Time) string {
		return t.Format("Monday, January 2, 2006")
	},
	"clock": func(t time.Time) string { return t.Format("3:04 PM") },
	"fixed": formatFixed,
}

// formatFixed prints f with at most two decimals and no trailing zeros.
func formatFixed(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// loadTemplatesFromFS loads page templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	pagesTmpl = tmpl
	return nil
}

// LoadTemplates loads the embedded page templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

func render(w io.Writer, name string, data any) error {
	if pagesTmpl == nil {
		return errors.New("page templates not loaded: call views.LoadTemplates during startup")
	}
	return pagesTmpl.ExecuteTemplate(w, name, data)
}

func RenderHome(w io.Writer, data *HomePage) error {
	return render(w, "home.html", data)
}

func RenderResults(w io.Writer, data *ResultsPage) error {
	return render(w, "results.html", data)
}

func RenderHistorical(w io.Writer, data *HistoricalPage) error {
	return render(w, "historical_results.html", data)
}

func RenderError(w io.Writer, data *ErrorPage) error {
	return render(w, "error.html", data)
}
