package app

import (
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/JaimeStill/cerebra/internal/artifacts"
	"github.com/JaimeStill/cerebra/internal/diagnosis"
	"github.com/JaimeStill/cerebra/internal/uploads"
	"github.com/JaimeStill/cerebra/pkg/web"
)

//go:embed templates assets
var content embed.FS

var (
	viewIndex    = web.ViewDef{Template: "index.html", Title: "Upload"}
	viewResult   = web.ViewDef{Template: "result.html", Title: "Prediction"}
	viewError    = web.ViewDef{Template: "error.html", Title: "Error"}
	viewNotFound = web.ViewDef{Template: "not_found.html", Title: "Not Found"}
)

var views = []web.ViewDef{viewIndex, viewResult, viewError, viewNotFound}

var funcs = template.FuncMap{
	"probability": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

func newTemplates() (*web.TemplateSet, error) {
	return web.NewTemplateSet(content, "templates/layouts/*.html", "templates/views", "base", funcs, views)
}

// IndexView is the data for the upload form.
type IndexView struct {
	ModelReady bool
	Accept     string
}

func newIndexView(ready bool) IndexView {
	exts := make([]string, len(uploads.AllowedExtensions))
	for i, ext := range uploads.AllowedExtensions {
		exts[i] = "." + ext
	}
	return IndexView{ModelReady: ready, Accept: strings.Join(exts, ",")}
}

// ClassProbability is one row of the result table.
type ClassProbability struct {
	Class string
	Value float64
}

// ResultView is the data for a completed prediction.
type ResultView struct {
	Class         string
	ImageURL      string
	ChartURL      string
	ReportURL     string
	Probabilities []ClassProbability
}

func newResultView(out diagnosis.Outcome, paths artifacts.Paths) ResultView {
	rows := make([]ClassProbability, len(out.Result.Classes))
	for i, class := range out.Result.Classes {
		rows[i] = ClassProbability{Class: class, Value: out.Result.Probabilities[class]}
	}
	return ResultView{
		Class:         out.Result.Class,
		ImageURL:      paths.UploadURL(out.Image.Name),
		ChartURL:      paths.ChartURL(out.Chart.Name),
		ReportURL:     "/api/reports/" + string(out.Image.Token),
		Probabilities: rows,
	}
}
