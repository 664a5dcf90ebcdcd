// Package app serves the browser-facing upload form and prediction results.
package app

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/JaimeStill/cerebra/internal/diagnosis"
	"github.com/JaimeStill/cerebra/pkg/web"
)

const fileField = "image"

// ErrTooLarge is flashed when an upload exceeds the configured size limit.
var ErrTooLarge = errors.New("File is too large.")

// App handles GET and POST on /.
type App struct {
	pipeline      *diagnosis.Pipeline
	templates     *web.TemplateSet
	sessions      sessions.Store
	sessionName   string
	maxUploadSize int64
	logger        *slog.Logger
}

// Options configures an App.
type Options struct {
	Sessions      sessions.Store
	SessionName   string
	MaxUploadSize int64
}

// New creates an App over pipeline. Templates are parsed once here.
func New(pipeline *diagnosis.Pipeline, opts Options, logger *slog.Logger) (*App, error) {
	templates, err := newTemplates()
	if err != nil {
		return nil, err
	}

	return &App{
		pipeline:      pipeline,
		templates:     templates,
		sessions:      opts.Sessions,
		sessionName:   opts.SessionName,
		maxUploadSize: opts.MaxUploadSize,
		logger:        logger.With("module", "app"),
	}, nil
}

// Handler returns the app's routes: the form at /, embedded assets, and a
// rendered 404 for everything else.
func (a *App) Handler() (http.Handler, error) {
	assets, err := web.EmbeddedServer(content, "assets", "/assets")
	if err != nil {
		return nil, err
	}

	router := web.NewRouter()
	router.HandleFunc("GET /{$}", a.index)
	router.HandleFunc("POST /{$}", a.upload)
	router.Handle("GET /assets/", assets)
	router.SetFallback(a.templates.ErrorHandler(viewNotFound, http.StatusNotFound))
	return router, nil
}

func (a *App) index(w http.ResponseWriter, r *http.Request) {
	data := web.ViewData{
		Flashes: a.flashes(w, r),
		Data:    newIndexView(a.pipeline.ModelReady()),
	}
	a.render(w, http.StatusOK, viewIndex, data)
}

func (a *App) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadSize)

	sub, err := a.submission(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			a.logger.Info("upload rejected", "reason", "too large", "limit", a.maxUploadSize)
			a.redirect(w, r, ErrTooLarge.Error())
			return
		}
		a.fail(w, err)
		return
	}
	if f, ok := sub.Body.(multipart.File); ok {
		defer f.Close()
	}

	out, err := a.pipeline.Run(r.Context(), sub)
	if err != nil {
		a.fail(w, err)
		return
	}

	switch out.State {
	case diagnosis.RejectedResponse, diagnosis.ModelMissingResponse:
		a.redirect(w, r, out.Message)
	default:
		data := web.ViewData{Data: newResultView(out, a.pipeline.Paths())}
		a.render(w, http.StatusOK, viewResult, data)
	}
}

// submission reads the image field. A form that is not multipart is parsed as
// a plain form so an empty image value still counts as a present field.
func (a *App) submission(r *http.Request) (diagnosis.Submission, error) {
	err := r.ParseMultipartForm(a.maxUploadSize)
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return diagnosis.Submission{}, err
		}
		_, present := r.PostForm[fileField]
		return diagnosis.Submission{Present: present}, nil
	}
	if err != nil {
		return diagnosis.Submission{}, err
	}

	file, header, err := r.FormFile(fileField)
	if errors.Is(err, http.ErrMissingFile) {
		// Browsers send an empty filename for an unselected file input, which
		// multipart parsing files under plain values.
		_, present := r.MultipartForm.Value[fileField]
		return diagnosis.Submission{Present: present}, nil
	}
	if err != nil {
		return diagnosis.Submission{}, err
	}

	return diagnosis.Submission{Present: true, Filename: header.Filename, Body: file}, nil
}

func (a *App) redirect(w http.ResponseWriter, r *http.Request, msg string) {
	if err := a.addFlash(w, r, msg); err != nil {
		a.logger.Warn("flash not saved", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) fail(w http.ResponseWriter, err error) {
	a.logger.Error("request failed", "error", err)
	a.render(w, http.StatusInternalServerError, viewError, web.ViewData{})
}

func (a *App) render(w http.ResponseWriter, status int, view web.ViewDef, data web.ViewData) {
	if err := a.templates.Render(w, status, view, data); err != nil {
		a.logger.Error("render failed", "view", view.Template, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
