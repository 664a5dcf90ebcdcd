// Package diagnosis runs one upload through validation, storage, inference,
// and charting, and reports which terminal state it reached.
package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/JaimeStill/cerebra/internal/archive"
	"github.com/JaimeStill/cerebra/internal/artifacts"
	"github.com/JaimeStill/cerebra/internal/charts"
	"github.com/JaimeStill/cerebra/internal/model"
	"github.com/JaimeStill/cerebra/internal/predictions"
	"github.com/JaimeStill/cerebra/internal/uploads"
)

// Submission is the file field of one upload request.
type Submission struct {
	Present  bool
	Filename string
	Body     io.Reader
}

// Outcome is the result of a pipeline run that reached a terminal state.
// Message is set for the redirect states; Image, Result, and Chart are set
// as far as the run progressed.
type Outcome struct {
	State   State
	Message string
	Image   artifacts.StoredImage
	Result  model.Result
	Chart   charts.Chart
}

// Recorder persists outcomes to history.
type Recorder interface {
	Record(ctx context.Context, cmd predictions.RecordCommand) (*predictions.Prediction, error)
}

// Pipeline wires the request stages together. It holds no per-request state.
type Pipeline struct {
	store   *artifacts.Store
	adapter *model.Adapter
	charts  *charts.Generator
	history Recorder
	archive *archive.Archive
	logger  *slog.Logger
}

// New creates a Pipeline. history and arc may be nil.
func New(
	store *artifacts.Store,
	adapter *model.Adapter,
	gen *charts.Generator,
	history Recorder,
	arc *archive.Archive,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		store:   store,
		adapter: adapter,
		charts:  gen,
		history: history,
		archive: arc,
		logger:  logger.With("system", "diagnosis"),
	}
}

// ModelReady reports the model gate.
func (p *Pipeline) ModelReady() bool {
	return p.adapter.Gate().Ready()
}

// Paths returns the artifact layout outcomes are stored under.
func (p *Pipeline) Paths() artifacts.Paths {
	return p.store.Paths()
}

// Run drives sub through the pipeline. Rejections and a missing model are
// outcomes, not errors. A non-nil error means the run failed in the state it names.
func (p *Pipeline) Run(ctx context.Context, sub Submission) (Outcome, error) {
	out := Outcome{State: Validating}

	ext, err := uploads.Validate(sub.Present, sub.Filename)
	if err != nil {
		p.logger.Info("upload rejected", "filename", sub.Filename, "reason", err)
		out.State = RejectedResponse
		out.Message = err.Error()
		return out, nil
	}

	out.State = Storing
	image, err := p.store.Save(sub.Body, ext)
	if err != nil {
		return out, p.fail(out.State, err)
	}
	out.Image = image
	p.logger.Debug("upload stored", "name", image.Name, "original", sub.Filename)

	out.State = Inferring
	result, err := p.adapter.Predict(ctx, image.Path)
	if err != nil {
		var unavailable *model.UnavailableError
		if errors.As(err, &unavailable) {
			p.logger.Warn("model unavailable", "path", unavailable.Path, "image", image.Name)
			out.State = ModelMissingResponse
			out.Message = unavailable.Message
			p.record(ctx, sub.Filename, out)
			return out, nil
		}
		return out, p.fail(out.State, err)
	}
	out.Result = result

	out.State = Charting
	chart, err := p.charts.Render(image.Token, result)
	if err != nil {
		return out, p.fail(out.State, err)
	}
	out.Chart = chart

	out.State = Responding
	p.logger.Info("prediction complete",
		"token", image.Token,
		"class", result.Class,
		"confidence", result.Confidence(),
	)

	p.record(ctx, sub.Filename, out)
	p.archive.Go(
		archive.File{Key: archive.UploadKey(image.Name), Path: image.Path, ContentType: uploads.ContentType(image.Ext)},
		archive.File{Key: archive.ChartKey(chart.Name), Path: chart.Path, ContentType: "image/png"},
	)

	return out, nil
}

func (p *Pipeline) fail(state State, err error) error {
	return fmt.Errorf("%s: %w", state, err)
}

// record writes the outcome to history. History is best effort and never
// changes the response.
func (p *Pipeline) record(ctx context.Context, original string, out Outcome) {
	if p.history == nil {
		return
	}

	cmd := predictions.RecordCommand{
		Token:        string(out.Image.Token),
		OriginalName: original,
		ImageName:    out.Image.Name,
		Status:       predictions.StatusModelMissing,
	}
	if out.State == Responding {
		cmd.Status = predictions.StatusCompleted
		cmd.ChartName = out.Chart.Name
		cmd.Class = out.Result.Class
		cmd.Confidence = out.Result.Confidence()
		cmd.Probabilities = out.Result.Probabilities
	}

	if _, err := p.history.Record(context.WithoutCancel(ctx), cmd); err != nil {
		p.logger.Error("history record failed", "token", out.Image.Token, "error", err)
	}
}
