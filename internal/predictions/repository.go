package predictions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/cerebra/pkg/pagination"
	"github.com/JaimeStill/cerebra/pkg/query"
	"github.com/JaimeStill/cerebra/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// New creates a prediction repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "predictions"),
		pagination: pagination,
		now:        time.Now,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Prediction], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "OriginalName", "PredictedClass", "Token")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.Count(ctx, r.db, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count predictions: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanPrediction)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Prediction, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	return r.findOne(ctx, q, args)
}

func (r *repo) FindByToken(ctx context.Context, token string) (*Prediction, error) {
	q, args := query.NewBuilder(projection).BuildSingle("Token", token)
	return r.findOne(ctx, q, args)
}

func (r *repo) findOne(ctx context.Context, q string, args []any) (*Prediction, error) {
	p, err := repository.QueryOne(ctx, r.db, q, args, scanPrediction)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Record(ctx context.Context, cmd RecordCommand) (*Prediction, error) {
	p, err := newPrediction(cmd, r.now().UTC())
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO predictions(id, token, original_name, image_name, chart_name, predicted_class, confidence, probabilities, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx, q,
			p.ID,
			p.Token,
			p.OriginalName,
			p.ImageName,
			p.ChartName,
			p.PredictedClass,
			p.Confidence,
			p.Probabilities,
			p.Status,
			p.CreatedAt,
		)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("prediction recorded", "id", p.ID, "token", p.Token, "status", p.Status)
	return &p, nil
}

func newPrediction(cmd RecordCommand, at time.Time) (Prediction, error) {
	p := Prediction{
		ID:            uuid.New(),
		Token:         cmd.Token,
		OriginalName:  cmd.OriginalName,
		ImageName:     cmd.ImageName,
		Probabilities: Probabilities{},
		Status:        cmd.Status,
		CreatedAt:     at,
	}

	switch cmd.Status {
	case StatusCompleted:
		class, chart, confidence := cmd.Class, cmd.ChartName, cmd.Confidence
		p.PredictedClass = &class
		p.ChartName = &chart
		p.Confidence = &confidence
		for k, v := range cmd.Probabilities {
			p.Probabilities[k] = v
		}
	case StatusModelMissing:
	default:
		return Prediction{}, fmt.Errorf("%w: %q", ErrInvalidStatus, cmd.Status)
	}

	return p, nil
}
