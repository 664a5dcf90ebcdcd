package predictions

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/cerebra/pkg/pagination"
)

// System defines the public contract for prediction history.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Prediction], error)

	Find(ctx context.Context, id uuid.UUID) (*Prediction, error)
	FindByToken(ctx context.Context, token string) (*Prediction, error)
	Record(ctx context.Context, cmd RecordCommand) (*Prediction, error)
}
