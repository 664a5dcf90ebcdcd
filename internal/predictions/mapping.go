package predictions

import (
	"net/url"
	"strings"
	"time"

	"github.com/JaimeStill/cerebra/pkg/query"
	"github.com/JaimeStill/cerebra/pkg/repository"
)

var projection = query.
	NewProjectionMap("predictions", "p").
	Project("id", "ID").
	Project("token", "Token").
	Project("original_name", "OriginalName").
	Project("image_name", "ImageName").
	Project("chart_name", "ChartName").
	Project("predicted_class", "PredictedClass").
	Project("confidence", "Confidence").
	Project("probabilities", "Probabilities").
	Project("status", "Status").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters narrows history queries. Nil or empty fields are ignored.
type Filters struct {
	Classes []string   `json:"classes,omitempty"`
	Status  *string    `json:"status,omitempty"`
	Since   *time.Time `json:"since,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereIn("PredictedClass", classArgs(f.Classes)).
		WhereEquals("Status", f.Status).
		WhereSince("CreatedAt", f.Since)
}

func classArgs(classes []string) []any {
	args := make([]any, len(classes))
	for i, c := range classes {
		args[i] = c
	}
	return args
}

// FiltersFromQuery extracts filter values from URL query parameters.
// class may repeat or hold a comma-separated list. since accepts RFC 3339
// timestamps; unparseable values are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	for _, v := range values["class"] {
		for c := range strings.SplitSeq(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.Classes = append(f.Classes, c)
			}
		}
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if s := values.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			t = t.UTC()
			f.Since = &t
		}
	}

	return f
}

func scanPrediction(s repository.Scanner) (Prediction, error) {
	var p Prediction
	err := s.Scan(
		&p.ID,
		&p.Token,
		&p.OriginalName,
		&p.ImageName,
		&p.ChartName,
		&p.PredictedClass,
		&p.Confidence,
		&p.Probabilities,
		&p.Status,
		&p.CreatedAt,
	)
	return p, err
}
