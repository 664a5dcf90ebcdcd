// Package predictions records the outcome of every diagnosis request and
// serves the history back through a paginated API.
package predictions

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome statuses.
const (
	StatusCompleted    = "completed"
	StatusModelMissing = "model_missing"
)

// Probabilities is the label to probability mapping of one prediction. It is
// stored as a JSON document.
type Probabilities map[string]float64

// Value encodes p as JSON text.
func (p Probabilities) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan decodes a JSON column into p.
func (p *Probabilities) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = Probabilities{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan probabilities: unsupported type %T", src)
	}
	return json.Unmarshal(data, p)
}

// Prediction is one recorded diagnosis outcome.
type Prediction struct {
	ID             uuid.UUID     `json:"id"`
	Token          string        `json:"token"`
	OriginalName   string        `json:"original_name"`
	ImageName      string        `json:"image_name"`
	ChartName      *string       `json:"chart_name"`
	PredictedClass *string       `json:"predicted_class"`
	Confidence     *float64      `json:"confidence"`
	Probabilities  Probabilities `json:"probabilities"`
	Status         string        `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// RecordCommand carries one outcome to persist. Class, Chart, and
// Probabilities are empty for model_missing outcomes.
type RecordCommand struct {
	Token         string
	OriginalName  string
	ImageName     string
	ChartName     string
	Class         string
	Confidence    float64
	Probabilities map[string]float64
	Status        string
}
