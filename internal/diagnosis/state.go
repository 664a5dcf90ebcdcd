package diagnosis

// State is a step of the request pipeline.
type State int

const (
	AwaitingUpload State = iota
	Validating
	Storing
	Inferring
	Charting
	Responding
	RejectedResponse
	ModelMissingResponse
)

var stateNames = [...]string{
	AwaitingUpload:       "awaiting_upload",
	Validating:           "validating",
	Storing:              "storing",
	Inferring:            "inferring",
	Charting:             "charting",
	Responding:           "responding",
	RejectedResponse:     "rejected",
	ModelMissingResponse: "model_missing",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends the pipeline.
func (s State) Terminal() bool {
	return s == Responding || s == RejectedResponse || s == ModelMissingResponse
}
