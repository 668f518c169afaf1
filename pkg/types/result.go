package types

// ObservationState tracks one observation through Process.
type ObservationState string

const (
	StateReceived  ObservationState = "received"
	StateMatched   ObservationState = "matched"
	StateUnmatched ObservationState = "unmatched"
	StateCommitted ObservationState = "committed"
	// StateRejected marks an observation that failed schema validation
	StateRejected ObservationState = "rejected"
	// StateFailed marks an observation whose link or commit step failed
	StateFailed ObservationState = "failed"
)

// ObservationResult is the outcome for one observation of a batch.
type ObservationResult struct {
	// Index is the position of the observation in the submitted batch
	Index int `json:"index"`

	State ObservationState `json:"state"`

	// ID is the entity identifier the observation was committed under.
	// Set once the observation is matched or a new identifier is allocated.
	ID string `json:"id,omitempty"`

	// Created is true when a fresh identifier was allocated
	Created bool `json:"created"`

	// Entity is the committed entity (nil unless State is committed)
	Entity *Entity `json:"entity,omitempty"`

	Err error `json:"-"`
}

// Committed reports whether the observation reached the store.
func (r ObservationResult) Committed() bool {
	return r.State == StateCommitted
}

// ProcessResult collects the outcomes of one Process call.
type ProcessResult struct {
	Results []ObservationResult `json:"results"`

	// Excluded lists registered entities that could not be decoded during the
	// fetch step. They took no part in matching.
	Excluded []error `json:"-"`

	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
}

// Errors returns the per-item errors in batch order.
func (r *ProcessResult) Errors() []error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errs
}

// Committed returns the committed entities in batch order.
func (r *ProcessResult) Committed() []*Entity {
	var out []*Entity
	for _, res := range r.Results {
		if res.Committed() {
			out = append(out, res.Entity)
		}
	}
	return out
}
