package dto

import (
	"errors"
	"fmt"

	"github.com/soundprediction/scenegraph/pkg/schema"
	"github.com/soundprediction/scenegraph/pkg/types"
)

// Validation errors
var (
	ErrEmptyObservations   = errors.New("observations cannot be empty")
	ErrTooManyObservations = fmt.Errorf("observations count exceeds maximum (%d)", MaxObservationsCount)
	ErrNullObservation     = errors.New("observation cannot be null")
)

// MaxObservationsCount bounds the size of one submitted batch.
const MaxObservationsCount = 1000

// SubmitObservationsRequest is the body of POST /api/v1/observations.
type SubmitObservationsRequest struct {
	Observations []map[string]any `json:"observations" binding:"required"`
}

// Validate performs shape validation; schema validation happens per
// observation during processing.
func (r *SubmitObservationsRequest) Validate() error {
	if len(r.Observations) == 0 {
		return ErrEmptyObservations
	}
	if len(r.Observations) > MaxObservationsCount {
		return ErrTooManyObservations
	}
	for i, o := range r.Observations {
		if o == nil {
			return fmt.Errorf("observation %d: %w", i, ErrNullObservation)
		}
	}
	return nil
}

// Batch converts the request into observed objects.
func (r *SubmitObservationsRequest) Batch() []*types.ObservedObject {
	out := make([]*types.ObservedObject, len(r.Observations))
	for i, o := range r.Observations {
		out[i] = types.NewObservedObject(types.Attributes(o))
	}
	return out
}

// ObservationResult is the outcome of one submitted observation.
type ObservationResult struct {
	Index   int                    `json:"index"`
	State   types.ObservationState `json:"state"`
	ID      string                 `json:"id,omitempty"`
	Created bool                   `json:"created"`
	Entity  *types.Entity          `json:"entity,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// SubmitObservationsResponse reports every outcome of a batch.
type SubmitObservationsResponse struct {
	BatchID  string              `json:"batch_id"`
	Results  []ObservationResult `json:"results"`
	Created  int                 `json:"created"`
	Updated  int                 `json:"updated"`
	Rejected int                 `json:"rejected"`
	Failed   int                 `json:"failed"`
	// Excluded describes stored entities that could not be reconstructed.
	Excluded []string `json:"excluded,omitempty"`
}

// NewSubmitObservationsResponse converts a process result.
func NewSubmitObservationsResponse(batchID string, res *types.ProcessResult) *SubmitObservationsResponse {
	out := &SubmitObservationsResponse{
		BatchID:  batchID,
		Results:  make([]ObservationResult, len(res.Results)),
		Created:  res.Created,
		Updated:  res.Updated,
		Rejected: res.Rejected,
		Failed:   res.Failed,
		Excluded: ErrorStrings(res.Excluded),
	}
	for i, r := range res.Results {
		out.Results[i] = ObservationResult{
			Index:   r.Index,
			State:   r.State,
			ID:      r.ID,
			Created: r.Created,
			Entity:  r.Entity,
		}
		if r.Err != nil {
			out.Results[i].Error = r.Err.Error()
		}
	}
	return out
}

// EntitiesResponse is the body of GET /api/v1/entities.
type EntitiesResponse struct {
	Entities []*types.Entity `json:"entities"`
	Count    int             `json:"count"`
	Excluded []string        `json:"excluded,omitempty"`
}

// SchemaResponse is the body of GET /api/v1/schema.
type SchemaResponse struct {
	Class      string                       `json:"class"`
	IRI        string                       `json:"iri"`
	Attributes []schema.AttributeDefinition `json:"attributes"`
}

// ErrorStrings renders errors as their messages.
func ErrorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
