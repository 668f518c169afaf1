package scenegraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"
	"github.com/spf13/cobra"

	"github.com/soundprediction/scenegraph"
	"github.com/soundprediction/scenegraph/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Submit a batch of observations",
	Long: `Submit a batch of observations read from a JSON file ("-" reads stdin).

The file holds either an array of observation objects or an object with an
"observations" array. With --repair, malformed JSON such as perception output
with trailing commas, single quotes or a truncated tail is repaired first.

The outcome of every observation is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var (
	ingestRepair  bool
	ingestBatchID string
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestRepair, "repair", false, "repair malformed JSON before parsing")
	ingestCmd.Flags().StringVar(&ingestBatchID, "batch-id", "", "batch identifier recorded with log output (default: random)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	batch, err := parseObservations(data, ingestRepair)
	if err != nil {
		return err
	}

	rt, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.flush()

	batchID := ingestBatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	ctx := context.WithValue(context.Background(), types.ContextKeyBatchID, batchID)
	ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "cli")

	client, err := scenegraph.NewFromConfig(ctx, rt.cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scenegraph: %w", err)
	}
	defer client.Close(ctx)

	result, err := client.Process(ctx, batch)
	if err != nil {
		return fmt.Errorf("batch %s aborted: %w", batchID, err)
	}

	if err := printJSON(cmd.OutOrStdout(), ingestReport(batchID, result)); err != nil {
		return err
	}
	if result.Rejected+result.Failed > 0 {
		return fmt.Errorf("%d of %d observations were not committed", result.Rejected+result.Failed, len(batch))
	}
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}
	return data, nil
}

// parseObservations accepts an array of objects or {"observations": [...]}.
// Numbers are kept as json.Number so integers stay exact.
func parseObservations(data []byte, repair bool) ([]*types.ObservedObject, error) {
	if repair {
		fixed, err := jsonrepair.JSONRepair(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to repair observations: %w", err)
		}
		data = []byte(fixed)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("no observations")
	}

	var raw []map[string]any
	if data[0] == '{' {
		var wrapper struct {
			Observations []map[string]any `json:"observations"`
		}
		if err := decodeJSON(data, &wrapper); err != nil {
			return nil, err
		}
		raw = wrapper.Observations
	} else if err := decodeJSON(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("no observations")
	}

	batch := make([]*types.ObservedObject, len(raw))
	for i, o := range raw {
		batch[i] = types.NewObservedObject(types.Attributes(o))
	}
	return batch, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse observations: %w", err)
	}
	return nil
}

type ingestResult struct {
	Index int                    `json:"index"`
	State types.ObservationState `json:"state"`
	ID    string                 `json:"id,omitempty"`
	Error string                 `json:"error,omitempty"`
}

type ingestSummary struct {
	BatchID  string         `json:"batch_id"`
	Results  []ingestResult `json:"results"`
	Created  int            `json:"created"`
	Updated  int            `json:"updated"`
	Rejected int            `json:"rejected"`
	Failed   int            `json:"failed"`
	Excluded int            `json:"excluded,omitempty"`
}

func ingestReport(batchID string, res *types.ProcessResult) ingestSummary {
	out := ingestSummary{
		BatchID:  batchID,
		Results:  make([]ingestResult, len(res.Results)),
		Created:  res.Created,
		Updated:  res.Updated,
		Rejected: res.Rejected,
		Failed:   res.Failed,
		Excluded: len(res.Excluded),
	}
	for i, r := range res.Results {
		out.Results[i] = ingestResult{Index: r.Index, State: r.State, ID: r.ID}
		if r.Err != nil {
			out.Results[i].Error = r.Err.Error()
		}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
