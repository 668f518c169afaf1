package scenegraph

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundprediction/scenegraph"
	"github.com/soundprediction/scenegraph/pkg/types"
)

var listCmd = &cobra.Command{
	Use:   "list [id]",
	Short: "Print registered entities",
	Long: `Print every registered entity of the configured class as JSON, or a single
entity when an identifier is given. Stored entities that cannot be
reconstructed are reported on stderr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.flush()

	ctx := context.WithValue(context.Background(), types.ContextKeyRequestSource, "cli")
	client, err := scenegraph.NewFromConfig(ctx, rt.cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scenegraph: %w", err)
	}
	defer client.Close(ctx)

	if len(args) == 1 {
		entity, err := client.Entity(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), entity)
	}

	entities, excluded, err := client.Entities(ctx)
	if err != nil {
		return err
	}
	for _, e := range excluded {
		fmt.Fprintln(cmd.ErrOrStderr(), "excluded:", e)
	}
	if entities == nil {
		entities = []*types.Entity{}
	}
	return printJSON(cmd.OutOrStdout(), entities)
}
