package scenegraph

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundprediction/scenegraph"
	"github.com/soundprediction/scenegraph/pkg/export"
	"github.com/soundprediction/scenegraph/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export registered entities to Parquet",
	Long: `Write every registered entity to a Parquet file with one row per leaf
attribute. Nested attributes are flattened to dotted paths (hasPosition.x).`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var exportDir string

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportDir, "output", "o", "exports", "output directory")
}

func runExport(cmd *cobra.Command, args []string) error {
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

	entities, excluded, err := client.Entities(ctx)
	if err != nil {
		return err
	}
	for _, e := range excluded {
		rt.logger.Warn("entity not exported", "error", e)
	}

	w, err := export.NewParquetWriter(exportDir)
	if err != nil {
		return err
	}
	path, err := w.WriteEntities(ctx, client.Schema().Name, entities)
	if err != nil {
		return err
	}
	rt.logger.Info("export written", "path", path, "entities", len(entities))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
