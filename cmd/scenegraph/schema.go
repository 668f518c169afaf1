package scenegraph

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundprediction/scenegraph"
	"github.com/soundprediction/scenegraph/pkg/config"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Describe the reflected class schema",
	Long: `Reflect the configured class from its ontology document and print its
attributes. No graph store connection is made.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

var schemaJSON bool

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "print the schema as JSON")
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	class, err := scenegraph.LoadSchema(cfg.Schema)
	if err != nil {
		return err
	}
	if schemaJSON {
		return printJSON(cmd.OutOrStdout(), class)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), class.Describe())
	return err
}
