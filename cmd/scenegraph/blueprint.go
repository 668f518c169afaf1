package scenegraph

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/soundprediction/scenegraph/pkg/schema"
)

var blueprintCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Write the built-in scene object ontology as Turtle",
	Long: `Write the built-in SceneObject ontology (type, version, position and
orientation) as a Turtle document. The output can be edited and passed back
with --schema.

Only Turtle is written. RDF/XML ontologies (.owl, .rdf) are still accepted by
--schema, but --output must name a .ttl file.`,
	Args: cobra.NoArgs,
	RunE: runBlueprint,
}

var (
	blueprintOrientation string
	blueprintNamespace   string
	blueprintOutput      string
)

func init() {
	rootCmd.AddCommand(blueprintCmd)

	blueprintCmd.Flags().StringVar(&blueprintOrientation, "orientation", "quaternion", "orientation representation (quaternion, euler)")
	blueprintCmd.Flags().StringVar(&blueprintNamespace, "namespace", "http://example.org/ontology#", "ontology namespace")
	blueprintCmd.Flags().StringVarP(&blueprintOutput, "output", "o", "", "output file (default stdout)")
}

func runBlueprint(cmd *cobra.Command, args []string) error {
	orientation, err := schema.ParseOrientation(blueprintOrientation)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if blueprintOutput != "" {
		if format, err := schema.FormatForPath(blueprintOutput); err != nil || format != schema.FormatTurtle {
			return fmt.Errorf("blueprint writes Turtle only: %s needs a .ttl extension", blueprintOutput)
		}
		f, err := os.Create(blueprintOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", blueprintOutput, err)
		}
		defer f.Close()
		w = f
	}

	doc := schema.Blueprint(blueprintNamespace, orientation)
	return schema.WriteTurtle(w, doc, blueprintNamespace)
}
