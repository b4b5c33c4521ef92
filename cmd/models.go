package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models [paths...]",
	Short: "Load and validate model files",
	Long:  "Load the configured models (or the given paths) and print vertex and face counts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := cfg.Models
		if len(args) > 0 {
			paths = args
		}
		return runModels(cmd, paths)
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, paths []string) error {
	reg, err := newLoader(cfg, os.Stderr).LoadAll(cmd.Context(), paths)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tVERTICES\tFACES\tTRIANGLES\tPATH")
	fmt.Fprintln(w, "-----\t----\t--------\t-----\t---------\t----")
	for i, m := range reg.Models() {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\n", i, m.Name(), len(m.Vertices()), len(m.Faces()), len(m.TriangleIndices())/3, m.Path())
	}
	return w.Flush()
}
