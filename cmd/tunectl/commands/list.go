package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type paramInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
	Layout string `json:"layout"`
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tunable parameters",
		Long: `List the leaf parameters of a model in declaration order.

Struct members are listed under their dotted names.`,
		Example: `  # List parameters
  tunectl list --model controller.yaml

  # List as JSON
  tunectl list --model controller.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			params := []paramInfo{}
			for _, d := range s.handle.Descriptors() {
				params = append(params, paramInfo{
					Name:   d.Name(),
					Type:   d.Type().String(),
					Rows:   d.Dims().Rows,
					Cols:   d.Dims().Cols,
					Layout: d.Layout().String(),
				})
			}

			if jsonOutput {
				return printJSON(params)
			}
			if len(params) == 0 {
				fmt.Printf("Model %s has no tunable parameters\n", s.image.Model)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tDIMS\tLAYOUT")
			for _, p := range params {
				fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\n", p.Name, p.Type, p.Rows, p.Cols, p.Layout)
			}
			return w.Flush()
		},
	}

	return cmd
}
