package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tunekit/tunekit/pkg/config"
)

func newGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <param>",
		Short: "Print the value of a parameter",
		Long: `Print the current value of a parameter.

Matrices are printed one row per line. A struct name prints every member
below it.`,
		Example: `  # Print a scalar
  tunectl get gain --model controller.yaml

  # Print a struct as JSON
  tunectl get pid --model controller.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			v, err := s.handle.GetStructured(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(v)
			}
			if !v.IsStruct() {
				fmt.Println(config.FormatValue(v))
				return nil
			}

			dump := config.Dump(s.handle, "")
			for _, d := range s.handle.Leaves(args[0]) {
				fmt.Printf("%s:\n%s\n", d.Name(), dump[d.Name()])
			}
			return nil
		},
	}

	return cmd
}
