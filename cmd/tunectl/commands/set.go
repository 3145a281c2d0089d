package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tunekit/tunekit/pkg/config"
)

func newSetCommand() *cobra.Command {
	var (
		write  bool
		guards guardFlags
	)

	cmd := &cobra.Command{
		Use:   "set <param> <values...>",
		Short: "Write the value of a parameter",
		Long: `Write a parameter from the command line.

Values are given in row-major order. Separate matrix rows with ";".
The number of values must match the parameter's shape.`,
		Example: `  # Set a scalar
  tunectl set gain 2.5 --model controller.yaml --write

  # Set a 2x3 matrix
  tunectl set table "1 2 3; 4 5 6" --model controller.yaml

  # Enforce limits
  tunectl set gain 12 --model controller.yaml --limits limits.yaml`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			name := args[0]
			b, err := guards.bridge(ctx, s, "cli")
			if err != nil {
				return err
			}
			store := config.MapStore{name: strings.Join(args[1:], " ")}
			if err := b.ReadOne(name, store, name); err != nil {
				return err
			}

			v, err := s.handle.GetStructured(name)
			if err != nil {
				return err
			}
			log.Info().Str("param", name).Str("value", config.FormatValue(v)).Msg("Parameter set")

			if write {
				return s.save()
			}
			fmt.Println(config.FormatValue(v))
			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "write the new value back to the model image")
	guards.register(cmd)

	return cmd
}
