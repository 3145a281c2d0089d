package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"go.opentelemetry.io/otel/trace"

	"github.com/tunekit/tunekit/pkg/config"
)

func newLoadCommand() *cobra.Command {
	var (
		prefix   string
		optional bool
		write    bool
		guards   guardFlags
	)

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Read parameters from a parameter file",
		Long: `Read every parameter of the model from a parameter file.

The file format follows the extension: .yaml/.yml, .cue or .star. Keys are
the dotted parameter names, optionally below a prefix. In required mode
(the default) every missing key counts as a failure; with --optional only
malformed entries do. All parameters are attempted before failures are
reported.`,
		Example: `  # Load from YAML
  tunectl load params.yaml --model controller.yaml

  # Load the keys below "controller" and keep what is missing
  tunectl load params.cue --prefix controller --optional --model controller.yaml

  # Persist the loaded values
  tunectl load params.star --model controller.yaml --write`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			mode := "required"
			if optional {
				mode = "optional"
			}
			if s.tel != nil {
				var span trace.Span
				ctx, span = s.tel.Tracer.StartLoadSpan(ctx, s.image.Model, args[0], mode)
				defer func() { endSpan(span, err) }()
			}

			store, err := config.LoadFile(ctx, args[0])
			if err != nil {
				return err
			}
			b, err := guards.bridge(ctx, s, args[0])
			if err != nil {
				return err
			}

			var failures int
			if optional {
				failures = b.ReadAllOptional(store, prefix)
			} else {
				failures = b.ReadAllRequired(store, prefix)
			}

			log.Info().
				Str("file", args[0]).
				Str("mode", mode).
				Int("params", s.handle.Len()).
				Int("failures", failures).
				Msg("Parameters loaded")

			if failures > 0 {
				return fmt.Errorf("%d of %d parameters could not be loaded", failures, s.handle.Len())
			}
			if write {
				return s.save()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix in the parameter file")
	cmd.Flags().BoolVar(&optional, "optional", false, "skip parameters missing from the file")
	cmd.Flags().BoolVar(&write, "write", false, "write the loaded values back to the model image")
	guards.register(cmd)

	return cmd
}
