package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tunekit/tunekit/pkg/config"
	"github.com/tunekit/tunekit/pkg/dict"
)

// exportSpec is one --export flag: param[:name[:unit[:access]]].
type exportSpec struct {
	param  string
	name   string
	unit   string
	access dict.AccessPoint
}

func parseExportSpec(s string) (exportSpec, error) {
	parts := strings.SplitN(s, ":", 4)
	spec := exportSpec{param: parts[0]}
	if spec.param == "" {
		return exportSpec{}, fmt.Errorf("invalid export %q: parameter name is empty", s)
	}
	if len(parts) > 1 {
		spec.name = parts[1]
	}
	if len(parts) > 2 {
		spec.unit = parts[2]
	}
	if len(parts) > 3 {
		access, err := dict.ParseAccessPoint(parts[3])
		if err != nil {
			return exportSpec{}, fmt.Errorf("invalid export %q: %w", s, err)
		}
		spec.access = access
	}
	return spec, nil
}

func newServeCommand() *cobra.Command {
	var (
		watchPath string
		prefix    string
		exports   []string
		exportAll bool
		guards    guardFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve parameters as Prometheus metrics",
		Long: `Hold a model instance in memory and serve its scalar parameters as
Prometheus gauges next to tunectl's own metrics.

With --watch the parameters are reloaded whenever the parameter file
changes. Keys missing from the file leave their parameters unchanged.
Policies given with --policy are reloaded when their files change.`,
		Example: `  # Export two parameters
  tunectl serve --model controller.yaml --export gain --export pid.kp:kp::output

  # Export every scalar and follow a parameter file
  tunectl serve --model controller.yaml --export-all --watch params.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			specs := make([]exportSpec, 0, len(exports))
			for _, e := range exports {
				spec, err := parseExportSpec(e)
				if err != nil {
					return err
				}
				specs = append(specs, spec)
			}
			if exportAll {
				for _, d := range s.handle.Descriptors() {
					if d.Dims().IsScalar() {
						specs = append(specs, exportSpec{param: d.Name()})
					}
				}
			}

			// held by scrapes and reloads
			var mu sync.Mutex

			pd := dict.NewPromDictionary(dict.MetricName(s.image.Model),
				dict.WithRegisterer(s.metrics().Registerer()),
				dict.WithLocker(&mu),
			)
			exporter := dict.NewExporter(pd,
				dict.WithLogger(s.logger),
				dict.WithMetrics(s.metrics()),
			)
			exported := 0
			for _, spec := range specs {
				d, err := s.handle.Resolve(spec.param)
				if err != nil {
					return err
				}
				if err := exporter.ExportScalar(s.handle, spec.param, d.Type(), spec.name, spec.unit, spec.access); err != nil {
					return err
				}
				exported++
			}

			server := s.metrics().StartMetricsServer(s.logger)
			if server == nil {
				return fmt.Errorf("metrics are disabled, nothing to serve")
			}

			if watchPath != "" {
				guard, err := guards.guard(ctx, s, watchPath)
				if err != nil {
					return err
				}
				if guard != nil && len(guards.policyPaths) > 0 {
					stop, err := followPolicies(ctx, s.logger, guard, guards.policyPaths)
					if err != nil {
						return err
					}
					defer stop()
				}
				w := config.NewWatcher(watchPath, newBridge(s, watchPath, guard), config.WatchConfig{
					Prefix: prefix,
					Locker: &mu,
				}, s.logger)
				w.Reload(ctx)
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer func() { _ = w.Stop() }()
			}

			log.Info().
				Str("model", s.image.Model).
				Str("addr", server.Addr).
				Int("quantities", exported).
				Msg("Serving parameters")

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down server: %w", err)
			}
			log.Info().Msg("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "metrics listen address (default :9464)")
	cmd.Flags().StringVar(&watchPath, "watch", "", "parameter file to load and follow")
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix in the watched file")
	cmd.Flags().StringArrayVar(&exports, "export", nil, "export a scalar parameter as param[:name[:unit[:access]]]")
	cmd.Flags().BoolVar(&exportAll, "export-all", false, "export every scalar parameter")
	guards.register(cmd)

	return cmd
}
