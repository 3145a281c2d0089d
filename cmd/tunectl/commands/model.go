package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/tunekit/tunekit/pkg/config"
	"github.com/tunekit/tunekit/pkg/modelimage"
	"github.com/tunekit/tunekit/pkg/policy"
	"github.com/tunekit/tunekit/pkg/telemetry"
	"github.com/tunekit/tunekit/pkg/tunable"
)

// session holds the model a command works on.
type session struct {
	image  *modelimage.Image
	handle *tunable.Handle
	tel    *telemetry.Telemetry
	logger zerolog.Logger
}

// openSession loads the model image named by --model.
func openSession(ctx context.Context) (*session, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("no model image given, use --model")
	}

	s := &session{tel: telemetry.FromTelemetryContext(ctx)}

	img, err := modelimage.ReadFile(modelPath)
	if err != nil {
		return nil, err
	}

	base := telemetry.FromContext(ctx)
	s.logger = base.WithModel(img.Model).Zerolog()
	h, err := img.Open(tunable.WithLogger(base.NewComponentLogger("registry").Zerolog()))
	if err != nil {
		return nil, fmt.Errorf("failed to open model %s: %w", img.Model, err)
	}

	s.image = img
	s.handle = h
	s.metrics().SetTunables(img.Model, h.Len())
	return s, nil
}

func (s *session) metrics() *telemetry.Metrics {
	if s.tel == nil {
		return nil
	}
	return s.tel.Metrics
}

func (s *session) close() {
	s.handle.End()
}

// save writes the current values back to the model image.
func (s *session) save() error {
	if err := s.image.WriteFile(modelPath, s.handle); err != nil {
		return err
	}
	log.Info().Str("path", modelPath).Msg("Model image updated")
	return nil
}

// guardFlags are the policy flags shared by commands that write
// parameters.
type guardFlags struct {
	limitsPath  string
	policyPaths []string
}

func (g *guardFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&g.limitsPath, "limits", "", "per-parameter limits file (YAML)")
	cmd.Flags().StringSliceVar(&g.policyPaths, "policy", nil, "additional Rego policy files or directories")
}

// bridge returns a config bridge for the session, guarded by policies
// when limits or policies were given.
func (g *guardFlags) bridge(ctx context.Context, s *session, source string) (*config.Bridge, error) {
	guard, err := g.guard(ctx, s, source)
	if err != nil {
		return nil, err
	}
	return newBridge(s, source, guard), nil
}

func newBridge(s *session, source string, guard *policy.Guard) *config.Bridge {
	opts := []config.BridgeOption{
		config.WithLogger(s.logger),
		config.WithMetrics(s.metrics()),
		config.WithSource(source),
	}
	if guard != nil {
		opts = append(opts, config.WithFilter(guard))
	}
	return config.NewBridge(s.handle, opts...)
}

// followPolicies reloads the policies under paths into guard whenever
// one of their files changes, until ctx is done or stop is called.
func followPolicies(ctx context.Context, logger zerolog.Logger, guard *policy.Guard, paths []string) (stop func(), err error) {
	loader := policy.NewLoader(logger)
	err = loader.Watch(ctx, paths, func(policies []policy.Policy) error {
		for _, p := range policies {
			if err := guard.AddPolicy(ctx, p); err != nil {
				return fmt.Errorf("policy %s: %w", p.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = loader.StopWatching() }, nil
}

func (g *guardFlags) guard(ctx context.Context, s *session, source string) (*policy.Guard, error) {
	if g.limitsPath == "" && len(g.policyPaths) == 0 {
		return nil, nil
	}

	guard, err := policy.NewGuard(ctx,
		policy.WithLogger(s.logger),
		policy.WithMetrics(s.metrics()),
		policy.WithHandle(s.handle),
		policy.WithSource(source),
	)
	if err != nil {
		return nil, err
	}
	if g.limitsPath != "" {
		limits, err := policy.LoadLimits(g.limitsPath)
		if err != nil {
			return nil, err
		}
		if err := guard.SetLimits(ctx, limits); err != nil {
			return nil, err
		}
	}
	if len(g.policyPaths) > 0 {
		if err := guard.LoadPolicies(ctx, g.policyPaths); err != nil {
			return nil, err
		}
	}
	return guard, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		telemetry.RecordError(span, err)
	} else {
		telemetry.RecordSuccess(span)
	}
	span.End()
}
