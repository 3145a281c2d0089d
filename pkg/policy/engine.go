package policy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage"
	"github.com/open-policy-agent/opa/storage/inmem"
	"github.com/rs/zerolog"

	"github.com/tunekit/tunekit/pkg/telemetry"
	"github.com/tunekit/tunekit/pkg/tunable"
)

var limitsPath = storage.MustParsePath("/tunekit/limits")

// Guard evaluates Rego policies against parameter changes. It implements
// config.Filter, so it can veto writes made through a config.Bridge.
type Guard struct {
	mu       sync.RWMutex
	policies map[string]*compiledPolicy
	store    storage.Store
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	handle   *tunable.Handle
	source   string
}

// compiledPolicy represents a compiled Rego policy.
type compiledPolicy struct {
	policy   *Policy
	query    rego.PreparedEvalQuery
	compiled time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the guard's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithMetrics counts violations in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

// WithHandle lets Allow fill in the model name and the stored value of the
// parameter being changed.
func WithHandle(h *tunable.Handle) Option {
	return func(g *Guard) {
		g.handle = h
	}
}

// WithSource sets the source recorded in changes checked by Allow.
func WithSource(source string) Option {
	return func(g *Guard) {
		g.source = source
	}
}

// NewGuard creates a guard with the built-in policies and no limits.
func NewGuard(ctx context.Context, opts ...Option) (*Guard, error) {
	g := &Guard{
		policies: make(map[string]*compiledPolicy),
		store: inmem.NewFromObject(map[string]any{
			"tunekit": map[string]any{"limits": map[string]any{}},
		}),
		logger: zerolog.Nop(),
		source: "config",
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With().Str("component", "policy-guard").Logger()

	for _, p := range GetBuiltinPolicies() {
		if err := g.compileAndStorePolicy(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to compile built-in policy %s: %w", p.Name, err)
		}
	}

	g.logger.Debug().
		Int("count", len(g.policies)).
		Msg("Built-in policies loaded")

	return g, nil
}

// SetLimits replaces the per-parameter limits visible to policies.
func (g *Guard) SetLimits(ctx context.Context, limits map[string]Limit) error {
	value := make(map[string]any, len(limits))
	for name, l := range limits {
		value[name] = l.data()
	}
	if err := storage.WriteOne(ctx, g.store, storage.ReplaceOp, limitsPath, value); err != nil {
		return fmt.Errorf("failed to store limits: %w", err)
	}
	g.logger.Debug().Int("params", len(limits)).Msg("Limits updated")
	return nil
}

// AddPolicy compiles p and adds or replaces the policy of the same name.
func (g *Guard) AddPolicy(ctx context.Context, p Policy) error {
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	if p.Severity == "" {
		p.Severity = SeverityWarning
	}
	return g.compileAndStorePolicy(ctx, p)
}

// LoadPolicies loads policy files and directories.
func (g *Guard) LoadPolicies(ctx context.Context, paths []string) error {
	policies, err := NewLoader(g.logger).LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	for _, p := range policies {
		if err := g.compileAndStorePolicy(ctx, p); err != nil {
			g.logger.Error().Err(err).
				Str("policy", p.Name).
				Msg("Failed to compile policy")
			return fmt.Errorf("failed to compile policy %s: %w", p.Name, err)
		}
	}

	g.logger.Info().
		Int("count", len(policies)).
		Msg("Policies loaded successfully")

	return nil
}

// Check evaluates every enabled policy against c and returns the
// violations in policy name order. A policy that fails to evaluate makes
// Check fail.
func (g *Guard) Check(ctx context.Context, c Change) ([]Violation, error) {
	c = sanitize(c)
	input := map[string]any{"change": c}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var violations []Violation
	for _, name := range g.sortedNames() {
		cp := g.policies[name]
		if !cp.policy.Enabled {
			continue
		}

		results, err := cp.query.Eval(ctx, rego.EvalInput(input))
		if err != nil {
			return nil, fmt.Errorf("policy %s evaluation failed: %w", name, err)
		}

		for _, result := range results {
			if len(result.Expressions) == 0 {
				continue
			}
			denySet, ok := result.Expressions[0].Value.([]any)
			if !ok {
				continue
			}
			for _, d := range denySet {
				v := g.createViolation(cp.policy, d, c.Param)
				g.metrics.RecordPolicyViolation(v.Policy)
				violations = append(violations, v)
			}
		}
	}

	return violations, nil
}

// Allow implements config.Filter. Writes are rejected with a
// ViolationError when a blocking violation occurs; other violations are
// logged as warnings.
func (g *Guard) Allow(name string, v *tunable.Value) error {
	c := Change{
		Param:  name,
		Type:   v.Type.String(),
		Rows:   v.Rows,
		Cols:   v.Cols,
		Data:   v.Data,
		Source: g.source,
	}
	if g.handle != nil {
		c.Model = g.handle.Model()
		if cur, err := g.handle.GetVector(name); err == nil {
			c.Current = cur
		}
	}

	violations, err := g.Check(context.Background(), c)
	if err != nil {
		return err
	}

	var blocking []Violation
	for _, v := range violations {
		if v.Severity.Blocks() {
			blocking = append(blocking, v)
			continue
		}
		g.logger.Warn().
			Str("policy", v.Policy).
			Str("param", name).
			Msg(v.Message)
	}
	if len(blocking) > 0 {
		return &ViolationError{Violations: blocking}
	}
	return nil
}

// sanitize replaces non-finite elements, which cannot be represented in
// policy input, and counts them.
func sanitize(c Change) Change {
	data := make([]float64, len(c.Data))
	c.NonFinite = 0
	for i, x := range c.Data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			c.NonFinite++
			continue
		}
		data[i] = x
	}
	c.Data = data

	if c.Current != nil {
		cur := make([]float64, len(c.Current))
		for i, x := range c.Current {
			if !math.IsNaN(x) && !math.IsInf(x, 0) {
				cur[i] = x
			}
		}
		c.Current = cur
	}
	return c
}

// extractPackageName returns the package path of a Rego module.
func extractPackageName(module *ast.Module) string {
	return strings.TrimPrefix(module.Package.Path.String(), "data.")
}

// createViolation creates a Violation from one element of a deny set.
func (g *Guard) createViolation(p *Policy, result any, param string) Violation {
	v := Violation{
		Policy:   p.Name,
		Param:    param,
		Severity: p.Severity,
	}

	switch r := result.(type) {
	case string:
		v.Message = r
	case map[string]any:
		if msg, ok := r["message"].(string); ok {
			v.Message = msg
		}
		if sev, ok := r["severity"].(string); ok {
			v.Severity = Severity(sev)
		}
	default:
		v.Message = fmt.Sprintf("%v", result)
	}

	return v
}

// compileAndStorePolicy compiles a policy and stores it.
func (g *Guard) compileAndStorePolicy(ctx context.Context, p Policy) error {
	module, err := ast.ParseModule(p.Name, p.Rego)
	if err != nil {
		return fmt.Errorf("failed to parse policy: %w", err)
	}

	r := rego.New(
		rego.Module(p.Name, p.Rego),
		rego.Store(g.store),
		rego.Query(fmt.Sprintf("data.%s.deny", extractPackageName(module))),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare query: %w", err)
	}

	g.mu.Lock()
	g.policies[p.Name] = &compiledPolicy{
		policy:   &p,
		query:    query,
		compiled: time.Now(),
	}
	g.mu.Unlock()

	g.logger.Debug().
		Str("policy", p.Name).
		Msg("Policy compiled successfully")

	return nil
}

func (g *Guard) sortedNames() []string {
	names := make([]string, 0, len(g.policies))
	for name := range g.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPolicy returns a policy by name.
func (g *Guard) GetPolicy(name string) (*Policy, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cp, exists := g.policies[name]
	if !exists {
		return nil, fmt.Errorf("policy not found: %s", name)
	}

	p := *cp.policy
	return &p, nil
}

// ListPolicies returns all loaded policies sorted by name.
func (g *Guard) ListPolicies() []Policy {
	g.mu.RLock()
	defer g.mu.RUnlock()

	policies := make([]Policy, 0, len(g.policies))
	for _, name := range g.sortedNames() {
		policies = append(policies, *g.policies[name].policy)
	}

	return policies
}

// EnablePolicy enables a policy by name.
func (g *Guard) EnablePolicy(name string) error {
	return g.setEnabled(name, true)
}

// DisablePolicy disables a policy by name.
func (g *Guard) DisablePolicy(name string) error {
	return g.setEnabled(name, false)
}

func (g *Guard) setEnabled(name string, enabled bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp, exists := g.policies[name]
	if !exists {
		return fmt.Errorf("policy not found: %s", name)
	}

	cp.policy.Enabled = enabled
	g.logger.Info().Str("policy", name).Bool("enabled", enabled).Msg("Policy state changed")

	return nil
}
