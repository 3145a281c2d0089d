package dict

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tunekit/tunekit/pkg/tunable"
)

// PromDictionary exposes quantities as Prometheus metrics that read model
// memory on every scrape. Monotonic quantities become counters, all others
// gauges.
type PromDictionary struct {
	namespace string
	registry  *prometheus.Registry
	reg       prometheus.Registerer
	locker    sync.Locker
}

// PromOption configures a PromDictionary.
type PromOption func(*PromDictionary)

// WithRegisterer registers quantities with reg instead of a private
// registry. Handler is then served by the owner of reg.
func WithRegisterer(reg prometheus.Registerer) PromOption {
	return func(p *PromDictionary) {
		p.reg = reg
	}
}

// WithLocker holds l while a scrape reads model memory.
func WithLocker(l sync.Locker) PromOption {
	return func(p *PromDictionary) {
		p.locker = l
	}
}

// NewPromDictionary creates a dictionary whose metric names are prefixed
// with namespace.
func NewPromDictionary(namespace string, opts ...PromOption) *PromDictionary {
	p := &PromDictionary{namespace: namespace}
	for _, opt := range opts {
		opt(p)
	}
	if p.reg == nil {
		p.registry = prometheus.NewRegistry()
		p.reg = p.registry
	}
	return p
}

// Define implements Dictionary.
func (p *PromDictionary) Define(q Quantity) error {
	if q.Name == "" {
		return tunable.Errorf(tunable.ClassInvalidArgument, "quantity name is empty")
	}
	if q.Ref.IsZero() || !q.Type.Valid() {
		return tunable.Errorf(tunable.ClassInvalidArgument, "quantity %q has no storage", q.Name)
	}

	read := func() float64 {
		if p.locker != nil {
			p.locker.Lock()
			defer p.locker.Unlock()
		}
		return q.Value()
	}

	labels := prometheus.Labels{
		"quantity": q.Name,
		"unit":     q.Unit,
		"access":   q.Access.String(),
	}
	name := MetricName(q.Name)
	help := "Tunable quantity " + q.Name

	var c prometheus.Collector
	if q.Monotonic {
		c = prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   p.namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, read)
	} else {
		c = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   p.namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, read)
	}

	if err := p.reg.Register(c); err != nil {
		return tunable.NewError(tunable.ClassInvalidArgument, "cannot register quantity", err).WithParam(q.Name)
	}
	return nil
}

// Handler serves the private registry. It returns 404 when quantities are
// registered elsewhere.
func (p *PromDictionary) Handler() http.Handler {
	if p.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the private registry, or nil.
func (p *PromDictionary) Gatherer() prometheus.Gatherer {
	if p.registry == nil {
		return nil
	}
	return p.registry
}

// MetricName maps a quantity name to a valid Prometheus metric name.
func MetricName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
