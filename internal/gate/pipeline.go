// AngelaMos | 2026
// pipeline.go

package gate

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/tenantgate/internal/core"
)

// Check is one step of the gate. It returns the (possibly enriched) context
// or an error from the core taxonomy, and never writes a response.
type Check interface {
	Name() string
	Check(ctx context.Context, sc *SecurityContext) (*SecurityContext, error)
}

type CheckFunc func(ctx context.Context, sc *SecurityContext) (*SecurityContext, error)

type namedCheck struct {
	name string
	fn   CheckFunc
}

func (c namedCheck) Name() string { return c.name }

func (c namedCheck) Check(ctx context.Context, sc *SecurityContext) (*SecurityContext, error) {
	return c.fn(ctx, sc)
}

func NewCheck(name string, fn CheckFunc) Check {
	return namedCheck{name: name, fn: fn}
}

// Pipeline runs checks strictly in order; the first failure stops it.
type Pipeline struct {
	checks []Check
}

func NewPipeline(checks ...Check) *Pipeline {
	return &Pipeline{checks: checks}
}

// Then returns a new pipeline with extra checks appended.
func (p *Pipeline) Then(checks ...Check) *Pipeline {
	all := make([]Check, 0, len(p.checks)+len(checks))
	all = append(all, p.checks...)
	all = append(all, checks...)
	return &Pipeline{checks: all}
}

func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.checks))
	for _, c := range p.checks {
		names = append(names, c.Name())
	}
	return names
}

func (p *Pipeline) Run(ctx context.Context, sc *SecurityContext) (out *SecurityContext, err error) {
	ctx, span := core.StartSpan(ctx, "gate.pipeline",
		attribute.Int("gate.checks", len(p.checks)),
	)
	defer func() { core.EndSpan(span, err) }()

	if sc == nil {
		sc = &SecurityContext{}
	}

	for _, c := range p.checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := c.Check(ctx, sc)
		if err != nil {
			core.GateDecisions.WithLabelValues(c.Name(), string(core.KindOf(err))).Inc()
			span.SetAttributes(attribute.String("gate.failed_check", c.Name()))
			return nil, err
		}
		core.AddSpanEvent(ctx, "gate.check", attribute.String("check", c.Name()))

		if next != nil {
			sc = next
		}
	}

	core.GateDecisions.WithLabelValues("pipeline", "Allowed").Inc()
	span.SetAttributes(
		attribute.String("tenant.id", sc.TenantID),
		attribute.Bool("gate.super_admin", sc.IsSuperAdmin),
		attribute.Bool("gate.emulating", sc.IsEmulating),
	)

	return sc, nil
}
