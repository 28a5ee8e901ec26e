package reporters

import (
	"context"
	"fmt"

	"github.com/samvad-hq/shapes-probe/pkg/shapes"
)

// Builder creates the Reporter for one prepared config.
type Builder func(ctx context.Context, cfg Config, log Logger) (Reporter, error)

// Builders maps a sink type to its Builder.
type Builders map[string]Builder

// DefaultBuilders covers every supported sink type.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:   newHTTPReporter,
		TypeSQS:    newSQSReporter,
		TypeSNS:    newSNSReporter,
		TypePubSub: newPubSubReporter,
	}
}

// Build prepares cfgs and returns a Fanout over the enabled ones. Reporters
// built before a failure are closed.
func Build(ctx context.Context, builders Builders, cfgs []Config, log Logger) (*Fanout, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log = shapes.OrNop(log)

	prepared, err := Prepare(cfgs)
	if err != nil {
		return nil, err
	}

	var targets []Target
	for _, c := range prepared {
		if !c.IsEnabled() {
			log.DebugObj("reporter disabled", "reporter_id", c.ID)
			continue
		}
		build, ok := builders[c.Type]
		if !ok {
			_ = NewFanout(targets...).Close()
			return nil, fmt.Errorf("reporter %q: no builder for type %q", c.ID, c.Type)
		}
		rep, err := build(ctx, c, log)
		if err != nil {
			_ = NewFanout(targets...).Close()
			return nil, fmt.Errorf("build reporter %q: %w", c.ID, err)
		}
		targets = append(targets, Target{Reporter: rep, Notify: c.Notify})
	}
	return NewFanout(targets...), nil
}
