package pipeline

import (
	"context"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

// Capability is the single operation a stage exposes. Implementations report
// failure through an ErrorResult payload in the reply; they must not let
// errors or panics escape. Invoke is expected to honor ctx cancellation, but
// the executor tolerates implementations that do not.
type Capability interface {
	// Name identifies the capability in step results and logs.
	Name() string
	// Invoke processes a request envelope and returns a reply envelope.
	Invoke(ctx context.Context, in domain.Message) domain.Message
}

type capabilityFunc struct {
	name string
	fn   func(ctx context.Context, in domain.Message) domain.Message
}

func (c capabilityFunc) Name() string { return c.name }

func (c capabilityFunc) Invoke(ctx context.Context, in domain.Message) domain.Message {
	return c.fn(ctx, in)
}

// CapabilityFromFunc adapts a function to the Capability interface.
func CapabilityFromFunc(name string, fn func(ctx context.Context, in domain.Message) domain.Message) Capability {
	return capabilityFunc{name: name, fn: fn}
}
