package persondir

import (
	"context"
	"fmt"
)

// Processor transforms a record in place.
//
// AttributeNames lists the attribute names the processor may add. Returning nil
// means none. Implementations must not keep state between Process calls.
type Processor interface {
	Process(ctx context.Context, rec *Record) error
	AttributeNames() []string
}

// ProcessorFunc adapts a plain function to the Processor interface. It declares no names.
type ProcessorFunc func(ctx context.Context, rec *Record) error

func (f ProcessorFunc) Process(ctx context.Context, rec *Record) error {
	return f(ctx, rec)
}

func (f ProcessorFunc) AttributeNames() []string {
	return nil
}

// processorName returns a readable name for p in logs and errors.
func processorName(p Processor) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", p)
}
