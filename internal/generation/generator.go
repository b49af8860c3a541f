package generation

import "context"

// ChunkFunc receives the full text accumulated so far during a streamed call.
type ChunkFunc func(accumulated string)

// Generator defines the interface for producing text from a prompt.
// This interface serves as a boundary between the application core and
// external AI/LLM services.
type Generator interface {
	// Generate sends prompt to the model and returns the complete response text.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream sends prompt to the model and calls onChunk with the
	// accumulated text each time a new chunk arrives. It returns the final text.
	GenerateStream(ctx context.Context, prompt string, onChunk ChunkFunc) (string, error)

	// TestConnection performs a minimal request to verify credentials and reachability.
	TestConnection(ctx context.Context) error
}

// Resolver returns the Generator to use for the next batch. Implementations
// resolve the API key at call time so a changed key takes effect without a restart.
type Resolver interface {
	Resolve(ctx context.Context) (Generator, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context) (Generator, error)

// Resolve calls f(ctx).
func (f ResolverFunc) Resolve(ctx context.Context) (Generator, error) {
	return f(ctx)
}
