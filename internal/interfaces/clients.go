package interfaces

import "context"

// GeminiClient generates advisory content, optionally streamed chunk by
// chunk the way the extraction engine consumes it.
type GeminiClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	StreamContent(ctx context.Context, prompt string, onChunk func(chunk string) error) error
	Close() error
}
