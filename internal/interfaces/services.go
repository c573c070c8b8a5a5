package interfaces

import (
	"context"
	"io"

	"github.com/4rankng/paper-trading-sub001/internal/models"
)

// ChatService manages streaming chat sessions. Each session owns its own
// accumulated buffer and command list; independent sessions never share
// state.
type ChatService interface {
	CreateSession(ctx context.Context) (string, error)
	AppendChunk(ctx context.Context, sessionID, chunk string) (*models.ExtractResult, error)
	CloseSession(ctx context.Context, sessionID string) (*models.ExtractResult, error)
	GetSession(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)

	// ConsumeStream feeds SSE frames (data: {"text":...} / data: [DONE])
	// from r into the session and returns the result at stream end.
	ConsumeStream(ctx context.Context, sessionID string, r io.Reader) (*models.ExtractResult, error)

	// StreamAdvice drives the LLM client's streaming generation through a
	// fresh session and returns the final extraction result.
	StreamAdvice(ctx context.Context, prompt string) (*models.ExtractResult, error)
}
