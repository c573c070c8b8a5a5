package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/4rankng/paper-trading-sub001/internal/models"
)

// doneMarker terminates a token stream.
const doneMarker = "[DONE]"

// streamFrame is the payload of one SSE data frame.
type streamFrame struct {
	Text string `json:"text"`
}

// ConsumeStream reads SSE frames from r and feeds their text into the
// session chunk by chunk. The stream ends at `data: [DONE]` or EOF; either
// way the session is closed and the final extraction result returned.
// Cancelling ctx aborts the read and leaves the session open for the
// caller to close or discard.
func (s *Service) ConsumeStream(ctx context.Context, sessionID string, r io.Reader) (*models.ExtractResult, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == doneMarker {
			break
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Skipping undecodable stream frame")
			continue
		}
		if frame.Text == "" {
			continue
		}

		if _, err := session.Append(frame.Text); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	return s.CloseSession(ctx, sessionID)
}
