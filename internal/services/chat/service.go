package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/4rankng/paper-trading-sub001/internal/common"
	"github.com/4rankng/paper-trading-sub001/internal/interfaces"
	"github.com/4rankng/paper-trading-sub001/internal/models"
)

// Service implements ChatService. Sessions are isolated from each other;
// the registry lock only guards the map itself.
type Service struct {
	store   interfaces.VizLogStore
	gemini  interfaces.GeminiClient
	logger  *common.Logger
	persist bool
	maxBuf  int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a new chat service. store and gemini may be nil, in
// which case record persistence and advice streaming are disabled.
func NewService(store interfaces.VizLogStore, gemini interfaces.GeminiClient, logger *common.Logger, cfg common.VizConfig) *Service {
	return &Service{
		store:    store,
		gemini:   gemini,
		logger:   logger,
		persist:  cfg.PersistRecords && store != nil,
		maxBuf:   cfg.MaxBufferBytes,
		sessions: make(map[string]*Session),
	}
}

// CreateSession registers a new empty session and returns its ID.
func (s *Service) CreateSession(_ context.Context) (string, error) {
	id := uuid.New().String()
	session := newSession(id, s.maxBuf)

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	s.logger.Debug().Str("session_id", id).Msg("Chat session created")
	return id, nil
}

func (s *Service) session(sessionID string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session '%s' not found", sessionID)
	}
	return session, nil
}

// AppendChunk adds streamed text to a session and returns the current
// best-effort extraction result.
func (s *Service) AppendChunk(_ context.Context, sessionID, chunk string) (*models.ExtractResult, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Append(chunk)
}

// CloseSession finalizes a session and persists its extraction records.
func (s *Service) CloseSession(ctx context.Context, sessionID string) (*models.ExtractResult, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	alreadyClosed := session.Closed()
	result := session.Close()

	if s.persist && !alreadyClosed {
		s.persistResult(ctx, sessionID, result)
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Int("commands", len(result.Commands)).
		Int("errors", len(result.Errors)).
		Msg("Chat session closed")
	return result, nil
}

// GetSession returns a snapshot of one session.
func (s *Service) GetSession(_ context.Context, sessionID string) (*models.SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Snapshot(), nil
}

// StreamAdvice runs a prompt through the Gemini client's streaming
// generation, feeding each chunk into a fresh session, and returns the
// final extraction result.
func (s *Service) StreamAdvice(ctx context.Context, prompt string) (*models.ExtractResult, error) {
	if s.gemini == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}

	sessionID, err := s.CreateSession(ctx)
	if err != nil {
		return nil, err
	}

	err = s.gemini.StreamContent(ctx, prompt, func(chunk string) error {
		_, appendErr := s.AppendChunk(ctx, sessionID, chunk)
		return appendErr
	})
	if err != nil {
		// Discard the buffer and any not-yet-emitted candidates.
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return nil, fmt.Errorf("advice stream: %w", err)
	}

	return s.CloseSession(ctx, sessionID)
}

// persistResult writes one VizRecord per command and per failure.
func (s *Service) persistResult(ctx context.Context, sessionID string, result *models.ExtractResult) {
	now := time.Now()

	for i := range result.Commands {
		cmd := result.Commands[i]
		record := &models.VizRecord{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			CreatedAt: now,
			TypeHint:  string(cmd.Type),
			Raw:       cmd.Raw,
			Fixed:     cmd.Fixed,
			Warnings:  cmd.Warnings,
			Recovered: len(cmd.Warnings) > 0,
			Command:   &cmd,
		}
		if err := s.store.SaveRecord(ctx, record); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to persist extraction record")
		}
	}

	for _, cmdErr := range result.Errors {
		record := &models.VizRecord{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			CreatedAt: now,
			TypeHint:  cmdErr.TypeHint,
			Raw:       cmdErr.Raw,
			Warnings:  cmdErr.Warnings,
			Error:     fmt.Sprintf("%s: %s", cmdErr.Reason, cmdErr.Detail),
		}
		if err := s.store.SaveRecord(ctx, record); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to persist error record")
		}
	}
}
