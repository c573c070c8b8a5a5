package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4rankng/paper-trading-sub001/internal/common"
	"github.com/4rankng/paper-trading-sub001/internal/interfaces"
	"github.com/4rankng/paper-trading-sub001/internal/models"
)

// memStore is an in-memory VizLogStore for tests.
type memStore struct {
	mu      sync.Mutex
	records []models.VizRecord
}

func (m *memStore) SaveRecord(_ context.Context, record *models.VizRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *record)
	return nil
}

func (m *memStore) GetRecord(_ context.Context, id string) (*models.VizRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			return &m.records[i], nil
		}
	}
	return nil, fmt.Errorf("record '%s' not found", id)
}

func (m *memStore) ListBySession(_ context.Context, sessionID string) ([]models.VizRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.VizRecord
	for _, r := range m.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListRecent(_ context.Context, limit int) ([]models.VizRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.records) {
		limit = len(m.records)
	}
	return append([]models.VizRecord{}, m.records[len(m.records)-limit:]...), nil
}

func (m *memStore) DeleteSession(_ context.Context, sessionID string) error { return nil }
func (m *memStore) Close() error                                            { return nil }

// scriptedGemini replays canned chunks through StreamContent.
type scriptedGemini struct {
	chunks []string
	err    error
}

func (g *scriptedGemini) GenerateContent(_ context.Context, _ string) (string, error) {
	var all string
	for _, c := range g.chunks {
		all += c
	}
	return all, g.err
}

func (g *scriptedGemini) StreamContent(_ context.Context, _ string, onChunk func(string) error) error {
	for _, c := range g.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return g.err
}

func (g *scriptedGemini) Close() error { return nil }

func newTestService(store interfaces.VizLogStore, gemini interfaces.GeminiClient) *Service {
	cfg := common.VizConfig{PersistRecords: store != nil}
	return NewService(store, gemini, common.NewSilentLogger(), cfg)
}

func TestService_SessionLifecycle(t *testing.T) {
	svc := newTestService(nil, nil)
	ctx := context.Background()

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	result, err := svc.AppendChunk(ctx, id, `![viz:pie]({"type":"pie","data":[{"label":"A","value":1}]})`)
	require.NoError(t, err)
	require.Len(t, result.Commands, 1)

	final, err := svc.CloseSession(ctx, id)
	require.NoError(t, err)
	require.Len(t, final.Commands, 1)

	snap, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, snap.Closed)
}

func TestService_UnknownSession(t *testing.T) {
	svc := newTestService(nil, nil)
	ctx := context.Background()

	_, err := svc.AppendChunk(ctx, "nope", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = svc.CloseSession(ctx, "nope")
	require.Error(t, err)

	_, err = svc.GetSession(ctx, "nope")
	require.Error(t, err)
}

func TestService_PersistsRecordsOnce(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store, nil)
	ctx := context.Background()

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = svc.AppendChunk(ctx, id,
		`ok ![viz:table]({"type":"table","columns":["A"],"rows":[["x"],]}) bad ![viz:chart]({"type":"chart"`)
	require.NoError(t, err)

	_, err = svc.CloseSession(ctx, id)
	require.NoError(t, err)

	records, err := store.ListBySession(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var recovered, failed int
	for _, r := range records {
		if r.Error != "" {
			failed++
			assert.Contains(t, r.Error, models.ErrReasonIncomplete)
		} else {
			assert.True(t, r.Recovered)
			assert.NotEmpty(t, r.Warnings)
			recovered++
		}
	}
	assert.Equal(t, 1, recovered)
	assert.Equal(t, 1, failed)

	// Closing again must not write duplicate records.
	_, err = svc.CloseSession(ctx, id)
	require.NoError(t, err)
	records, err = store.ListBySession(ctx, id)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestService_StreamAdvice(t *testing.T) {
	gemini := &scriptedGemini{chunks: []string{
		"Allocation: ",
		`![viz:pie]({"type":"pie","data":[{"label":"Tech","value":70}`,
		`,{"label":"Cash","value":30}]})`,
	}}
	svc := newTestService(nil, gemini)

	result, err := svc.StreamAdvice(context.Background(), "how am I allocated?")
	require.NoError(t, err)
	require.Len(t, result.Commands, 1)
	assert.Equal(t, "Allocation: [[viz:pie:0]]", result.Text)
	require.Len(t, result.Commands[0].Pie.Data, 2)
}

func TestService_StreamAdviceWithoutClient(t *testing.T) {
	svc := newTestService(nil, nil)
	_, err := svc.StreamAdvice(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestService_StreamAdviceDiscardsSessionOnError(t *testing.T) {
	gemini := &scriptedGemini{
		chunks: []string{"partial "},
		err:    fmt.Errorf("upstream reset"),
	}
	svc := newTestService(nil, gemini)

	_, err := svc.StreamAdvice(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream reset")
	assert.Empty(t, svc.sessions)
}
