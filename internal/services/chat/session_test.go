package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4rankng/paper-trading-sub001/internal/models"
)

func TestSession_AppendAccumulates(t *testing.T) {
	session := newSession("s1", 0)

	result, err := session.Append("Here is ")
	require.NoError(t, err)
	assert.Equal(t, "Here is ", result.Text)

	result, err = session.Append(`a chart ![viz:chart]({"type":"chart","chartType":"line","data":{"labels":["A","B"]`)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pending)
	assert.Equal(t, "Here is a chart [[viz:chart:pending]]", result.Text)

	result, err = session.Append(`,"datasets":[{"label":"X","data":[1,2]}]}})`)
	require.NoError(t, err)
	assert.Zero(t, result.Pending)
	require.Len(t, result.Commands, 1)
	assert.Equal(t, models.VizChart, result.Commands[0].Type)
}

func TestSession_CloseFinalizesPendingMarkers(t *testing.T) {
	session := newSession("s1", 0)
	_, err := session.Append(`text ![viz:table]({"headers":["A"`)
	require.NoError(t, err)

	result := session.Close()
	assert.Zero(t, result.Pending)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.ErrReasonIncomplete, result.Errors[0].Reason)
	assert.True(t, session.Closed())
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	session := newSession("s1", 0)
	_, err := session.Append(`![viz:pie]({"type":"pie","data":[{"label":"A","value":1}]})`)
	require.NoError(t, err)

	first := session.Close()
	second := session.Close()
	assert.Same(t, first, second)
	require.Len(t, first.Commands, 1)
}

func TestSession_AppendAfterCloseFails(t *testing.T) {
	session := newSession("s1", 0)
	session.Close()

	_, err := session.Append("more text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestSession_BufferLimit(t *testing.T) {
	session := newSession("s1", 16)

	_, err := session.Append("0123456789")
	require.NoError(t, err)

	_, err = session.Append("0123456789")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer limit")

	// A chunk that still fits is accepted after a rejected one.
	_, err = session.Append("012345")
	assert.NoError(t, err)
}

func TestSession_Snapshot(t *testing.T) {
	session := newSession("s1", 0)
	_, err := session.Append("hello")
	require.NoError(t, err)

	snap := session.Snapshot()
	assert.Equal(t, "s1", snap.ID)
	assert.Equal(t, "hello", snap.Text)
	assert.False(t, snap.Closed)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "hello", snap.Result.Text)
	assert.False(t, snap.UpdatedAt.Before(snap.CreatedAt))
}

func TestSession_ConcurrentAppends(t *testing.T) {
	session := newSession("s1", 0)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 25; j++ {
				_, err := session.Append("x")
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	snap := session.Snapshot()
	assert.Equal(t, strings.Repeat("x", 200), snap.Text)
}
