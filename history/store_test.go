package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist-ai/medassist/datatypes"
)

func exchange(i int) []datatypes.Turn {
	return []datatypes.Turn{
		{Role: datatypes.RoleUser, Content: fmt.Sprintf("question %d", i)},
		{Role: datatypes.RoleAssistant, Content: fmt.Sprintf("answer %d", i)},
	}
}

func TestMemoryStore_AppendAndRecent(t *testing.T) {
	s := NewMemoryStore()
	s.Append("sess-1", exchange(1)...)
	s.Append("sess-1", exchange(2)...)

	got := s.Recent("sess-1", 0)
	require.Len(t, got, 4)
	assert.Equal(t, "question 1", got[0].Content)
	assert.Equal(t, "answer 2", got[3].Content)

	t.Run("window returns most recent, oldest first", func(t *testing.T) {
		got := s.Recent("sess-1", 2)
		require.Len(t, got, 2)
		assert.Equal(t, "question 2", got[0].Content)
		assert.Equal(t, "answer 2", got[1].Content)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		assert.Empty(t, s.Recent("sess-2", 0))
	})
}

func TestMemoryStore_CapEviction(t *testing.T) {
	s := NewMemoryStore()
	for i := 1; i <= 10; i++ {
		s.Append("sess-1", exchange(i)...)
	}
	require.Len(t, s.Recent("sess-1", 0), MaxTurns)

	// One more exchange on a full history drops the oldest pair.
	s.Append("sess-1", exchange(11)...)

	got := s.Recent("sess-1", 0)
	require.Len(t, got, MaxTurns)
	assert.Equal(t, "question 2", got[0].Content)
	assert.Equal(t, "answer 11", got[len(got)-1].Content)
}

func TestMemoryStore_CapWithOversizedAppend(t *testing.T) {
	s := NewMemoryStore()
	turns := make([]datatypes.Turn, 0, 30)
	for i := 0; i < 15; i++ {
		turns = append(turns, exchange(i)...)
	}
	s.Append("sess-1", turns...)

	got := s.Recent("sess-1", 0)
	require.Len(t, got, MaxTurns)
	assert.Equal(t, "answer 14", got[len(got)-1].Content)
}

func TestMemoryStore_ClearIdempotent(t *testing.T) {
	s := NewMemoryStore()
	s.Append("sess-1", exchange(1)...)

	s.Clear("sess-1")
	assert.Empty(t, s.Recent("sess-1", 0))

	// Clearing again, or clearing an unknown session, must not panic.
	s.Clear("sess-1")
	s.Clear("never-seen")
	assert.Empty(t, s.Recent("sess-1", 0))
}

func TestMemoryStore_RecentReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.Append("sess-1", exchange(1)...)

	got := s.Recent("sess-1", 0)
	got[0].Content = "mutated"

	again := s.Recent("sess-1", 0)
	assert.Equal(t, "question 1", again[0].Content)
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append("sess-1", exchange(i)...)
		}(i)
	}
	wg.Wait()

	got := s.Recent("sess-1", 0)
	assert.Len(t, got, MaxTurns)
	// Exchanges are appended atomically, so pairs never interleave.
	for i := 0; i < len(got); i += 2 {
		assert.Equal(t, datatypes.RoleUser, got[i].Role)
		assert.Equal(t, datatypes.RoleAssistant, got[i+1].Role)
	}
}
