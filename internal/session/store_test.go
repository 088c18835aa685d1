package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casecounsel/internal/ai"
)

func TestGetOrCreate_GeneratesID(t *testing.T) {
	st := NewStore(20)

	sess := st.GetOrCreate("")
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.ID)

	other := st.GetOrCreate("")
	assert.NotEqual(t, sess.ID, other.ID)
	assert.Equal(t, 2, st.Len())
}

func TestGetOrCreate_ReturnsSameSession(t *testing.T) {
	st := NewStore(20)

	first := st.GetOrCreate("abc")
	second := st.GetOrCreate("abc")
	assert.Same(t, first, second)
	assert.Equal(t, 1, st.Len())
}

func TestAppendTurn_HistoryOrder(t *testing.T) {
	st := NewStore(20)
	sess := st.GetOrCreate("s1")

	sess.Lock()
	sess.AppendTurn("question one", "answer one")
	sess.AppendTurn("question two", "answer two")
	history := sess.History()
	sess.Unlock()

	require.Len(t, history, 4)
	assert.Equal(t, ai.RoleUser, history[0].Role)
	assert.Equal(t, "question one", history[0].Content)
	assert.Equal(t, ai.RoleAssistant, history[1].Role)
	assert.Equal(t, "question two", history[2].Content)
}

func TestAppendTurn_TrimsOldestBeyondWindow(t *testing.T) {
	st := NewStore(4)
	sess := st.GetOrCreate("s1")

	sess.Lock()
	for i := 1; i <= 5; i++ {
		sess.AppendTurn(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	history := sess.History()
	sess.Unlock()

	require.Len(t, history, 4)
	assert.Equal(t, "q4", history[0].Content)
	assert.Equal(t, "a5", history[3].Content)
}

func TestHistory_ReturnsCopy(t *testing.T) {
	st := NewStore(20)
	sess := st.GetOrCreate("s1")

	sess.Lock()
	sess.AppendTurn("q", "a")
	history := sess.History()
	history[0].Content = "mutated"
	fresh := sess.History()
	sess.Unlock()

	assert.Equal(t, "q", fresh[0].Content)
}

func TestGetOrCreate_ConcurrentSameID(t *testing.T) {
	st := NewStore(20)

	const workers = 32
	sessions := make([]*Session, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i] = st.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, st.Len())
	for i := 1; i < workers; i++ {
		assert.Same(t, sessions[0], sessions[i])
	}
}
