package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)

	for i := 1; i <= 4; i++ {
		h.Append(NewLine(SourceGenerated, "user", "#fff", fmt.Sprintf("msg %d", i)))
	}

	require.Equal(t, 3, h.Len())
	assert.Equal(t, []string{"user: msg 2", "user: msg 3", "user: msg 4"}, lineStrings(h.Snapshot()))
}

func TestHistoryNeverExceedsCapacity(t *testing.T) {
	h := NewHistory(DefaultHistorySize)

	for i := 0; i < DefaultHistorySize*3; i++ {
		h.Append(NewLine(SourceGenerated, "user", "", fmt.Sprintf("%d", i)))
		require.LessOrEqual(t, h.Len(), h.Cap())
	}

	snapshot := h.Snapshot()
	require.Len(t, snapshot, DefaultHistorySize)
	// 剩余行保持插入顺序
	for i, line := range snapshot {
		assert.Equal(t, fmt.Sprintf("%d", DefaultHistorySize*2+i), line.Text)
	}
}

func TestHistorySnapshotIsCopy(t *testing.T) {
	h := NewHistory(2)
	h.Append(NewLine(SourceModerator, ModeratorSpeaker, "", "hi"))

	snapshot := h.Snapshot()
	snapshot[0].Text = "changed"

	assert.Equal(t, "hi", h.Snapshot()[0].Text)
}

func TestHistoryDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultHistorySize, NewHistory(0).Cap())
}

func TestHistoryConcurrentAppend(t *testing.T) {
	h := NewHistory(5)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h.Append(NewLine(SourceGenerated, "u", "", fmt.Sprintf("%d", n)))
			_ = h.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, h.Len())
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(2)
	h.Append(NewLine(SourceGenerated, "u", "", "x"))
	h.Clear()
	assert.Zero(t, h.Len())
}

func lineStrings(lines []Line) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line.String()
	}
	return out
}
