package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomPostAppendsBeforePublishing(t *testing.T) {
	room := NewRoom(NewHistory(5))

	var seenLen int
	room.Subscribe(SinkFunc(func(Line) {
		seenLen = room.History().Len()
	}))

	room.Post(NewLine(SourceGenerated, "LagLord", "#1E90FF", "gg"))

	assert.Equal(t, 1, seenLen)
}

func TestRoomAnnounceSkipsHistory(t *testing.T) {
	room := NewRoom(nil)

	var got []Line
	room.Subscribe(SinkFunc(func(l Line) { got = append(got, l) }))

	room.Announce(NewLine(SourceSystem, SystemSpeaker, SystemColor, "(error: boom)"))

	require.Len(t, got, 1)
	assert.Zero(t, room.History().Len())
}

func TestChannelSinkSkipAndDrop(t *testing.T) {
	sink := NewChannelSink(1, func(l Line) bool { return l.Source == SourceModerator })

	sink.Publish(NewLine(SourceModerator, ModeratorSpeaker, "", "skipped"))
	sink.Publish(NewLine(SourceGenerated, "a", "", "first"))
	sink.Publish(NewLine(SourceGenerated, "b", "", "dropped"))

	line := <-sink.Lines()
	assert.Equal(t, "first", line.Text)
	assert.Equal(t, 1, sink.Dropped())
}

func TestLineString(t *testing.T) {
	line := NewLine(SourceModerator, ModeratorSpeaker, "#00FF00", "hello mods")
	assert.Equal(t, "MODERATOR: hello mods", line.String())
	assert.NotEqual(t, line.ID, NewLine(SourceModerator, ModeratorSpeaker, "", "x").ID)
}
