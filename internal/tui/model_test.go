package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Zacy-Sokach/ChatSim/internal/chat"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	paused bool
}

func (f *fakeController) Pause()       { f.paused = true }
func (f *fakeController) Resume()      { f.paused = false }
func (f *fakeController) Paused() bool { return f.paused }

func newTestModel(t *testing.T) (Model, *chat.Room, *fakeController) {
	t.Helper()
	room := chat.NewRoom(chat.NewHistory(chat.DefaultHistorySize))
	control := &fakeController{}
	m := InitialModel(room, control, Options{
		ModeratorColor: "#00FF00",
		ExportDir:      t.TempDir(),
		Logger:         zerolog.Nop(),
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), room, control
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func submit(t *testing.T, m Model, input string) (Model, tea.Cmd) {
	t.Helper()
	m.textarea.SetValue(input)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func countText(lines []chat.Line, speaker, text string) int {
	n := 0
	for _, l := range lines {
		if l.Speaker == speaker && l.Text == text {
			n++
		}
	}
	return n
}

func TestModeratorMessageAppearsOnce(t *testing.T) {
	m, room, _ := newTestModel(t)

	m, _ = submit(t, m, "hello mods")

	assert.Equal(t, 1, countText(m.Transcript(), chat.ModeratorSpeaker, "hello mods"))
	assert.Equal(t, 1, countText(room.History().Snapshot(), chat.ModeratorSpeaker, "hello mods"))
	history := room.History().Snapshot()
	require.Len(t, history, 1)
	assert.Equal(t, "MODERATOR: hello mods", history[0].String())
	assert.Empty(t, m.textarea.Value())

	// 主持人的行不会再从订阅通道回到界面
	assert.Len(t, m.sink.Lines(), 0)
	assert.Contains(t, m.View(), "hello mods")
}

func TestModeratorMessageTyped(t *testing.T) {
	m, room, _ := newTestModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("  gg  ")})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, m.Transcript(), 1)
	assert.Equal(t, "gg", m.Transcript()[0].Text)
	assert.Equal(t, "#00FF00", m.Transcript()[0].Color)
	assert.Equal(t, chat.SourceModerator, m.Transcript()[0].Source)
	assert.Equal(t, 1, room.History().Len())
}

func TestWhitespaceInputIsNoop(t *testing.T) {
	m, room, _ := newTestModel(t)

	m, cmd := submit(t, m, "   ")

	assert.Nil(t, cmd)
	assert.Empty(t, m.Transcript())
	assert.Zero(t, room.History().Len())
	assert.Equal(t, "   ", m.textarea.Value())
}

func TestRoomLinesAreRendered(t *testing.T) {
	m, room, _ := newTestModel(t)

	room.Post(chat.NewLine(chat.SourceGenerated, "PixelPirate", "#1E90FF", "that regex is cursed"))
	room.Announce(chat.NewLine(chat.SourceSystem, chat.SystemSpeaker, chat.SystemColor, "(error: boom)"))

	for i := 0; i < 2; i++ {
		msg := waitForLine(m.sink.Lines())()
		var cmd tea.Cmd
		m, cmd = update(t, m, msg)
		assert.NotNil(t, cmd, "收到一行后继续等待下一行")
	}

	lines := m.Transcript()
	require.Len(t, lines, 2)
	assert.Equal(t, "that regex is cursed", lines[0].Text)
	assert.Equal(t, "(error: boom)", lines[1].Text)
	assert.Equal(t, 1, room.History().Len(), "系统行不进入历史")
	assert.Contains(t, m.View(), "PixelPirate:")
}

func TestPauseAndResumeCommands(t *testing.T) {
	m, room, control := newTestModel(t)

	m, _ = submit(t, m, "/pause")
	assert.True(t, control.Paused())
	assert.Contains(t, m.View(), "已暂停")

	m, _ = submit(t, m, "/RESUME")
	assert.False(t, control.Paused())

	assert.Zero(t, room.History().Len(), "命令不是主持人发言")
	for _, line := range m.Transcript() {
		assert.Equal(t, chat.SourceSystem, line.Source)
	}
}

func TestUnknownSlashIsModeratorMessage(t *testing.T) {
	m, room, _ := newTestModel(t)

	m, _ = submit(t, m, "/ban LagLord")

	assert.Equal(t, 1, countText(m.Transcript(), chat.ModeratorSpeaker, "/ban LagLord"))
	assert.Equal(t, 1, room.History().Len())
}

func TestClearCommand(t *testing.T) {
	m, room, _ := newTestModel(t)

	m, _ = submit(t, m, "first")
	m, _ = submit(t, m, "second")
	require.Equal(t, 2, room.History().Len())

	m, _ = submit(t, m, "/clear")

	assert.Zero(t, room.History().Len())
	require.Len(t, m.Transcript(), 1)
	assert.Equal(t, chat.SourceSystem, m.Transcript()[0].Source)
}

func TestExportCommand(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = submit(t, m, "hello mods")
	m, cmd := submit(t, m, "/export")
	require.NotNil(t, cmd)

	msg := cmd()
	done, ok := msg.(ExportSuccessMsg)
	require.True(t, ok, "unexpected message %T", msg)
	assert.Equal(t, m.opts.ExportDir, filepath.Dir(done.MarkdownPath))

	md, err := os.ReadFile(done.MarkdownPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "hello mods")
	_, err = os.Stat(done.HTMLPath)
	require.NoError(t, err)

	m, _ = update(t, m, msg)
	last := m.Transcript()[len(m.Transcript())-1]
	assert.Contains(t, last.Text, done.MarkdownPath)
}

func TestHelpCommand(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = submit(t, m, "/help")

	require.Len(t, m.Transcript(), 1)
	assert.Equal(t, helpText, m.Transcript()[0].Text)
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		m, _, _ := newTestModel(t)
		_, cmd := update(t, m, tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.QuitMsg{}, cmd())
	}
}

func TestTranscriptIsBounded(t *testing.T) {
	m, _, _ := newTestModel(t)

	for i := 0; i < maxTranscript+5; i++ {
		m.appendLine(chat.NewLine(chat.SourceGenerated, "LagLord", "#32CD32", "spam"))
	}
	assert.Len(t, m.Transcript(), maxTranscript)
}

func TestViewBeforeResize(t *testing.T) {
	room := chat.NewRoom(nil)
	m := InitialModel(room, nil, Options{Logger: zerolog.Nop()})
	assert.Equal(t, "初始化中...", m.View())

	m2, _ := submit(t, m, "/pause")
	assert.Equal(t, "生成循环未运行", m2.Transcript()[0].Text)
}
