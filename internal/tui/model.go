package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zacy-Sokach/ChatSim/internal/chat"
	"github.com/Zacy-Sokach/ChatSim/internal/export"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// Version 是当前的 ChatSim 版本，由 main 包设置
var Version string

const (
	// 界面只保留最近的行，完整记录在历史和存档里
	maxTranscript = 1000
	lineBuffer    = 256
	// 标题、空行、输入框、帮助行
	chromeHeight = 4
)

// Controller 生成循环的暂停控制，*loop.Loop 满足该接口
type Controller interface {
	Pause()
	Resume()
	Paused() bool
}

type Options struct {
	ModeratorColor string
	ExportDir      string
	Capture        bool
	Logger         zerolog.Logger
}

type Model struct {
	viewport      viewport.Model
	textarea      textarea.Model
	transcript    []chat.Line
	ready         bool
	room          *chat.Room
	sink          *chat.ChannelSink
	control       Controller
	commandParser *CommandParser
	opts          Options
	logger        zerolog.Logger
	now           func() time.Time
}

// InitialModel 创建界面并订阅聊天室
// 主持人的行在 Update 中同步渲染，订阅时跳过，保证每行只显示一次
func InitialModel(room *chat.Room, control Controller, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "以 MODERATOR 身份发言，/help 查看命令..."
	ta.Focus()
	ta.CharLimit = 500
	ta.SetWidth(80)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)

	if opts.ModeratorColor == "" {
		opts.ModeratorColor = "#00FF00"
	}

	sink := chat.NewChannelSink(lineBuffer, func(line chat.Line) bool {
		return line.Source == chat.SourceModerator
	})
	room.Subscribe(sink)

	return Model{
		textarea:      ta,
		viewport:      vp,
		room:          room,
		sink:          sink,
		control:       control,
		commandParser: NewCommandParser(),
		opts:          opts,
		logger:        opts.Logger.With().Str("component", "tui").Logger(),
		now:           time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForLine(m.sink.Lines()))
}

// waitForLine 从订阅通道取下一行
func waitForLine(lines <-chan chat.Line) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lines
		if !ok {
			return nil
		}
		return LineMsg{Line: line}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.submit()
		}

	case tea.WindowSizeMsg:
		height := msg.Height - chromeHeight
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.YPosition = 1
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.textarea.SetWidth(msg.Width)
		m.updateViewport()

	case LineMsg:
		m.appendLine(msg.Line)
		return m, waitForLine(m.sink.Lines())

	case ExportSuccessMsg:
		m.notice(fmt.Sprintf("聊天记录已导出: %s, %s", msg.MarkdownPath, msg.HTMLPath))
		return m, nil

	case ExportErrorMsg:
		m.notice(fmt.Sprintf("导出失败: %v", msg.Error))
		return m, nil
	}

	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit 处理回车；空白输入保持原样不做任何事
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return nil
	}
	m.textarea.Reset()

	if cmd := m.commandParser.Parse(text); cmd != nil {
		return m.handleCommand(cmd)
	}

	line := chat.NewLine(chat.SourceModerator, chat.ModeratorSpeaker, m.opts.ModeratorColor, text)
	m.appendLine(line)
	m.room.Post(line)
	m.logger.Debug().Str("text", text).Msg("moderator message")
	return nil
}

func (m *Model) handleCommand(cmd *Command) tea.Cmd {
	m.logger.Debug().Str("command", FormatCommandType(cmd.Type)).Msg("moderator command")

	switch cmd.Type {
	case CommandTypePause:
		if m.control == nil {
			m.notice("生成循环未运行")
			return nil
		}
		m.control.Pause()
		m.notice("已暂停生成")
	case CommandTypeResume:
		if m.control == nil {
			m.notice("生成循环未运行")
			return nil
		}
		m.control.Resume()
		m.notice("已继续生成")
	case CommandTypeClear:
		m.room.History().Clear()
		m.transcript = nil
		m.notice("聊天和历史已清空")
	case CommandTypeExport:
		return m.exportTranscript()
	case CommandTypeHelp:
		m.notice(helpText)
	}
	return nil
}

// exportTranscript 在后台写文件，完成后回送结果消息
func (m *Model) exportTranscript() tea.Cmd {
	lines := append([]chat.Line(nil), m.transcript...)
	dir := m.opts.ExportDir
	now := m.now()

	return func() tea.Msg {
		mdPath, htmlPath, err := export.WriteFiles(dir, lines, now)
		if err != nil {
			return ExportErrorMsg{Error: err}
		}
		return ExportSuccessMsg{MarkdownPath: mdPath, HTMLPath: htmlPath}
	}
}

// notice 只在本地显示的系统提示，不进入历史也不广播
func (m *Model) notice(text string) {
	m.appendLine(chat.NewLine(chat.SourceSystem, chat.SystemSpeaker, chat.SystemColor, text))
}

func (m *Model) appendLine(line chat.Line) {
	m.transcript = append(m.transcript, line)
	if len(m.transcript) > maxTranscript {
		m.transcript = m.transcript[len(m.transcript)-maxTranscript:]
	}
	m.updateViewport()
}

// Transcript 返回当前显示的所有行
func (m Model) Transcript() []chat.Line {
	return append([]chat.Line(nil), m.transcript...)
}

func (m *Model) updateViewport() {
	m.viewport.SetContent(m.formatTranscript())
	m.viewport.GotoBottom()
}

func (m Model) formatTranscript() string {
	if len(m.transcript) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(m.transcript) * 80)

	wrap := lipgloss.NewStyle()
	if m.viewport.Width > 0 {
		wrap = wrap.Width(m.viewport.Width)
	}

	for i, line := range m.transcript {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(wrap.Render(renderLine(line)))
	}
	return sb.String()
}

// renderLine 说话人加粗并使用其颜色
func renderLine(line chat.Line) string {
	label := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(line.Color)).
		Render(line.Speaker + ":")
	return label + " " + line.Text
}

func (m Model) View() string {
	if !m.ready {
		return "初始化中..."
	}

	return fmt.Sprintf(
		"%s\n%s\n\n%s\n%s",
		m.headerView(),
		m.viewport.View(),
		m.textarea.View(),
		m.helpView(),
	)
}

func (m Model) headerView() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9146FF")).Render("ChatSim " + Version)

	var status []string
	if m.control != nil && m.control.Paused() {
		status = append(status, lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render("已暂停"))
	}
	if m.opts.Capture {
		status = append(status, "截图模式")
	}
	if len(status) == 0 {
		return title
	}
	return title + "  " + strings.Join(status, " • ")
}

func (m Model) helpView() string {
	help := "Enter: 发送 • /help: 命令 • Esc/Ctrl+C: 退出"
	if dropped := m.sink.Dropped(); dropped > 0 {
		help += fmt.Sprintf(" • 丢弃 %d 行", dropped)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(help)
}
