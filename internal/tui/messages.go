package tui

import (
	"github.com/Zacy-Sokach/ChatSim/internal/chat"
)

// Message types for tea.Model

// LineMsg 聊天室发布的一行（生成、系统、Twitch）
type LineMsg struct {
	Line chat.Line
}

type ExportSuccessMsg struct {
	MarkdownPath string
	HTMLPath     string
}

type ExportErrorMsg struct {
	Error error
}
