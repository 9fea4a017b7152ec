package chat

import (
	"time"

	"github.com/google/uuid"
)

// Source 标识一行聊天的来源
type Source string

const (
	SourceGenerated Source = "generated"
	SourceModerator Source = "moderator"
	SourceSystem    Source = "system"
	SourceTwitch    Source = "twitch"
)

// 固定的说话人标签
const (
	ModeratorSpeaker = "MODERATOR"
	SystemSpeaker    = "System"
	SystemColor      = "#FF5555"
)

// Line 是聊天记录中的一行，创建后不再修改
type Line struct {
	ID      uuid.UUID `json:"id"`
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	Color   string    `json:"color"`
	Source  Source    `json:"source"`
	At      time.Time `json:"at"`
}

// NewLine 创建一行新的聊天记录
func NewLine(source Source, speaker, color, text string) Line {
	return Line{
		ID:      uuid.New(),
		Speaker: speaker,
		Text:    text,
		Color:   color,
		Source:  source,
		At:      time.Now(),
	}
}

// String 返回 "speaker: text" 形式，历史上下文和提示词都使用这个格式
func (l Line) String() string {
	return l.Speaker + ": " + l.Text
}
