package generator

import (
	"strings"

	"github.com/Zacy-Sokach/ChatSim/internal/chat"
)

const (
	emptyChatPlaceholder = "(no chat yet)"

	// 判断"主持人最近发言"时回看的行数
	moderatorLookback = 3

	addressModeratorDirective = "The MODERATOR spoke recently. Reply to them directly this time."
	avoidSelfReplyDirective   = "The last message was yours. Do not reply to yourself; react to the stream or someone else instead."
)

// SystemPrompt 把性格片段和格式规则拼成系统提示
func SystemPrompt(personality string) string {
	var sb strings.Builder
	sb.WriteString(personality)
	sb.WriteString("\n")
	sb.WriteString("RULES:\n")
	sb.WriteString("1) Output ONE short Twitch-style message (<120 chars).\n")
	sb.WriteString("2) No quotes or explanations.\n")
	sb.WriteString("3) CRITICAL: If the last 2-3 messages are about the same topic, introduce a NEW, unrelated topic. Be random.")
	return sb.String()
}

// UserPrompt 把最近的聊天记录和可选的附加指令拼成用户提示
func UserPrompt(history []chat.Line, directive string, withImage bool) string {
	chatText := emptyChatPlaceholder
	if len(history) > 0 {
		lines := make([]string, len(history))
		for i, line := range history {
			lines[i] = line.String()
		}
		chatText = strings.Join(lines, "\n")
	}

	var sb strings.Builder
	sb.WriteString("Here's the RECENT_CHAT on a programming stream:\n")
	sb.WriteString(chatText)
	sb.WriteString("\n\n")
	if withImage {
		sb.WriteString("The attached image is what the streamer's editor shows right now.\n")
	}
	if directive != "" {
		sb.WriteString(directive)
		sb.WriteString("\n")
	}
	sb.WriteString("Write a new message based on your personality and the chat vibe. Follow the rules.")
	return sb.String()
}

// Directive 决定附加指令：
// 主持人在最近几行发过言时，抛硬币决定是否要求回复主持人；
// 否则若上一行正是当前用户名，要求不要自问自答
func Directive(history []chat.Line, username string, coinFlip func() bool) string {
	if moderatorSpokeRecently(history) {
		if coinFlip != nil && coinFlip() {
			return addressModeratorDirective
		}
		return ""
	}

	if n := len(history); n > 0 && username != "" && history[n-1].Speaker == username {
		return avoidSelfReplyDirective
	}
	return ""
}

func moderatorSpokeRecently(history []chat.Line) bool {
	start := len(history) - moderatorLookback
	if start < 0 {
		start = 0
	}
	for _, line := range history[start:] {
		if line.Speaker == chat.ModeratorSpeaker {
			return true
		}
	}
	return false
}
