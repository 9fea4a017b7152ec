package api

import (
	"encoding/json"
)

type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Name    string          `json:"name,omitempty"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message,omitempty"`
	FinishReason string   `json:"finish_reason"`
}

// 多模态内容片段
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// 创建文本消息
func TextMessage(role, content string) Message {
	contentBytes, _ := json.Marshal(content)
	return Message{
		Role:    role,
		Content: contentBytes,
	}
}

// 创建图文混合消息，imageURL 通常是 data:image/png;base64,... 形式
func ImageMessage(role, text, imageURL string) Message {
	parts := []ContentPart{
		{Type: "text", Text: text},
		{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
	}
	contentBytes, _ := json.Marshal(parts)
	return Message{
		Role:    role,
		Content: contentBytes,
	}
}

// Text 返回消息的文本内容
// content 为字符串时直接返回；为片段数组时拼接所有 text 片段
func (m Message) Text() string {
	if len(m.Content) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s
	}

	var parts []ContentPart
	if err := json.Unmarshal(m.Content, &parts); err == nil {
		var text string
		for _, p := range parts {
			if p.Type == "text" {
				text += p.Text
			}
		}
		return text
	}

	return string(m.Content)
}

// FirstContent 返回第一个选项的消息文本
func (r *ChatResponse) FirstContent() (string, bool) {
	if r == nil || len(r.Choices) == 0 || r.Choices[0].Message == nil {
		return "", false
	}
	return r.Choices[0].Message.Text(), true
}
