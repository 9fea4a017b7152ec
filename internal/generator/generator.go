// Package generator 负责构造提示词并调用本地模型生成一条观众消息
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Zacy-Sokach/ChatSim/internal/api"
	"github.com/Zacy-Sokach/ChatSim/internal/chat"
	"github.com/Zacy-Sokach/ChatSim/internal/persona"
	"github.com/Zacy-Sokach/ChatSim/internal/telemetry"
	"github.com/rs/zerolog"
)

// Request 一次生成所需的上下文
type Request struct {
	// History 调用时刻的历史快照
	History  []chat.Line
	Username string
	// Image 截图的 data URI，为空表示没有截图
	Image string
}

// Completer 发送聊天补全请求，*api.Client 满足该接口
type Completer interface {
	Complete(ctx context.Context, req api.ChatRequest) (string, error)
}

type Options struct {
	Model       string
	Temperature float64
	// Conversational 启用回复主持人/避免自问自答的附加指令
	Conversational bool
}

// LLM 用本地模型生成消息
type LLM struct {
	client Completer
	picker *persona.Picker
	opts   Options
	logger zerolog.Logger
}

func New(client Completer, picker *persona.Picker, opts Options, logger zerolog.Logger) *LLM {
	if opts.Model == "" {
		opts.Model = api.DefaultModel
	}
	return &LLM{
		client: client,
		picker: picker,
		opts:   opts,
		logger: logger.With().Str("component", "generator").Logger(),
	}
}

// FormatError 把调用失败转成显示在聊天中的文本
func FormatError(err error) string {
	return fmt.Sprintf("(error calling LLM: %v)", err)
}

// Generate 生成一条消息
// 调用模型的任何失败都折叠为 "(error calling LLM: ...)" 文本返回，error 始终为 nil
func (g *LLM) Generate(ctx context.Context, req Request) (string, error) {
	personality := g.picker.Personality()

	directive := ""
	if g.opts.Conversational {
		directive = Directive(req.History, req.Username, g.picker.CoinFlip)
	}

	userPrompt := UserPrompt(req.History, directive, req.Image != "")
	userMsg := api.TextMessage("user", userPrompt)
	if req.Image != "" {
		userMsg = api.ImageMessage("user", userPrompt, req.Image)
	}

	chatReq := api.ChatRequest{
		Model: g.opts.Model,
		Messages: []api.Message{
			api.TextMessage("system", SystemPrompt(personality)),
			userMsg,
		},
		Temperature: g.opts.Temperature,
		Stream:      false,
	}

	start := time.Now()
	content, err := g.client.Complete(ctx, chatReq)
	elapsed := telemetry.ObserveSince(telemetry.LLMRequestDuration, start)
	if err != nil {
		telemetry.LLMRequestsTotal.WithLabelValues("error").Inc()
		g.logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("chat completion failed")
		return FormatError(err), nil
	}

	telemetry.LLMRequestsTotal.WithLabelValues("ok").Inc()
	g.logger.Debug().
		Str("username", req.Username).
		Bool("image", req.Image != "").
		Str("directive", directive).
		Dur("elapsed", elapsed).
		Msg("generated line")

	return strings.TrimSpace(content), nil
}
