// Package relay 以匿名只读方式加入真实 Twitch 频道，把聊天转发到聊天室
package relay

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Zacy-Sokach/ChatSim/internal/chat"
	"github.com/Zacy-Sokach/ChatSim/internal/telemetry"
	twitch "github.com/gempir/go-twitch-irc/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	disconnectRetry   = 100 * time.Millisecond
	disconnectTimeout = time.Second
)

// DefaultColor 用户没有设置颜色时使用
const DefaultColor = "#9146FF"

// Poster 接收转发的行，*chat.Room 满足该接口
type Poster interface {
	Post(line chat.Line)
}

type Options struct {
	Channel string
	// RatePerSec 为 0 时不限速
	RatePerSec float64
	Burst      int
}

// Relay 令牌桶限速，避免真实聊天冲掉模拟历史
type Relay struct {
	client  *twitch.Client
	room    Poster
	limiter *rate.Limiter
	channel string
	logger  zerolog.Logger
}

func New(room Poster, opts Options, logger zerolog.Logger) *Relay {
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	r := &Relay{
		client:  twitch.NewAnonymousClient(),
		room:    room,
		limiter: rate.NewLimiter(limit, opts.Burst),
		channel: strings.ToLower(strings.TrimPrefix(opts.Channel, "#")),
		logger:  logger.With().Str("component", "relay").Logger(),
	}

	r.client.OnConnect(func() {
		r.logger.Info().Str("channel", r.channel).Msg("connected to twitch chat")
	})
	r.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		r.handleMessage(msg)
	})

	return r
}

// Run 连接并阻塞直到 ctx 取消
func (r *Relay) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	r.client.Join(r.channel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.client.Connect()
	}()

	select {
	case err := <-errCh:
		return connectResult(err)
	case <-ctx.Done():
	}

	// 收到 001 之前 Disconnect 返回 ErrConnectionIsNotOpen 且不做任何事，需要重试
	ticker := time.NewTicker(disconnectRetry)
	defer ticker.Stop()
	deadline := time.NewTimer(disconnectTimeout)
	defer deadline.Stop()

	for {
		r.client.Disconnect()

		select {
		case err := <-errCh:
			return connectResult(err)
		case <-ticker.C:
		case <-deadline.C:
			// Connect 仍卡在握手中，放弃等待，由进程退出回收
			r.logger.Warn().Str("channel", r.channel).Msg("twitch handshake still pending at shutdown, abandoning connection")
			return nil
		}
	}
}

func connectResult(err error) error {
	if errors.Is(err, twitch.ErrClientDisconnected) {
		return nil
	}
	return err
}

// handleMessage 返回是否已转发
func (r *Relay) handleMessage(msg twitch.PrivateMessage) bool {
	text := strings.TrimSpace(msg.Message)
	if text == "" {
		return false
	}

	if !r.limiter.Allow() {
		telemetry.RelayDroppedTotal.Inc()
		r.logger.Debug().Str("user", msg.User.Name).Msg("relay rate limit reached, dropping message")
		return false
	}

	speaker := msg.User.DisplayName
	if speaker == "" {
		speaker = msg.User.Name
	}
	color := msg.User.Color
	if color == "" {
		color = DefaultColor
	}

	r.room.Post(chat.NewLine(chat.SourceTwitch, speaker, color, text))
	return true
}
