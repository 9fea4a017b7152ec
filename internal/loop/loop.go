// Package loop 实现后台生成循环：按固定间隔选一个模拟观众，调用模型，把结果发到聊天室
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Zacy-Sokach/ChatSim/internal/capture"
	"github.com/Zacy-Sokach/ChatSim/internal/chat"
	"github.com/Zacy-Sokach/ChatSim/internal/generator"
	"github.com/Zacy-Sokach/ChatSim/internal/persona"
	"github.com/Zacy-Sokach/ChatSim/internal/telemetry"
	"github.com/rs/zerolog"
)

const DefaultInterval = 4 * time.Second

// ErrAlreadyStarted 循环只能从 Idle 状态启动一次
var ErrAlreadyStarted = errors.New("loop already started")

// State 循环生命周期
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Generator 生成一条消息；返回 error 时循环会显示一条系统错误行
type Generator interface {
	Generate(ctx context.Context, req generator.Request) (string, error)
}

type Options struct {
	Interval time.Duration
	// RefreshEvery 每隔多少个 tick 重新截图
	RefreshEvery int
}

// Loop 同一时刻最多只有一次生成在进行
type Loop struct {
	gen      Generator
	room     *chat.Room
	picker   *persona.Picker
	capturer capture.Capturer
	shots    capture.Cache
	opts     Options
	logger   zerolog.Logger

	mu     sync.Mutex
	state  atomic.Int32
	paused atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}

	// 只在工作协程中访问
	ticks int
}

// New 创建循环；capturer 为 nil 表示关闭截图模式
func New(gen Generator, room *chat.Room, picker *persona.Picker, capturer capture.Capturer, opts Options, logger zerolog.Logger) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.RefreshEvery <= 0 {
		opts.RefreshEvery = 1
	}
	return &Loop{
		gen:      gen,
		room:     room,
		picker:   picker,
		capturer: capturer,
		opts:     opts,
		logger:   logger.With().Str("component", "loop").Logger(),
		done:     make(chan struct{}),
		// 第一个 tick 就截图
		ticks: opts.RefreshEvery - 1,
	}
}

// State 返回当前生命周期状态
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Done 在工作协程退出后关闭
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Start 在后台协程中启动循环
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.State() != StateIdle {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.state.Store(int32(StateRunning))

	go l.run(ctx)
	return nil
}

// Stop 取消正在进行的请求并等待工作协程退出
func (l *Loop) Stop() {
	l.mu.Lock()
	switch l.State() {
	case StateIdle:
		l.state.Store(int32(StateStopped))
		close(l.done)
		l.mu.Unlock()
		return
	case StateStopped:
		l.mu.Unlock()
		<-l.done
		return
	}
	cancel := l.cancel
	l.mu.Unlock()

	cancel()
	<-l.done
}

// Pause 暂停生成，循环继续按间隔运行但跳过调用
func (l *Loop) Pause() {
	l.paused.Store(true)
}

func (l *Loop) Resume() {
	l.paused.Store(false)
}

func (l *Loop) Paused() bool {
	return l.paused.Load()
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	defer l.state.Store(int32(StateStopped))

	l.logger.Info().
		Dur("interval", l.opts.Interval).
		Bool("capture", l.capturer != nil).
		Msg("generation loop started")

	for {
		if ctx.Err() != nil {
			break
		}

		l.step(ctx)

		timer := time.NewTimer(l.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	l.logger.Info().Msg("generation loop stopped")
}

// step 执行一个周期；失败时发布一条系统错误行，不写入历史
func (l *Loop) step(ctx context.Context) {
	if l.paused.Load() {
		telemetry.CyclesTotal.WithLabelValues("paused").Inc()
		return
	}

	err := l.cycle(ctx)
	if err == nil {
		telemetry.CyclesTotal.WithLabelValues("ok").Inc()
		return
	}
	if ctx.Err() != nil {
		// 停止过程中被取消的请求不算错误
		return
	}

	telemetry.CyclesTotal.WithLabelValues("error").Inc()
	l.logger.Error().Err(err).Msg("generation cycle failed")
	l.room.Announce(ErrorLine(err))
}

// ErrorLine 生成循环错误的系统行
func ErrorLine(err error) chat.Line {
	return chat.NewLine(chat.SourceSystem, chat.SystemSpeaker, chat.SystemColor, fmt.Sprintf("(error: %v)", err))
}

func (l *Loop) cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	image := l.refreshScreenshot(ctx)
	viewer := l.picker.Viewer()
	snapshot := l.room.History().Snapshot()

	text, err := l.gen.Generate(ctx, generator.Request{
		History:  snapshot,
		Username: viewer.Username,
		Image:    image,
	})
	if err != nil {
		return err
	}
	// 停止时被取消的请求会折叠成错误文本，不能发到聊天室
	if err := ctx.Err(); err != nil {
		return err
	}

	l.room.Post(chat.NewLine(chat.SourceGenerated, viewer.Username, viewer.Color, text))
	return nil
}

// refreshScreenshot 每 RefreshEvery 个 tick 截一次图，失败时沿用上一张
func (l *Loop) refreshScreenshot(ctx context.Context) string {
	l.ticks++
	if l.capturer == nil {
		return ""
	}

	if l.ticks >= l.opts.RefreshEvery {
		l.ticks = 0
		shot, err := l.capturer.Capture(ctx)
		switch {
		case err == nil:
			l.shots.Store(shot)
			telemetry.CapturesTotal.WithLabelValues("ok").Inc()
		case errors.Is(err, capture.ErrNoWindow):
			telemetry.CapturesTotal.WithLabelValues("no_window").Inc()
			l.logger.Debug().Msg("no matching window, keeping previous screenshot")
		default:
			telemetry.CapturesTotal.WithLabelValues("error").Inc()
			l.logger.Warn().Err(err).Msg("screenshot failed, keeping previous screenshot")
		}
	}

	return l.shots.DataURI()
}
