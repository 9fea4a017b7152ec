package chat

import (
	"sync"
)

// Sink 接收发布到聊天室的每一行
type Sink interface {
	Publish(line Line)
}

// SinkFunc 让普通函数满足 Sink 接口
type SinkFunc func(Line)

func (f SinkFunc) Publish(line Line) { f(line) }

// Room 持有共享历史，并把新行分发给所有订阅者
type Room struct {
	history *History

	mu    sync.RWMutex
	sinks []Sink
}

// NewRoom 创建聊天室
func NewRoom(history *History) *Room {
	if history == nil {
		history = NewHistory(DefaultHistorySize)
	}
	return &Room{history: history}
}

// History 返回底层历史缓冲区
func (r *Room) History() *History {
	return r.history
}

// Subscribe 注册一个订阅者
func (r *Room) Subscribe(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, sink)
}

// Post 追加到历史后再分发，保证订阅者看到时历史已包含该行
func (r *Room) Post(line Line) {
	r.history.Append(line)
	r.publish(line)
}

// Announce 只分发不写入历史，用于系统提示和错误行
func (r *Room) Announce(line Line) {
	r.publish(line)
}

func (r *Room) publish(line Line) {
	r.mu.RLock()
	sinks := make([]Sink, len(r.sinks))
	copy(sinks, r.sinks)
	r.mu.RUnlock()

	for _, sink := range sinks {
		sink.Publish(line)
	}
}

// ChannelSink 把行投递到带缓冲的通道，供 UI 线程读取
type ChannelSink struct {
	ch   chan Line
	skip func(Line) bool

	mu      sync.Mutex
	dropped int
}

// NewChannelSink 创建通道订阅者；skip 返回 true 的行不会投递
func NewChannelSink(buffer int, skip func(Line) bool) *ChannelSink {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelSink{
		ch:   make(chan Line, buffer),
		skip: skip,
	}
}

// Publish 非阻塞投递，通道满时丢弃并计数
func (s *ChannelSink) Publish(line Line) {
	if s.skip != nil && s.skip(line) {
		return
	}
	select {
	case s.ch <- line:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Lines 返回只读通道
func (s *ChannelSink) Lines() <-chan Line {
	return s.ch
}

// Dropped 返回因通道已满而丢弃的行数
func (s *ChannelSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
