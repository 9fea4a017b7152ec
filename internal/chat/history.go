package chat

import "sync"

// DefaultHistorySize 默认保留的最近聊天行数
const DefaultHistorySize = 20

// History 固定容量的聊天历史，溢出时丢弃最旧的一行
type History struct {
	mu    sync.Mutex
	lines []Line
	cap   int
}

// NewHistory 创建容量为 capacity 的历史缓冲区，capacity <= 0 时使用默认值
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		lines: make([]Line, 0, capacity),
		cap:   capacity,
	}
}

// Append 在尾部追加一行，超出容量时移除头部
func (h *History) Append(line Line) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.lines) == h.cap {
		copy(h.lines, h.lines[1:])
		h.lines = h.lines[:h.cap-1]
	}
	h.lines = append(h.lines, line)
}

// Snapshot 返回当前内容的有序副本
func (h *History) Snapshot() []Line {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Line, len(h.lines))
	copy(out, h.lines)
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.lines)
}

func (h *History) Cap() int {
	return h.cap
}

// Clear 清空历史
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = h.lines[:0]
}
