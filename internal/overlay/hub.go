package overlay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Zacy-Sokach/ChatSim/internal/chat"
	"github.com/Zacy-Sokach/ChatSim/internal/telemetry"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
)

type client struct {
	send   chan chat.Line
	cancel context.CancelFunc
}

// Hub 把聊天行推送给所有 websocket 客户端，实现 chat.Sink
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.With().Str("component", "overlay").Logger(),
	}
}

// Len 返回当前连接数
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish 非阻塞投递；缓冲区已满的客户端会被断开
func (h *Hub) Publish(line chat.Line) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- line:
		default:
			h.logger.Warn().Msg("overlay client too slow, dropping")
			h.removeLocked(c)
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	telemetry.OverlayClients.Inc()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.cancel()
	telemetry.OverlayClients.Dec()
}

// ServeHTTP 升级为 websocket 并持续推送新行
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// OBS 浏览器源的 Origin 不固定
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to accept websocket")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &client{
		send:   make(chan chat.Line, sendBuffer),
		cancel: cancel,
	}
	h.add(c)
	defer h.remove(c)

	h.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("overlay client connected")

	// 客户端只读，收到的消息全部丢弃；对端关闭时 ctx 被取消
	ctx = conn.CloseRead(ctx)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "closing")
			h.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("overlay client disconnected")
			return
		case line := <-c.send:
			if err := h.write(ctx, conn, line); err != nil {
				h.logger.Debug().Err(err).Msg("overlay write failed")
				conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, line chat.Line) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, line)
}
