package notification

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"backend/internal/approval"
	"backend/internal/logger"
	"backend/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// clientConn 单个 WebSocket 连接，写操作串行
type clientConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *clientConn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// Hub 审批裁决推送中心，向所有在线看板连接广播事件
type Hub struct {
	mu      sync.RWMutex
	clients map[*clientConn]struct{}
	done    chan struct{}
	once    sync.Once
}

// NewHub 创建推送中心并启动保活
func NewHub() *Hub {
	h := &Hub{
		clients: make(map[*clientConn]struct{}),
		done:    make(chan struct{}),
	}
	go h.keepalive()
	return h
}

// Register 注册连接，返回注销函数
func (h *Hub) Register(conn *websocket.Conn) func() {
	c := &clientConn{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnectionsGauge.Set(float64(n))
	logger.Info("看板连接已注册", zap.Int("online", n))

	return func() {
		h.mu.Lock()
		delete(h.clients, c)
		n := len(h.clients)
		h.mu.Unlock()
		metrics.WebSocketConnectionsGauge.Set(float64(n))
		_ = conn.Close()
	}
}

// NotifyDecision 实现审批引擎的 Notifier 接口
func (h *Hub) NotifyDecision(evt approval.DecisionEvent) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": "approval_decision",
		"data": evt,
	})
	if err != nil {
		logger.Error("序列化裁决事件失败", zap.Error(err))
		return
	}
	h.broadcast(payload)
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	conns := make([]*clientConn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(websocket.TextMessage, payload); err != nil {
			logger.Warn("推送裁决事件失败", zap.Error(err))
		}
	}
}

// keepalive 周期性 ping，剔除死连接由读端关闭触发
func (h *Hub) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.mu.RLock()
			conns := make([]*clientConn, 0, len(h.clients))
			for c := range h.clients {
				conns = append(conns, c)
			}
			h.mu.RUnlock()
			for _, c := range conns {
				_ = c.write(websocket.PingMessage, nil)
			}
		case <-h.done:
			return
		}
	}
}

// Close 停止保活并断开所有连接
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		for c := range h.clients {
			_ = c.conn.Close()
		}
		h.clients = make(map[*clientConn]struct{})
		h.mu.Unlock()
	})
}
