package notifications

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"backend/internal/logger"
	"backend/internal/notification"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 同源校验由部署层网关负责
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler 审批事件推送接口
type Handler struct {
	hub *notification.Hub
}

// NewHandler 创建推送接口
func NewHandler(hub *notification.Hub) *Handler {
	return &Handler{hub: hub}
}

// Subscribe 升级为 WebSocket 连接并订阅审批裁决事件
// @Summary 订阅审批事件
// @Tags notifications
// @Router /ws/approvals [get]
func (h *Handler) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	unregister := h.hub.Register(conn)
	defer unregister()

	// 推送单向，读循环只用于感知断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
