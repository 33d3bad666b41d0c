package server

import (
	"net/http"
	"sync"

	"ScoreRack/logger"

	"github.com/gorilla/websocket"
)

// BundleEvent 是资源包变更的广播消息
type BundleEvent struct {
	PieceID  int64  `json:"pieceId"`
	BundleID int64  `json:"bundleId"`
	Action   string `json:"action"` // created / updated / deleted / moved
}

// NotifyHub 按乐曲维护WebSocket订阅，资源包变更时推送给正在看
// 该乐曲矩阵的客户端，前端收到后重新拉取投影。
type NotifyHub struct {
	mu      sync.RWMutex
	clients map[int64]map[*websocket.Conn]bool

	upgrader websocket.Upgrader
}

// NewNotifyHub 创建变更通知中心
func NewNotifyHub() *NotifyHub {
	return &NotifyHub{
		clients: make(map[int64]map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 跨域由外层CORS中间件统一处理
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle 将HTTP连接升级为WebSocket并订阅某乐曲的变更
func (hub *NotifyHub) Handle(w http.ResponseWriter, r *http.Request) {
	pieceID, err := queryID(r, "pieceId", false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket升级失败", logger.ErrorField(err))
		return
	}

	hub.register(pieceID, conn)
	logger.Debug("矩阵订阅已建立", logger.Int64("pieceId", pieceID))

	// 读循环只为感知断连，客户端不发有效载荷
	go func() {
		defer func() {
			hub.unregister(pieceID, conn)
			conn.Close()
			logger.Debug("矩阵订阅已断开", logger.Int64("pieceId", pieceID))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast 向订阅了对应乐曲的客户端推送变更事件。
// 写失败的连接就地剔除。
func (hub *NotifyHub) Broadcast(event BundleEvent) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	conns := hub.clients[event.PieceID]
	for conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			logger.Warn("推送变更事件失败", logger.Int64("pieceId", event.PieceID), logger.ErrorField(err))
			conn.Close()
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(hub.clients, event.PieceID)
	}
}

func (hub *NotifyHub) register(pieceID int64, conn *websocket.Conn) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.clients[pieceID] == nil {
		hub.clients[pieceID] = make(map[*websocket.Conn]bool)
	}
	hub.clients[pieceID][conn] = true
}

func (hub *NotifyHub) unregister(pieceID int64, conn *websocket.Conn) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if conns := hub.clients[pieceID]; conns != nil {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(hub.clients, pieceID)
		}
	}
}
