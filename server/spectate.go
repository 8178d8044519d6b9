package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"

	"slotarena/protocol"
)

// spectator 只读观察者的 WebSocket 连接，发送队列由写协程消费
type spectator struct {
	ws   *websocket.Conn
	send chan []byte
}

// Enqueue 非阻塞入队，满则丢弃，防止慢连接阻塞 Tick
func (c *spectator) Enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
	}
}

// writePump 独立协程，send 被关闭后退出
func (c *spectator) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
		time.Now().Add(time.Second))
}

// readPump 丢弃客户端消息，仅用于发现断开
func (c *spectator) readPump(h *spectatorHub) {
	defer c.ws.Close()
	c.ws.SetReadLimit(512)
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			break
		}
	}
	select {
	case h.leave <- c:
	case <-h.done:
	}
}

// spectatorHub 成员表只在 Tick 协程中修改；HTTP 协程通过通道登记
type spectatorHub struct {
	join    chan *spectator
	leave   chan *spectator
	done    chan struct{}
	members map[*spectator]struct{}

	// departed 离开先于加入被取出的连接，等对应的 join 到达时丢弃
	departed map[*spectator]struct{}

	// mu 保证 closeAll 之后不再有新的 join 入队
	mu     deadlock.Mutex
	closed bool
}

func newSpectatorHub() *spectatorHub {
	return &spectatorHub{
		join:     make(chan *spectator, 16),
		leave:    make(chan *spectator, 64),
		done:     make(chan struct{}),
		members:  make(map[*spectator]struct{}),
		departed: make(map[*spectator]struct{}),
	}
}

// register 由 HTTP 协程调用；hub 已关闭或队列已满时返回 false
func (h *spectatorHub) register(c *spectator) (bool, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false, "server stopping"
	}
	select {
	case h.join <- c:
		return true, ""
	default:
		return false, "join queue full"
	}
}

// sync 处理本帧的加入与离开（非阻塞 drain）。
// 同一帧内 join 与 leave 的取出顺序不确定，两种顺序都要收敛到"未登记"
func (h *spectatorHub) sync() {
	for {
		select {
		case c := <-h.join:
			if _, gone := h.departed[c]; gone {
				delete(h.departed, c)
				close(c.send)
				continue
			}
			h.members[c] = struct{}{}
		case c := <-h.leave:
			if _, ok := h.members[c]; ok {
				delete(h.members, c)
				close(c.send)
				continue
			}
			h.departed[c] = struct{}{}
		default:
			return
		}
	}
}

type spectatorFrame struct {
	Type     string                 `json:"type"`
	Tick     uint64                 `json:"tick"`
	Entities []protocol.EntityState `json:"entities"`
}

// publish 每帧只序列化一次
func (h *spectatorHub) publish(tick uint64, ws protocol.WorldState) {
	if len(h.members) == 0 {
		return
	}
	b, err := json.Marshal(spectatorFrame{Type: "state", Tick: tick, Entities: ws.Entities})
	if err != nil {
		Log.Errorw("marshal spectator frame", "error", err)
		return
	}
	for c := range h.members {
		c.Enqueue(b)
	}
}

func (h *spectatorHub) count() int { return len(h.members) }

// closeAll 在 Tick 循环退出时调用，只能调用一次
func (h *spectatorHub) closeAll() {
	h.mu.Lock()
	h.closed = true
	close(h.done)
	h.mu.Unlock()

	h.sync()
	for c := range h.members {
		delete(h.members, c)
		close(c.send)
	}
	// 尚未配对的离开记录不会再有 join 到达
	clear(h.departed)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// 只读观察接口，允许所有来源
		return true
	},
}

// HandleSpectate WebSocket 接入，每个 Tick 推送一帧 JSON 世界状态
func (s *Server) HandleSpectate(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("spectator upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &spectator{ws: ws, send: make(chan []byte, 32)}
	if ok, reason := s.spectators.register(c); !ok {
		Log.Warnw("spectator rejected", "remote", r.RemoteAddr, "reason", reason)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason),
			time.Now().Add(time.Second))
		_ = ws.Close()
		return
	}
	Log.Infow("spectator connected", "remote", r.RemoteAddr)

	go c.writePump()
	go c.readPump(s.spectators)
}
