package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sasha-s/go-deadlock"
)

// SlotStatus 单个槽位的只读视图
type SlotStatus struct {
	Slot     int       `json:"slot"`
	Status   string    `json:"status"`
	Endpoint string    `json:"endpoint,omitempty"`
	LastSeen time.Time `json:"last_seen,omitempty"`
	Position *Vec3     `json:"position,omitempty"`
}

// StatusSnapshot Tick 结束时发布的服务器状态副本
type StatusSnapshot struct {
	Tick          uint64       `json:"tick"`
	Capacity      int          `json:"capacity"`
	Connections   int          `json:"connections"`
	AliveEntities int          `json:"alive_entities"`
	Slots         []SlotStatus `json:"slots"`
}

// statusBoard HTTP 协程只读取这里的副本，不接触会话表
type statusBoard struct {
	mu   deadlock.RWMutex
	snap StatusSnapshot
}

func (s *Server) publishStatus() {
	snap := StatusSnapshot{
		Tick:          s.tickSeq,
		Capacity:      s.opts.MaxConnections,
		Connections:   s.connections,
		AliveEntities: s.aliveEntities,
		Slots:         make([]SlotStatus, len(s.statuses)),
	}
	for i, st := range s.statuses {
		ss := SlotStatus{Slot: i, Status: st.String()}
		if st == StatusConnected {
			pos := s.entities[i].Transform.Position
			ss.Endpoint = s.sessions[i].Endpoint.String()
			ss.LastSeen = s.sessions[i].LastSeen
			ss.Position = &pos
		}
		snap.Slots[i] = ss
	}

	s.board.mu.Lock()
	s.board.snap = snap
	s.board.mu.Unlock()
}

// Status 返回最近一次发布的状态，可在任意协程调用
func (s *Server) Status() StatusSnapshot {
	s.board.mu.RLock()
	defer s.board.mu.RUnlock()
	return s.board.snap
}

// HandleSessions GET /admin/sessions 输出槽位表
func (s *Server) HandleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Status())
}

// NewAdminMux 管理与监控接口
func NewAdminMux(s *Server, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/sessions", s.HandleSessions)
	mux.HandleFunc("/spectate", s.HandleSpectate)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
