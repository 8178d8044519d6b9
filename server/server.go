package server

import (
	"fmt"
	"net/netip"
	"time"

	"slotarena/config"
	"slotarena/protocol"
)

// ClientStatus 槽位状态
type ClientStatus uint8

const (
	StatusDisconnected ClientStatus = iota
	StatusConnected
)

func (s ClientStatus) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// ClientSession 槽位上的会话：远端地址、最近一次输入；断开后保留，重连时覆盖
type ClientSession struct {
	Endpoint netip.AddrPort
	Keys     protocol.InputKeys
	LastSeen time.Time
}

// Options 构造 Server 所需的外部配置
type Options struct {
	MaxConnections      int
	SpawnPosition       Vec3
	WorldEntityPosition Vec3
	MoveSpeed           float32
	MaxPacketsPerTick   int           // 0 = 不限
	IdleTimeout         time.Duration // 0 = 不检测
}

// OptionsFromConfig 把配置文件映射为运行参数
func OptionsFromConfig(cfg *config.Config) Options {
	vec := func(v [3]float64) Vec3 {
		return Vec3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}
	}
	return Options{
		MaxConnections:      cfg.Server.MaxConnections,
		SpawnPosition:       vec(cfg.World.SpawnPosition),
		WorldEntityPosition: vec(cfg.World.WorldEntityPosition),
		MoveSpeed:           float32(cfg.Server.MoveSpeed),
		MaxPacketsPerTick:   cfg.Server.MaxPacketsPerTick,
		IdleTimeout:         cfg.Server.IdleTimeoutDuration(),
	}
}

// Server 权威服务器状态：会话表、实体表与计数器只由 Tick 所在的单一协程读写
type Server struct {
	opts      Options
	transport Transport
	metrics   *Metrics
	now       func() time.Time

	sessions []ClientSession
	statuses []ClientStatus
	// 长度为 容量+2：[容量] 为备用，[容量+1] 为世界实体
	entities []Entity

	connections   int
	aliveEntities int
	tickSeq       uint64

	spectators *spectatorHub
	board      statusBoard
}

// NewServer 创建服务器并放置常驻的世界实体
func NewServer(opts Options, transport Transport, metrics *Metrics) (*Server, error) {
	if opts.MaxConnections < 1 || opts.MaxConnections > 255 {
		return nil, fmt.Errorf("max connections must be between 1 and 255, got %d", opts.MaxConnections)
	}
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics are required")
	}

	s := &Server{
		opts:       opts,
		transport:  transport,
		metrics:    metrics,
		now:        time.Now,
		sessions:   make([]ClientSession, opts.MaxConnections),
		statuses:   make([]ClientStatus, opts.MaxConnections),
		entities:   make([]Entity, opts.MaxConnections+2),
		spectators: newSpectatorHub(),
	}

	world := &s.entities[s.worldEntityIndex()]
	world.Alive = true
	world.Transform.Position = opts.WorldEntityPosition
	s.aliveEntities = 1
	s.metrics.AliveEntities.Set(1)
	s.publishStatus()

	Log.Infow("server created",
		"max_connections", opts.MaxConnections,
		"world_entity", s.worldEntityIndex(),
		"idle_timeout", opts.IdleTimeout,
	)
	return s, nil
}

// Capacity 最大连接数
func (s *Server) Capacity() int { return s.opts.MaxConnections }

// ConnectedPlayers 当前连接数
func (s *Server) ConnectedPlayers() int { return s.connections }

func (s *Server) worldEntityIndex() int { return s.opts.MaxConnections + 1 }

func (s *Server) validSlot(slot int) bool {
	return slot >= 0 && slot < s.opts.MaxConnections
}

// slotOf 在已连接槽位中查找该地址，用于重复连接判断与指令归属校验
func (s *Server) slotOf(ep netip.AddrPort) (int, bool) {
	for i, st := range s.statuses {
		if st == StatusConnected && s.sessions[i].Endpoint == ep {
			return i, true
		}
	}
	return -1, false
}

// ownsSlot 指令声明的槽位必须已连接且属于发送方
func (s *Server) ownsSlot(from netip.AddrPort, slot int) bool {
	return s.validSlot(slot) &&
		s.statuses[slot] == StatusConnected &&
		s.sessions[slot].Endpoint == from
}

// checkCounters 由表重新计算计数器，不一致时记录为缺陷
func (s *Server) checkCounters() bool {
	connected := 0
	for _, st := range s.statuses {
		if st == StatusConnected {
			connected++
		}
	}
	alive := 0
	for _, e := range s.entities {
		if e.Alive {
			alive++
		}
	}
	if connected != s.connections || alive != s.aliveEntities {
		Log.Errorw("BUG: counters diverged from slot tables",
			"connections", s.connections, "connected_slots", connected,
			"alive_entities", s.aliveEntities, "alive_in_table", alive,
		)
		return false
	}
	return true
}
