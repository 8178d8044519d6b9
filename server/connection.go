package server

import (
	"net/netip"

	"slotarena/protocol"
)

// findEmptySlot 线性扫描，返回索引最小的空闲槽位
func (s *Server) findEmptySlot() (int, bool) {
	for i, st := range s.statuses {
		if st == StatusDisconnected {
			return i, true
		}
	}
	return -1, false
}

// handleConnect 处理连接请求。已连接地址的重复请求不回复，避免反射放大；
// 但仍视为一次活动，刷新 LastSeen
func (s *Server) handleConnect(from netip.AddrPort) {
	if slot, dup := s.slotOf(from); dup {
		s.sessions[slot].LastSeen = s.now()
		s.metrics.ConnectsDuplicate.Inc()
		Log.Debugw("duplicate connect ignored", "from", from.String(), "slot", slot)
		return
	}

	if s.connections >= s.opts.MaxConnections {
		s.rejectConnect(from)
		return
	}
	slot, ok := s.findEmptySlot()
	if !ok {
		Log.Errorw("BUG: connection counter reports room but no slot is free",
			"connections", s.connections, "capacity", s.opts.MaxConnections)
		s.rejectConnect(from)
		return
	}

	s.statuses[slot] = StatusConnected
	s.sessions[slot] = ClientSession{Endpoint: from, LastSeen: s.now()}
	s.entities[slot] = Entity{
		Alive:     true,
		Transform: Transform{Position: s.opts.SpawnPosition},
	}
	s.connections++
	s.aliveEntities++
	s.metrics.ConnectsAccepted.Inc()
	s.metrics.Connections.Set(float64(s.connections))
	s.metrics.AliveEntities.Set(float64(s.aliveEntities))

	s.sendToClient(slot, protocol.EncodeServer(protocol.ConnectRequestResult{
		Result:   protocol.ResultSuccess,
		Slot:     uint8(slot),
		Capacity: uint8(s.opts.MaxConnections),
	}))
	Log.Infow("client connected", "slot", slot, "from", from.String(), "connections", s.connections)

	s.sendToAllClients(protocol.EncodeServer(protocol.PlayerJoin{Slot: uint8(slot)}))
}

func (s *Server) rejectConnect(from netip.AddrPort) {
	s.metrics.ConnectsRejected.Inc()
	Log.Infow("connect rejected: game full", "from", from.String(), "connections", s.connections)
	s.sendTo(from, protocol.EncodeServer(protocol.ConnectRequestResult{Result: protocol.ResultGameFull}))
}

// handleDisconnect 只接受槽位持有者本人发出的断开
func (s *Server) handleDisconnect(from netip.AddrPort, cmd protocol.Disconnect) {
	slot := int(cmd.Slot)
	if !s.ownsSlot(from, slot) {
		s.metrics.SlotCommandsRejected.WithLabelValues(protocol.TagDisconnect.String()).Inc()
		Log.Warnw("disconnect for slot not owned by sender dropped", "from", from.String(), "slot", slot)
		return
	}
	s.disconnect(slot, "requested")
}

// disconnect 释放槽位并通知其余客户端；槽位立即可复用
func (s *Server) disconnect(slot int, reason string) {
	s.statuses[slot] = StatusDisconnected
	s.sessions[slot].Keys = 0
	s.entities[slot].Alive = false
	s.connections--
	s.aliveEntities--
	s.metrics.Disconnects.Inc()
	s.metrics.Connections.Set(float64(s.connections))
	s.metrics.AliveEntities.Set(float64(s.aliveEntities))

	Log.Infow("client disconnected", "slot", slot, "reason", reason,
		"from", s.sessions[slot].Endpoint.String(), "connections", s.connections)

	s.sendToAllClients(protocol.EncodeServer(protocol.PlayerLeave{Slot: uint8(slot)}))
}

// expireIdle 断开超过空闲时长未发送任何指令的客户端
func (s *Server) expireIdle() {
	if s.opts.IdleTimeout <= 0 {
		return
	}
	now := s.now()
	for i, st := range s.statuses {
		if st != StatusConnected {
			continue
		}
		if now.Sub(s.sessions[i].LastSeen) > s.opts.IdleTimeout {
			s.metrics.IdleKicks.Inc()
			s.disconnect(i, "idle")
		}
	}
}
