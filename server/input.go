package server

import (
	"net/netip"

	"slotarena/protocol"
)

// handlePlayerInput 记录意图，不立即移动；位移在 applyInput 中按 Tick 推进
func (s *Server) handlePlayerInput(from netip.AddrPort, in protocol.PlayerInput) {
	slot := int(in.Slot)
	if !s.ownsSlot(from, slot) {
		s.metrics.SlotCommandsRejected.WithLabelValues(protocol.TagPlayerInput.String()).Inc()
		Log.Debugw("input for slot not owned by sender dropped", "from", from.String(), "slot", slot)
		return
	}

	sess := &s.sessions[slot]
	sess.Keys = in.Keys
	sess.LastSeen = s.now()
	s.entities[slot].Transform.Rotation = Rotation{Yaw: in.Yaw, Pitch: in.Pitch}
	s.metrics.InputsAccepted.Inc()
}

// resolveAxes 把按键掩码拆成两个轴向意图（+1/-1/0）。
// 同一轴两个键同时按下时先检查的键生效：Forwards 优先于 Back，Left 优先于 Right
func resolveAxes(keys protocol.InputKeys) (forward, strafe int) {
	switch {
	case keys.Has(protocol.KeyForwards):
		forward = 1
	case keys.Has(protocol.KeyBack):
		forward = -1
	}
	switch {
	case keys.Has(protocol.KeyLeft):
		strafe = -1
	case keys.Has(protocol.KeyRight):
		strafe = 1
	}
	return forward, strafe
}

// applyInput 每个已连接槽位每轴每 Tick 最多移动一次
func (s *Server) applyInput() {
	step := s.opts.MoveSpeed
	for i, st := range s.statuses {
		if st != StatusConnected {
			continue
		}
		e := &s.entities[i]
		forward, strafe := resolveAxes(s.sessions[i].Keys)
		switch forward {
		case 1:
			e.MoveForwards(step)
		case -1:
			e.MoveBackwards(step)
		}
		switch strafe {
		case -1:
			e.MoveLeft(step)
		case 1:
			e.MoveRight(step)
		}
	}
}
