package server

import (
	"context"
	"errors"
	"time"

	"slotarena/protocol"
)

// receiveAll 非阻塞地取出所有待处理数据报并按命令分派
func (s *Server) receiveAll() {
	for n := 0; s.opts.MaxPacketsPerTick <= 0 || n < s.opts.MaxPacketsPerTick; n++ {
		dg, ok := s.transport.Receive()
		if !ok {
			return
		}
		s.metrics.PacketsReceived.Inc()
		s.dispatch(dg)
	}
}

func (s *Server) dispatch(dg Datagram) {
	cmd, err := protocol.DecodeClient(dg.Payload)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownCommand) {
			s.metrics.UnknownCommands.Inc()
			Log.Debugw("unknown command dropped", "from", dg.From.String(), "error", err)
			return
		}
		s.metrics.PacketsMalformed.Inc()
		Log.Warnw("malformed packet dropped", "from", dg.From.String(), "size", len(dg.Payload), "error", err)
		return
	}

	switch c := cmd.(type) {
	case protocol.PlayerInput:
		s.handlePlayerInput(dg.From, c)
	case protocol.Connect:
		s.handleConnect(dg.From)
	case protocol.Disconnect:
		s.handleDisconnect(dg.From, c)
	}
}

// worldState 按索引升序收集所有存活实体（含世界实体），死亡实体不出现
func (s *Server) worldState() protocol.WorldState {
	ws := protocol.WorldState{Entities: make([]protocol.EntityState, 0, s.aliveEntities)}
	for i := range s.entities {
		if s.entities[i].Alive {
			ws.Entities = append(ws.Entities, s.entities[i].state(i))
		}
	}
	return ws
}

// broadcastState 序列化一次，发给所有已连接槽位
func (s *Server) broadcastState() protocol.WorldState {
	ws := s.worldState()
	s.sendToAllClients(protocol.EncodeServer(ws))
	return ws
}

// Tick 单线程推进一帧：接收 → 空闲检测 → 应用输入 → 广播
func (s *Server) Tick() {
	start := time.Now()
	s.tickSeq++

	s.receiveAll()
	s.expireIdle()
	s.applyInput()
	ws := s.broadcastState()

	s.spectators.sync()
	s.spectators.publish(s.tickSeq, ws)
	s.publishStatus()
	s.checkCounters()

	s.metrics.Ticks.Inc()
	s.metrics.TickDuration.Observe(time.Since(start).Seconds())
}

// Run 以固定间隔驱动 Tick，直到 ctx 取消
func (s *Server) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer s.spectators.closeAll()

	Log.Infow("tick loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			Log.Infow("tick loop stopped", "ticks", s.tickSeq)
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}
