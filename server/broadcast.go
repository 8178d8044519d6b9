package server

import "net/netip"

// sendTo 直接发往某个地址（用于尚未占用槽位的请求方）
func (s *Server) sendTo(to netip.AddrPort, payload []byte) bool {
	if !s.transport.Send(to, payload) {
		s.metrics.SendFailures.Inc()
		return false
	}
	return true
}

// sendToClient 槽位未连接时直接返回 false
func (s *Server) sendToClient(slot int, payload []byte) bool {
	if !s.validSlot(slot) || s.statuses[slot] != StatusConnected {
		return false
	}
	return s.sendTo(s.sessions[slot].Endpoint, payload)
}

// sendToAllClients 按槽位升序逐个发送，单个失败不影响其他客户端
func (s *Server) sendToAllClients(payload []byte) {
	for i := range s.statuses {
		s.sendToClient(i, payload)
	}
}
