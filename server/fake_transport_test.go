package server

import (
	"net/netip"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"slotarena/protocol"
)

type sentPacket struct {
	to  netip.AddrPort
	cmd protocol.ServerCommand
}

// fakeTransport 内存中的数据报收发，用于驱动 Tick
type fakeTransport struct {
	t       *testing.T
	inbox   []Datagram
	sent    []sentPacket
	failFor map[netip.AddrPort]bool
}

func newFakeTransport(t *testing.T) *fakeTransport {
	return &fakeTransport{t: t, failFor: make(map[netip.AddrPort]bool)}
}

func (f *fakeTransport) Receive() (Datagram, bool) {
	if len(f.inbox) == 0 {
		return Datagram{}, false
	}
	dg := f.inbox[0]
	f.inbox = f.inbox[1:]
	return dg, true
}

func (f *fakeTransport) Send(to netip.AddrPort, payload []byte) bool {
	cmd, err := protocol.DecodeServer(payload)
	require.NoError(f.t, err)
	f.sent = append(f.sent, sentPacket{to: to, cmd: cmd})
	return !f.failFor[to]
}

func (f *fakeTransport) push(from netip.AddrPort, cmd protocol.ClientCommand) {
	f.inbox = append(f.inbox, Datagram{From: from, Payload: protocol.EncodeClient(cmd)})
}

func (f *fakeTransport) pushRaw(from netip.AddrPort, b []byte) {
	f.inbox = append(f.inbox, Datagram{From: from, Payload: b})
}

// drain 取出并清空已发送记录
func (f *fakeTransport) drain() []sentPacket {
	out := f.sent
	f.sent = nil
	return out
}

// eventsTo 筛选发往某地址的非 WorldState 命令
func eventsTo(sent []sentPacket, ep netip.AddrPort) []protocol.ServerCommand {
	var out []protocol.ServerCommand
	for _, p := range sent {
		if p.to != ep {
			continue
		}
		if _, ok := p.cmd.(protocol.WorldState); ok {
			continue
		}
		out = append(out, p.cmd)
	}
	return out
}

func lastWorldStateTo(t *testing.T, sent []sentPacket, ep netip.AddrPort) protocol.WorldState {
	t.Helper()
	for i := len(sent) - 1; i >= 0; i-- {
		if ws, ok := sent[i].cmd.(protocol.WorldState); ok && sent[i].to == ep {
			return ws
		}
	}
	t.Fatalf("no world state sent to %s", ep)
	return protocol.WorldState{}
}

func entityIndexes(ws protocol.WorldState) []uint16 {
	out := make([]uint16, 0, len(ws.Entities))
	for _, e := range ws.Entities {
		out = append(out, e.Index)
	}
	return out
}

func endpoint(s string) netip.AddrPort {
	return netip.MustParseAddrPort(s)
}

func testOptions(capacity int) Options {
	return Options{
		MaxConnections:      capacity,
		SpawnPosition:       Vec3{X: 10, Y: 0, Z: 10},
		WorldEntityPosition: Vec3{X: 20, Y: 1, Z: 20},
		MoveSpeed:           1,
	}
}

func newTestServer(t *testing.T, opts Options) (*Server, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport(t)
	srv, err := NewServer(opts, ft, NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	return srv, ft
}

// connect 在一个 Tick 内完成连接并返回分配的槽位
func connect(t *testing.T, srv *Server, ft *fakeTransport, ep netip.AddrPort) uint8 {
	t.Helper()
	ft.push(ep, protocol.Connect{})
	srv.Tick()
	events := eventsTo(ft.drain(), ep)
	require.NotEmpty(t, events)
	res, ok := events[0].(protocol.ConnectRequestResult)
	require.True(t, ok, "first reply must be ConnectRequestResult, got %T", events[0])
	require.Equal(t, protocol.ResultSuccess, res.Result)
	return res.Slot
}
