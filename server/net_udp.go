package server

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"
)

// 连续读错误时的退避区间
const (
	minReadBackoff = 5 * time.Millisecond
	maxReadBackoff = time.Second
)

// nextReadBackoff 逐次翻倍，封顶 maxReadBackoff
func nextReadBackoff(d time.Duration) time.Duration {
	if d <= 0 {
		return minReadBackoff
	}
	if d *= 2; d > maxReadBackoff {
		return maxReadBackoff
	}
	return d
}

// Datagram 一个入站数据报及其来源
type Datagram struct {
	From    netip.AddrPort
	Payload []byte
}

// Transport 非阻塞数据报收发原语
type Transport interface {
	// Receive 立即返回；没有待处理数据时 ok=false
	Receive() (dg Datagram, ok bool)
	// Send 仅在完整发出时返回 true
	Send(to netip.AddrPort, payload []byte) bool
}

// UDPTransport 单个 UDP socket；读协程把数据报放入有界队列，Tick 线程非阻塞取出
type UDPTransport struct {
	conn  *net.UDPConn
	inbox chan Datagram
	done  chan struct{}
	wg    sync.WaitGroup
}

// ListenUDP 绑定地址并启动读协程
func ListenUDP(addr string, readBuffer, queueSize int) (*UDPTransport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP: %w", err)
	}
	if err := conn.SetReadBuffer(readBuffer); err != nil {
		Log.Warnw("failed to set UDP read buffer size", "buffer_size", readBuffer, "error", err)
	}

	t := &UDPTransport{
		conn:  conn,
		inbox: make(chan Datagram, queueSize),
		done:  make(chan struct{}),
	}
	t.wg.Add(1)
	go t.readLoop()

	Log.Infow("UDP transport listening", "address", conn.LocalAddr().String(), "queue_size", queueSize)
	return t, nil
}

// LocalAddr 实际绑定的地址（端口为 0 时由系统分配）
func (t *UDPTransport) LocalAddr() netip.AddrPort {
	return t.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func (t *UDPTransport) readLoop() {
	defer t.wg.Done()
	// 单个数据报不超过 UDP 最大负载
	buf := make([]byte, 65535)
	var backoff time.Duration
	failures := 0
	for {
		n, from, err := t.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// 持续出错时退避，日志频率随之下降
			failures++
			backoff = nextReadBackoff(backoff)
			Log.Warnw("UDP read failed", "error", err, "consecutive", failures, "retry_in", backoff)
			select {
			case <-t.done:
				return
			case <-time.After(backoff):
			}
			continue
		}
		if failures > 0 {
			Log.Infow("UDP read recovered", "after_failures", failures)
			backoff, failures = 0, 0
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		dg := Datagram{
			From:    netip.AddrPortFrom(from.Addr().Unmap(), from.Port()),
			Payload: payload,
		}

		select {
		case t.inbox <- dg:
		default:
			// 队列满：丢弃，保证 Tick 准时
			Log.Warnw("inbound queue full, dropping datagram", "from", dg.From.String(), "size", n)
		}
	}
}

func (t *UDPTransport) Receive() (Datagram, bool) {
	select {
	case dg := <-t.inbox:
		return dg, true
	default:
		return Datagram{}, false
	}
}

func (t *UDPTransport) Send(to netip.AddrPort, payload []byte) bool {
	n, err := t.conn.WriteToUDPAddrPort(payload, to)
	if err != nil {
		Log.Debugw("UDP send failed", "to", to.String(), "error", err)
		return false
	}
	return n == len(payload)
}

// Close 关闭 socket 并等待读协程退出
func (t *UDPTransport) Close() error {
	close(t.done)
	err := t.conn.Close()
	t.wg.Wait()
	return err
}
