// Package protocol 定义客户端与服务端之间的二进制命令格式。
// 无长度前缀，字段按命令声明的顺序读写。
package protocol

import (
	"encoding/binary"
	"errors"
	"math"
)

// 所有多字节字段统一使用网络字节序（大端）
var order = binary.BigEndian

var (
	// ErrShortPacket 读取越过数据包末尾
	ErrShortPacket = errors.New("packet too short")
	// ErrUnknownCommand 命令标签不在已知集合内
	ErrUnknownCommand = errors.New("unknown command")
)

// Writer 按声明顺序追加字段，接收方必须以相同顺序读取
type Writer struct {
	buf []byte
}

// NewWriter 预分配 size 字节容量
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

func (w *Writer) U8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) U16(v uint16) *Writer {
	w.buf = order.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) F32(v float32) *Writer {
	w.buf = order.AppendUint32(w.buf, math.Float32bits(v))
	return w
}

// Bytes 返回已写入的数据（与 Writer 共享底层数组）
func (w *Writer) Bytes() []byte { return w.buf }

// Reader 顺序读取字段；首个错误会被保留，后续读取均返回零值
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf)-r.off < n {
		r.err = ErrShortPacket
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return order.Uint16(b)
}

func (r *Reader) F32() float32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(order.Uint32(b))
}

// Remaining 未读取的字节数
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Err 返回第一次读取失败的原因
func (r *Reader) Err() error { return r.err }
